package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// resultFile is the JSON document the external solver writes with --output.
type resultFile struct {
	Assignment map[string]any `json:"assignment"`
	Status     string         `json:"status,omitempty"`
	Cost       any            `json:"cost,omitempty"`
}

// ParseAssignment extracts the flat variable -> 0/1 map from a result document.
// Values may be JSON strings ("0", "1"), numbers or booleans.
func ParseAssignment(data []byte) (map[string]int, error) {
	var res resultFile
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if res.Assignment == nil {
		return nil, errors.New("result has no assignment")
	}

	values := make(map[string]int, len(res.Assignment))
	for name, raw := range res.Assignment {
		v, err := binaryValue(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}

func binaryValue(raw any) (int, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("value %q is not 0 or 1", v)
		}
		return checkBinary(n)
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("value %v is not 0 or 1", v)
		}
		return checkBinary(int(v))
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected value type %T", raw)
	}
}

func checkBinary(n int) (int, error) {
	if n != 0 && n != 1 {
		return 0, fmt.Errorf("value %d is not 0 or 1", n)
	}
	return n, nil
}
