// Package parser decodes instance documents and checks them for semantic errors.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/satalloc/pkg/model"
)

// Parser converts raw instance documents (YAML or JSON) into model instances.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger.With("component", "parser")}
}

// Parse decodes an instance document and indexes it. JSON documents are
// accepted since YAML is a superset. Unknown fields are rejected.
func (p *Parser) Parse(data []byte) (*model.Instance, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var inst model.Instance
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&inst); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if err := checkNil(&inst); err != nil {
		return nil, err
	}
	inst.Index()

	p.logger.Debug("instance parsed", "name", inst.Name, "summary", inst.Summary())
	return &inst, nil
}

// ParseFile reads and parses the document at path.
func (p *Parser) ParseFile(path string) (*model.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}
	inst, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inst, nil
}

// checkNil rejects null list entries, which YAML decodes to nil pointers.
func checkNil(inst *model.Instance) error {
	for i, s := range inst.Satellites {
		if s == nil {
			return fmt.Errorf("satellites[%d] is null", i)
		}
	}
	for i, u := range inst.Users {
		if u == nil {
			return fmt.Errorf("users[%d] is null", i)
		}
	}
	for i, r := range inst.Requests {
		if r == nil {
			return fmt.Errorf("requests[%d] is null", i)
		}
		for j, o := range r.Opportunities {
			if o == nil {
				return fmt.Errorf("requests[%d].opportunities[%d] is null", i, j)
			}
		}
	}
	return nil
}

// Format selects the encoding used by Encode.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Encode serializes v as YAML or indented JSON.
func Encode(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ContentHash returns the hex SHA-256 of a document, used to deduplicate
// stored instances and concurrent solves.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
