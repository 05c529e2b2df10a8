package solver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/me/satalloc/internal/dcop"
)

// sumPrelude gives the intention expressions their sum([...]) builtin.
const sumPrelude = `function sum(xs) { var s = 0; for (var i = 0; i < xs.length; i++) { s += xs[i]; } return s; }`

// Local solves problems in-process. Its only algorithm, "greedy", visits the
// variables in declaration order and sets each to 1 when every constraint
// mentioning it still holds. Constraints are evaluated from their serialized
// expressions, so Local checks exactly what the external solver would read.
type Local struct {
	logger *slog.Logger
}

// NewLocal creates the in-process backend.
func NewLocal(logger *slog.Logger) *Local {
	return &Local{logger: logger.With("component", "local-solver")}
}

// Name returns "local".
func (s *Local) Name() string { return "local" }

// Solve runs the greedy assignment. "dpop" is accepted as an alias so the
// default algorithm works without the external solver installed.
func (s *Local) Solve(ctx context.Context, p *dcop.Problem, algorithm string) (dcop.Solution, error) {
	switch algorithm {
	case "", "greedy", "dpop":
	default:
		return nil, &InvocationError{Backend: s.Name(), Algorithm: algorithm, ExitCode: -1,
			Err: fmt.Errorf("%w %q", ErrUnknownAlgorithm, algorithm)}
	}

	vm := goja.New()
	if _, err := vm.RunString(sumPrelude); err != nil {
		return nil, s.fail(algorithm, fmt.Errorf("prelude: %w", err))
	}

	programs := make(map[string]*goja.Program, len(p.Constraints))
	for _, c := range p.Constraints {
		prog, err := goja.Compile(c.Name, c.Expression(), true)
		if err != nil {
			return nil, s.fail(algorithm, fmt.Errorf("compile %s: %w", c.Name, err))
		}
		programs[c.Name] = prog
	}

	values := make(map[string]int, len(p.Variables))
	for _, v := range p.Variables {
		values[v.Name] = 0
		if err := vm.Set(v.Name, 0); err != nil {
			return nil, s.fail(algorithm, fmt.Errorf("set %s: %w", v.Name, err))
		}
	}

	for _, v := range p.Variables {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(algorithm, err)
		}
		if err := vm.Set(v.Name, 1); err != nil {
			return nil, s.fail(algorithm, fmt.Errorf("set %s: %w", v.Name, err))
		}
		feasible := true
		for _, c := range p.ConstraintsOf(v.Name) {
			res, err := vm.RunProgram(programs[c.Name])
			if err != nil {
				return nil, s.fail(algorithm, fmt.Errorf("evaluate %s: %w", c.Name, err))
			}
			if !res.ToBoolean() {
				feasible = false
				break
			}
		}
		if !feasible {
			if err := vm.Set(v.Name, 0); err != nil {
				return nil, s.fail(algorithm, fmt.Errorf("reset %s: %w", v.Name, err))
			}
			continue
		}
		values[v.Name] = 1
	}

	sol, err := p.Decode(values)
	if err != nil {
		return nil, &RetrievalError{Backend: s.Name(), Err: err}
	}
	s.logger.Debug("problem solved", "variables", len(p.Variables), "assigned", len(sol.Pairs()))
	return sol, nil
}

func (s *Local) fail(algorithm string, err error) error {
	return &InvocationError{Backend: s.Name(), Algorithm: algorithm, ExitCode: -1, Err: err}
}
