// Package solver submits constraint problems to a solving capability and
// returns the per-agent assignment it chose.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/me/satalloc/internal/dcop"
)

// Solver is a constraint-solving capability. Solve blocks until the backend
// returns or fails; failures are *InvocationError or *RetrievalError.
type Solver interface {
	// Name returns the backend identifier used in configuration.
	Name() string

	// Solve runs algorithm on p and returns the assignments valued 1.
	Solve(ctx context.Context, p *dcop.Problem, algorithm string) (dcop.Solution, error)
}

// ErrUnknownAlgorithm is wrapped by an InvocationError when a backend does not
// implement the requested algorithm.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// InvocationError reports that the solving capability was unavailable,
// exited with a non-zero status or missed its deadline.
type InvocationError struct {
	Backend   string
	Algorithm string
	ExitCode  int // -1 when the process did not exit normally
	Stderr    string
	Err       error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("solver %s (%s): invocation failed", e.Backend, e.Algorithm)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(": exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

// RetrievalError reports a missing or malformed result artifact.
type RetrievalError struct {
	Backend string
	Path    string
	Err     error
}

func (e *RetrievalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("solver %s: retrieve result: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("solver %s: retrieve result %s: %v", e.Backend, e.Path, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
