package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/dcop"
)

const (
	problemName = "problem.yaml"
	resultName  = "result.json"
)

// PyDCOP runs the pydcop command line as an external process:
//
//	pydcop --output <dir>/result.json solve --algo <algorithm> <dir>/problem.yaml
type PyDCOP struct {
	command       []string
	workDir       string
	timeout       time.Duration
	keepArtifacts bool
	logger        *slog.Logger
}

// NewPyDCOP creates the external-process backend from cfg.
func NewPyDCOP(cfg config.SolverConfig, logger *slog.Logger) *PyDCOP {
	command := strings.Fields(cfg.Command)
	if len(command) == 0 {
		command = []string{"pydcop"}
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &PyDCOP{
		command:       command,
		workDir:       workDir,
		timeout:       cfg.Timeout,
		keepArtifacts: cfg.KeepArtifacts,
		logger:        logger.With("component", "pydcop"),
	}
}

// Name returns "pydcop".
func (s *PyDCOP) Name() string { return "pydcop" }

// Solve writes the problem artifact into a fresh directory, runs the solver
// and parses result.json.
func (s *PyDCOP) Solve(ctx context.Context, p *dcop.Problem, algorithm string) (dcop.Solution, error) {
	runDir := filepath.Join(s.workDir, "dcop_"+uuid.New().String())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, &InvocationError{Backend: s.Name(), Algorithm: algorithm, ExitCode: -1,
			Err: fmt.Errorf("create work dir: %w", err)}
	}
	if !s.keepArtifacts {
		defer os.RemoveAll(runDir)
	}

	data, err := dcop.Marshal(p)
	if err != nil {
		return nil, &InvocationError{Backend: s.Name(), Algorithm: algorithm, ExitCode: -1, Err: err}
	}
	problemPath := filepath.Join(runDir, problemName)
	if err := os.WriteFile(problemPath, data, 0o644); err != nil {
		return nil, &InvocationError{Backend: s.Name(), Algorithm: algorithm, ExitCode: -1,
			Err: fmt.Errorf("write problem: %w", err)}
	}
	resultPath := filepath.Join(runDir, resultName)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), s.command[1:]...),
		"--output", resultPath, "solve", "--algo", algorithm, problemPath)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	cmd.Dir = runDir
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	runErr := cmd.Run()

	s.logger.Debug("solver process finished",
		"dir", runDir,
		"algorithm", algorithm,
		"variables", len(p.Variables),
		"duration", time.Since(start).String(),
		"error", runErr,
	)

	if runErr != nil {
		invErr := &InvocationError{
			Backend:   s.Name(),
			Algorithm: algorithm,
			ExitCode:  -1,
			Stderr:    strings.TrimSpace(stderrBuf.String()),
			Err:       runErr,
		}
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			invErr.Err = ctx.Err()
		case errors.As(runErr, &exitErr):
			invErr.ExitCode = exitErr.ExitCode()
		}
		return nil, invErr
	}

	raw, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, &RetrievalError{Backend: s.Name(), Path: resultPath, Err: err}
	}
	values, err := ParseAssignment(raw)
	if err != nil {
		return nil, &RetrievalError{Backend: s.Name(), Path: resultPath, Err: err}
	}
	sol, err := p.Decode(values)
	if err != nil {
		return nil, &RetrievalError{Backend: s.Name(), Path: resultPath, Err: err}
	}
	return sol, nil
}
