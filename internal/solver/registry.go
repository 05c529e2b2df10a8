package solver

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/me/satalloc/internal/config"
)

// Registry maps backend names to their Solver implementations.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	solvers map[string]Solver
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		solvers: make(map[string]Solver),
		logger:  logger.With("component", "solver-registry"),
	}
}

// NewDefaultRegistry registers the pydcop and local backends.
func NewDefaultRegistry(cfg config.SolverConfig, logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)
	reg.Register(NewPyDCOP(cfg, logger))
	reg.Register(NewLocal(logger))
	return reg
}

// Register adds a Solver, keyed by its Name().
func (r *Registry) Register(s Solver) {
	r.solvers[s.Name()] = s
	r.logger.Debug("solver registered", "backend", s.Name())
}

// Get returns the Solver for name or an error if none is registered.
func (r *Registry) Get(name string) (Solver, error) {
	s, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("no solver registered for backend %q (have %v)", name, r.Names())
	}
	return s, nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
