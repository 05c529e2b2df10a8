// Package config holds the configuration for the allocation server, CLI and solver backends.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/satalloc/pkg/model"
)

// ServerConfig holds configuration for the allocation server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json
	DBPath    string `yaml:"db_path"`    // SQLite instance catalogue (default ~/.satalloc/satalloc.db, ":memory:" for testing)
}

// SolverConfig selects and configures the conflict-resolution backend.
type SolverConfig struct {
	Backend       string        `yaml:"backend"`        // "pydcop" (external process) or "local" (in-process)
	Algorithm     string        `yaml:"algorithm"`      // Algorithm passed to the backend (default "dpop")
	Command       string        `yaml:"command"`        // pydcop executable, may include leading arguments
	WorkDir       string        `yaml:"work_dir"`       // Parent of per-invocation artifact directories (default os.TempDir())
	Timeout       time.Duration `yaml:"timeout"`        // Deadline per invocation; expiry is an invocation failure
	KeepArtifacts bool          `yaml:"keep_artifacts"` // Keep problem.yaml/result.json after each invocation
}

// AllocatorConfig configures the allocation phases.
type AllocatorConfig struct {
	CentralPlanner string `yaml:"central_planner"` // User id processed in the first phase
}

// Config is the optional YAML configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Solver    SolverConfig    `yaml:"solver"`
	Allocator AllocatorConfig `yaml:"allocator"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// DefaultSolverConfig returns the pydcop backend running DPOP with a two minute deadline.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Backend:   "pydcop",
		Algorithm: "dpop",
		Command:   "pydcop",
		Timeout:   2 * time.Minute,
	}
}

// DefaultAllocatorConfig returns sensible defaults.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{CentralPlanner: model.DefaultCentralPlanner}
}

// Default returns a Config populated with every default.
func Default() Config {
	return Config{
		Server:    DefaultServerConfig(),
		Solver:    DefaultSolverConfig(),
		Allocator: DefaultAllocatorConfig(),
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
