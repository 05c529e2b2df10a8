package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/logging"
	"github.com/me/satalloc/internal/server"
	"github.com/me/satalloc/internal/store"
)

func main() {
	defaults := config.Default()

	configFile := flag.String("config", "", "Path to YAML config file (server, solver, allocator sections)")
	addr := flag.String("addr", defaults.Server.Addr, "Listen address")
	logLevel := flag.String("log-level", defaults.Server.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", defaults.Server.LogFormat, "Log format (text, json)")
	dbPath := flag.String("db", defaults.Server.DBPath, "Database path (default ~/.satalloc/satalloc.db)")
	backend := flag.String("backend", defaults.Solver.Backend, "Default solver backend (pydcop, local)")
	algo := flag.String("algo", defaults.Solver.Algorithm, "Default solver algorithm")
	solverCmd := flag.String("solver-cmd", defaults.Solver.Command, "pydcop executable")
	solverTimeout := flag.Duration("solver-timeout", defaults.Solver.Timeout, "Deadline per solver invocation")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Explicit flags override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "log-level":
			cfg.Server.LogLevel = *logLevel
		case "log-format":
			cfg.Server.LogFormat = *logFormat
		case "db":
			cfg.Server.DBPath = *dbPath
		case "backend":
			cfg.Solver.Backend = *backend
		case "algo":
			cfg.Solver.Algorithm = *algo
		case "solver-cmd":
			cfg.Solver.Command = *solverCmd
		case "solver-timeout":
			cfg.Solver.Timeout = *solverTimeout
		}
	})
	if *debug {
		cfg.Server.LogLevel = "debug"
	}

	logger := logging.FromConfig(cfg.Server)

	// Resolve database path.
	path := cfg.Server.DBPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".satalloc")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		path = filepath.Join(dir, "satalloc.db")
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", path)

	srv := server.New(cfg, st, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "backend", cfg.Solver.Backend, "algorithm", cfg.Solver.Algorithm)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
