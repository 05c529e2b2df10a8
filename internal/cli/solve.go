package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/satalloc/internal/allocator"
	"github.com/me/satalloc/internal/parser"
	"github.com/me/satalloc/internal/solver"
	"github.com/me/satalloc/internal/watch"
	"github.com/me/satalloc/pkg/model"
)

// report is what solve prints.
type report struct {
	Instance  string             `json:"instance" yaml:"instance"`
	Backend   string             `json:"backend" yaml:"backend"`
	Algorithm string             `json:"algorithm" yaml:"algorithm"`
	RunID     string             `json:"run_id" yaml:"run_id"`
	Schedule  []model.Assignment `json:"schedule" yaml:"schedule"`
	Stats     allocator.Stats    `json:"stats" yaml:"stats"`
}

func newSolveCmd() *cobra.Command {
	var (
		backend        string
		algorithm      string
		solverCmd      string
		centralPlanner string
		format         string
		timeout        time.Duration
		keepArtifacts  bool
		watchFile      bool
	)

	cmd := &cobra.Command{
		Use:   "solve <instance-file>",
		Short: "Run the allocation locally and print the schedule",
		Long: `Run the four allocation phases on an instance document: central planner,
exclusive users, per-request conflict resolution, consolidation.

The conflict phase calls the selected backend once per unresolved request:
"pydcop" runs the external solver, "local" solves in-process. With --watch the
instance is solved again every time the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			scfg := cfg.Solver
			if flags.Changed("backend") {
				scfg.Backend = backend
			}
			if flags.Changed("algo") {
				scfg.Algorithm = algorithm
			}
			if flags.Changed("solver-cmd") {
				scfg.Command = solverCmd
			}
			if flags.Changed("timeout") {
				scfg.Timeout = timeout
			}
			if flags.Changed("keep-artifacts") {
				scfg.KeepArtifacts = keepArtifacts
			}

			sv, err := solver.NewDefaultRegistry(scfg, logger).Get(scfg.Backend)
			if err != nil {
				return err
			}
			acfg := allocator.ConfigFrom(cfg)
			acfg.Algorithm = scfg.Algorithm
			if flags.Changed("central-planner") {
				acfg.CentralPlanner = centralPlanner
			}
			alloc := allocator.New(sv, acfg, logger)

			solveFile := func(ctx context.Context, path string) error {
				inst, err := loadInstance(path)
				if err != nil {
					return err
				}
				res, err := alloc.Solve(ctx, inst)
				if err != nil {
					return err
				}
				data, err := parser.Encode(report{
					Instance:  path,
					Backend:   sv.Name(),
					Algorithm: acfg.Algorithm,
					RunID:     res.RunID,
					Schedule:  res.Assignments.Sorted(),
					Stats:     res.Stats,
				}, parser.Format(format))
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := solveFile(ctx, args[0]); err != nil {
				if !watchFile {
					return err
				}
				logger.Warn("initial solve failed", "error", err)
			}
			if !watchFile {
				return nil
			}

			w, err := watch.New(args[0], 0, solveFile, logger)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&backend, "backend", "", "Solver backend: pydcop or local (default from config: pydcop)")
	f.StringVar(&algorithm, "algo", "", "Solver algorithm (default from config: dpop)")
	f.StringVar(&solverCmd, "solver-cmd", "", "pydcop executable")
	f.DurationVar(&timeout, "timeout", 0, "Deadline per solver invocation")
	f.BoolVar(&keepArtifacts, "keep-artifacts", false, "Keep problem.yaml and result.json of each invocation")
	f.StringVar(&centralPlanner, "central-planner", "", "Central planner user id")
	f.StringVarP(&format, "output", "o", "yaml", "Output format (yaml, json)")
	f.BoolVarP(&watchFile, "watch", "w", false, "Re-solve whenever the instance file changes")

	return cmd
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
