package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/satalloc/internal/generator"
	"github.com/me/satalloc/internal/parser"
)

func newGenerateCmd() *cobra.Command {
	gen := generator.DefaultConfig()
	var outPath, format string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random instance document",
		Long: `Generate satellites, exclusive users with non-overlapping windows, and
requests with candidate opportunities. The same --seed always produces the
same instance; without it the current time is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				gen.Seed = uint64(time.Now().UnixNano())
			}
			g, err := generator.New(gen)
			if err != nil {
				return fmt.Errorf("generator: %w", err)
			}
			inst := g.Generate()
			logger.Info("instance generated", "seed", gen.Seed, "summary", inst.Summary())

			data, err := parser.Encode(inst, parser.Format(format))
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Instance written: %s (%s)\n", outPath, inst.Summary())
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&gen.Satellites, "satellites", gen.Satellites, "Number of satellites")
	f.IntVar(&gen.ExclusiveUsers, "exclusive-users", gen.ExclusiveUsers, "Number of exclusive users (at most --satellites)")
	f.IntVar(&gen.TasksPerUser, "tasks-per-user", gen.TasksPerUser, "Requests per exclusive user")
	f.IntVar(&gen.Capacity, "capacity", gen.Capacity, "Satellite capacity")
	f.Float64Var(&gen.TransitionTime, "transition-time", gen.TransitionTime, "Satellite transition time")
	f.Float64Var(&gen.Horizon, "horizon", gen.Horizon, "Planning horizon")
	f.IntVar(&gen.WindowsPerSat, "windows", gen.WindowsPerSat, "Exclusive windows per satellite")
	f.IntVar(&gen.OppsPerRequest, "opportunities", gen.OppsPerRequest, "Opportunities per request")
	f.Float64Var(&gen.Duration, "duration", gen.Duration, "Observation duration")
	f.StringVar(&gen.CentralPlanner, "central-planner", gen.CentralPlanner, "Central planner user id")
	f.Uint64Var(&gen.Seed, "seed", 0, "Random seed")
	f.StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	f.StringVar(&format, "format", "yaml", "Output format (yaml, json)")

	return cmd
}
