// Package cli implements the satalloc command line: local generation,
// validation and solving, plus a client for the allocation server.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagConfig    string

	cfg    config.Config
	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking SATALLOC_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("SATALLOC_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the satalloc CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "satalloc",
		Short: "satalloc allocates satellite observation time slots",
		Long: "satalloc schedules observation requests on shared satellites: the central planner first,\n" +
			"then each exclusive user, then a constraint solver for the remaining conflicts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)

			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			cfg = loaded
			client = NewClient(flagServer, logger)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "satalloc server URL (or SATALLOC_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (solver and allocator sections)")

	root.AddCommand(
		newGenerateCmd(),
		newValidateCmd(),
		newSolveCmd(),
		newSubmitCmd(),
		newInstancesCmd(),
	)

	return root
}
