package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/satalloc/pkg/model"
)

func newSubmitCmd() *cobra.Command {
	var name, backend, algorithm string
	var solve bool

	cmd := &cobra.Command{
		Use:   "submit <instance-file>",
		Short: "Upload an instance to the server, optionally solving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read instance: %w", err)
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			resp, err := client.Post(ctx, "/api/v1/instances/", map[string]any{
				"name":     name,
				"document": string(data),
			})
			if err != nil {
				return fmt.Errorf("create instance: %w", err)
			}
			var rec model.InstanceRecord
			if err := json.Unmarshal(resp.Data, &rec); err != nil {
				return fmt.Errorf("parse instance response: %w", err)
			}
			fmt.Fprintf(out, "Instance registered: %s (%d satellites, %d users, %d requests)\n",
				rec.ID, rec.Satellites, rec.Users, rec.Requests)

			if !solve {
				return nil
			}

			resp, err = client.Post(ctx, "/api/v1/instances/"+rec.ID+"/solve", map[string]any{
				"backend":   backend,
				"algorithm": algorithm,
			})
			if err != nil {
				return fmt.Errorf("solve instance: %w", err)
			}
			var result struct {
				Backend   string             `json:"backend"`
				Algorithm string             `json:"algorithm"`
				Schedule  []model.Assignment `json:"schedule"`
				Result    struct {
					RunID string `json:"run_id"`
					Stats struct {
						Unresolved []string `json:"unresolved"`
					} `json:"stats"`
				} `json:"result"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("parse solve response: %w", err)
			}
			fmt.Fprintf(out, "Run %s (%s/%s): %d assigned, %d unresolved\n",
				result.Result.RunID, result.Backend, result.Algorithm,
				len(result.Schedule), len(result.Result.Stats.Unresolved))
			printSchedule(out, result.Schedule)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Instance name (default: file name)")
	cmd.Flags().BoolVar(&solve, "solve", false, "Solve the instance after uploading")
	cmd.Flags().StringVar(&backend, "backend", "", "Solver backend (default: server's)")
	cmd.Flags().StringVar(&algorithm, "algo", "", "Solver algorithm (default: server's)")

	return cmd
}

func printSchedule(out io.Writer, schedule []model.Assignment) {
	if len(schedule) == 0 {
		return
	}
	fmt.Fprintf(out, "%-16s  %-16s  %-16s  %-20s  %10s  %10s\n", "SATELLITE", "OPPORTUNITY", "REQUEST", "AGENT", "START", "END")
	for _, a := range schedule {
		fmt.Fprintf(out, "%-16s  %-16s  %-16s  %-20s  %10.3f  %10.3f\n",
			a.SatelliteID, a.OpportunityID, a.RequestID, a.AgentID, a.Start, a.End())
	}
}
