package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/satalloc/pkg/model"
)

func newInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Manage instances catalogued on the server",
	}
	cmd.AddCommand(newInstancesListCmd(), newInstancesGetCmd(), newInstancesDeleteCmd())
	return cmd
}

func newInstancesListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := "/api/v1/instances/?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
			resp, err := client.Get(commandContext(cmd), path)
			if err != nil {
				return fmt.Errorf("list instances: %w", err)
			}

			var data []model.InstanceRecord
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			if len(data) == 0 {
				fmt.Fprintln(out, "No instances found.")
				return nil
			}

			fmt.Fprintf(out, "%-42s  %-24s  %4s  %5s  %8s  %s\n", "ID", "NAME", "SATS", "USERS", "REQUESTS", "CREATED")
			for _, rec := range data {
				fmt.Fprintf(out, "%-42s  %-24s  %4d  %5d  %8d  %s\n",
					rec.ID, rec.Name, rec.Satellites, rec.Users, rec.Requests, rec.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	return cmd
}

func newInstancesGetCmd() *cobra.Command {
	var showDocument bool

	cmd := &cobra.Command{
		Use:   "get <instance_id>",
		Short: "Show one catalogued instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			resp, err := client.Get(commandContext(cmd), "/api/v1/instances/"+args[0])
			if err != nil {
				return fmt.Errorf("get instance: %w", err)
			}
			var rec model.InstanceRecord
			if err := json.Unmarshal(resp.Data, &rec); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Fprintf(out, "Instance: %s\n", rec.ID)
			fmt.Fprintf(out, "  Name:       %s\n", rec.Name)
			fmt.Fprintf(out, "  Hash:       %s\n", rec.ContentHash)
			fmt.Fprintf(out, "  Satellites: %d\n", rec.Satellites)
			fmt.Fprintf(out, "  Users:      %d\n", rec.Users)
			fmt.Fprintf(out, "  Requests:   %d\n", rec.Requests)
			fmt.Fprintf(out, "  Created:    %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			if showDocument {
				fmt.Fprintf(out, "\n%s", rec.Document)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDocument, "document", false, "Print the stored document")
	return cmd
}

func newInstancesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <instance_id>",
		Short: "Remove an instance from the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete(commandContext(cmd), "/api/v1/instances/"+args[0]); err != nil {
				return fmt.Errorf("delete instance: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Instance deleted: %s\n", args[0])
			return nil
		},
	}
}
