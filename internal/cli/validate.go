package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/satalloc/internal/parser"
	"github.com/me/satalloc/pkg/model"
)

// loadInstance parses and validates the document at path.
func loadInstance(path string) (*model.Instance, error) {
	inst, err := parser.New(logger).ParseFile(path)
	if err != nil {
		return nil, err
	}
	if apiErr := parser.NewValidator(logger).Validate(inst); apiErr != nil {
		return nil, apiErr
	}
	return inst, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <instance-file>",
		Short: "Check an instance document for errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			inst, err := loadInstance(args[0])

			var apiErr *model.APIError
			if errors.As(err, &apiErr) {
				fmt.Fprintf(out, "%s: %s\n", args[0], apiErr.Message)
				for _, d := range apiErr.Details {
					fmt.Fprintf(out, "  - %s: %s\n", d.Field, d.Message)
				}
				return fmt.Errorf("%d validation error(s)", len(apiErr.Details))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s: valid (%s)\n", args[0], inst.Summary())
			return nil
		},
	}
}
