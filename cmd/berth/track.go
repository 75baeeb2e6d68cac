package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xraph/berth/container"
)

func newTrackCmd(c *cli) *cobra.Command {
	var operation string

	cmd := &cobra.Command{
		Use:   "track [container]",
		Short: "Look up one container directly",
		Example: `  berth track MSDU1234567
  berth track msdu-123 4567 --operation get_location`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := container.ParseOperation(operation)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			eng, err := c.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(context.WithoutCancel(ctx))

			res, err := eng.Track(ctx, joinID(args), op)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.OK() {
				return fmt.Errorf("run %s failed: %s", res.WorkflowID, res.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "o", string(container.OpFullInfo),
		"one of get_full_info, check_availability, get_location, check_holds, get_lfd")
	return cmd
}

// joinID rejoins a container id split by the shell, e.g. "MSDU 1234567".
func joinID(args []string) string { return strings.Join(args, "") }
