package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xraph/berth/agent"
)

func newQueryCmd(c *cli) *cobra.Command {
	var (
		asJSON bool
		stream bool
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a natural-language question about a container",
		Example: `  berth query "Is MSDU1234567 available for pickup?"
  berth query --json "What is the last free day for MSDU1234567?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := c.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(context.WithoutCancel(ctx))

			q := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			var ans *agent.Answer
			if stream {
				ans, err = eng.AnswerStream(ctx, q, func(p agent.Progress) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s: %s\n", p.Percent, p.Step, p.Message)
				})
			} else {
				ans, err = eng.Answer(ctx, q)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}
			fmt.Fprintln(out, ans.Record.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full answer as JSON")
	cmd.Flags().BoolVar(&stream, "stream", false, "report progress while answering")
	return cmd
}
