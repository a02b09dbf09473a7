package cli

import (
	"fmt"

	"github.com/machinae/procveil/internal/enforce"
	"github.com/machinae/procveil/internal/promise"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	flags := &restrictionFlags{}

	cmd := &cobra.Command{
		Use:   "check [flags] operation [path]",
		Short: "Evaluate one operation against a restriction without performing it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := promise.ParseOp(args[0])
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}

			r, err := flags.build(cmd, nil)
			if err != nil {
				return err
			}

			hook := enforce.NewHook(r.state, r.graph)
			fmt.Fprintln(cmd.OutOrStdout(), hook.Check(op, path))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
