package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/machinae/procveil/internal/enforce"
	"github.com/machinae/procveil/internal/logging"
	"github.com/machinae/procveil/internal/sandbox"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	flags := &restrictionFlags{}
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Apply restrictions, then replace the process with a command",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := flags.build(cmd, args)
			if err != nil {
				return err
			}
			if err := requireCommand(r); err != nil {
				return err
			}

			if dryRun {
				printRestriction(cmd, r)
				return nil
			}

			active, engaged := r.state.Snapshot()
			logging.Logger().Info("applying restrictions",
				"engaged", engaged,
				"active", active.String(),
				"armed", r.graph.Armed(),
				"locked", r.graph.Locked(),
				"kernel_backend", sandbox.Supported(),
			)
			if err := sandbox.Apply(r.state, r.graph); err != nil {
				return err
			}

			target, err := exec.LookPath(r.command[0])
			if err != nil {
				return fmt.Errorf("look up %q: %w", r.command[0], err)
			}
			env := os.Environ()
			if postExec, ok := r.state.PostExec(); ok {
				env = sandbox.MarkEnv(env, postExec)
			}

			hook := enforce.NewHook(r.state, r.graph)
			// Only returns on failure; on success the image is replaced.
			return hook.Exec(target, r.command, env)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the resolved restriction state without executing")
	return cmd
}

func printRestriction(cmd *cobra.Command, r *restriction) {
	out := cmd.OutOrStdout()
	active, engaged := r.state.Snapshot()
	postExec, execEngaged := r.state.PostExec()
	fmt.Fprintf(out, "engaged: %v\n", engaged)
	fmt.Fprintf(out, "promises: %q\n", active.String())
	if execEngaged {
		fmt.Fprintf(out, "exec promises: %q\n", postExec.String())
	}
	fmt.Fprintf(out, "armed: %v\n", r.graph.Armed())
	fmt.Fprintf(out, "locked: %v\n", r.graph.Locked())
	for _, entry := range r.graph.Entries() {
		fmt.Fprintf(out, "unveil: %s:%s\n", entry.Prefix, entry.Modes)
	}
	fmt.Fprintf(out, "command: %v\n", r.command)
}
