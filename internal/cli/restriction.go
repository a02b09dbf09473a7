package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/machinae/procveil/internal/config"
	"github.com/machinae/procveil/internal/logging"
	"github.com/machinae/procveil/internal/promise"
	"github.com/machinae/procveil/internal/sandbox"
	"github.com/machinae/procveil/internal/unveil"
	"github.com/spf13/cobra"
)

// restrictionFlags are the flags shared by run and check.
type restrictionFlags struct {
	profilePath string
	pledge      string
	execPledge  string
	unveils     []string
	lock        bool
}

func (f *restrictionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.profilePath, "profile", "p", "", "path to a TOML restriction profile")
	cmd.Flags().StringVar(&f.pledge, "pledge", "", "space-separated promise classes for this process")
	cmd.Flags().StringVar(&f.execPledge, "exec-pledge", "", "space-separated promise classes active after exec")
	cmd.Flags().StringArrayVar(&f.unveils, "unveil", nil, "visible path as path:modes (modes from rwxc), repeatable")
	cmd.Flags().BoolVar(&f.lock, "lock", false, "lock the visibility graph after applying entries")
}

// restriction is the fully narrowed state a subcommand operates on.
type restriction struct {
	state   *promise.State
	graph   *unveil.Graph
	command []string
}

// build applies profile then flag narrowing in order. Flags narrow
// after the profile, so they can only tighten it further; any widening
// attempt surfaces as the pledge call's own configuration error.
func (f *restrictionFlags) build(cmd *cobra.Command, args []string) (*restriction, error) {
	state := promise.NewState()
	graph := unveil.NewGraph()

	// A cooperating parent image may have pledged on our behalf.
	if inherited, ok, err := sandbox.InheritedPromises(); err != nil {
		return nil, err
	} else if ok {
		promises := inherited.String()
		if err := state.Pledge(&promises, nil); err != nil {
			return nil, err
		}
		logging.Logger().Info("inherited promises", "active", promises)
	}

	command := args
	lock := f.lock
	if f.profilePath != "" {
		profile, err := config.Load(f.profilePath)
		if err != nil {
			return nil, err
		}
		if err := config.Validate(profile); err != nil {
			return nil, fmt.Errorf("profile %q: %w", f.profilePath, err)
		}
		level, err := profile.Level()
		if err != nil {
			return nil, err
		}
		logging.SetLevel(level)

		if err := state.Pledge(profile.Promises, profile.ExecPromises); err != nil {
			return nil, err
		}
		for _, rule := range profile.Unveil {
			if err := graph.Unveil(rule.Path, rule.Modes); err != nil {
				return nil, err
			}
		}
		lock = lock || profile.LockUnveil
		if len(command) == 0 && strings.TrimSpace(profile.Command) != "" {
			command, err = profile.SplitCommand()
			if err != nil {
				return nil, err
			}
		}
	}

	if cmd.Flags().Changed("pledge") {
		if err := state.Pledge(&f.pledge, nil); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("exec-pledge") {
		if err := state.Pledge(nil, &f.execPledge); err != nil {
			return nil, err
		}
	}
	for _, raw := range f.unveils {
		path, modes, err := splitUnveilFlag(raw)
		if err != nil {
			return nil, err
		}
		if err := graph.Unveil(path, modes); err != nil {
			return nil, err
		}
	}
	if lock {
		if err := graph.Block(); err != nil {
			return nil, err
		}
	}

	return &restriction{state: state, graph: graph, command: command}, nil
}

// splitUnveilFlag parses "path:modes". The split is on the last colon
// so paths containing colons stay intact.
func splitUnveilFlag(raw string) (string, string, error) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", fmt.Errorf("unveil flag %q: want path:modes", raw)
	}
	return raw[:idx], raw[idx+1:], nil
}

func requireCommand(r *restriction) error {
	if len(r.command) == 0 {
		return errors.New("command is required (pass it after --, or set command in the profile)")
	}
	return nil
}
