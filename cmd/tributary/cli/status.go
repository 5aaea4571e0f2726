package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tributary.dev/cli/cmd/tributary/cli/claudecode"
	"tributary.dev/cli/cmd/tributary/cli/ledger"
	"tributary.dev/cli/cmd/tributary/cli/paths"
	"tributary.dev/cli/cmd/tributary/cli/settings"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the attribution setup for this repository",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	repoRoot, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not inside a git repository")
	}

	w := cmd.OutOrStdout()

	cfg, err := settings.Load(repoRoot)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Repository: %s\n", repoRoot)
	if cfg.Enabled {
		fmt.Fprintln(w, "Enabled:    yes")
	} else {
		fmt.Fprintln(w, "Enabled:    no (run 'tributary enable')")
	}
	if claudecode.AreHooksInstalled(repoRoot) {
		fmt.Fprintln(w, "Hooks:      installed")
	} else {
		fmt.Fprintln(w, "Hooks:      not installed")
	}

	store, err := ledger.NewStore(repoRoot)
	if err != nil {
		return err
	}
	ledgers, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	var active, stopped, ended int
	for _, l := range ledgers {
		switch l.State {
		case ledger.StateActive:
			active++
		case ledger.StateStopped:
			stopped++
		case ledger.StateEnded:
			ended++
		}
	}
	fmt.Fprintf(w, "Sessions:   %d (%d active, %d stopped, %d ended)\n", len(ledgers), active, stopped, ended)

	return nil
}
