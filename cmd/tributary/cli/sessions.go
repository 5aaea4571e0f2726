package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"tributary.dev/cli/cmd/tributary/cli/ledger"
	"tributary.dev/cli/cmd/tributary/cli/paths"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect recorded session attributions",
		RunE:  runSessionsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the full attribution record for one session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsShow,
	})

	return cmd
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	ledgers, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(ledgers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	sort.Slice(ledgers, func(a, b int) bool {
		return ledgers[a].StartedAt.After(ledgers[b].StartedAt)
	})

	w := cmd.OutOrStdout()
	for _, l := range ledgers {
		fmt.Fprintf(w, "%s  %-7s  started %s  %d file(s), %d line(s), %d commit(s)\n",
			l.SessionID,
			l.State,
			l.StartedAt.Local().Format(time.DateTime),
			l.Summary.Files, l.Summary.Lines, l.Summary.Commits,
		)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	l, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("no ledger for session %q", args[0])
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Session:  %s\n", l.SessionID)
	fmt.Fprintf(w, "State:    %s\n", l.State)
	fmt.Fprintf(w, "Started:  %s", l.StartedAt.Local().Format(time.DateTime))
	if l.StartSource != "" {
		fmt.Fprintf(w, " (%s)", l.StartSource)
	}
	fmt.Fprintln(w)
	if l.EndedAt != nil {
		fmt.Fprintf(w, "Ended:    %s", l.EndedAt.Local().Format(time.DateTime))
		if l.EndReason != "" {
			fmt.Fprintf(w, " (%s)", l.EndReason)
		}
		fmt.Fprintln(w)
	}
	if l.BaselineCommit != "" {
		fmt.Fprintf(w, "Baseline: %s\n", l.BaselineCommit)
	}

	if len(l.Entries) == 0 {
		fmt.Fprintln(w, "\nNo changes attributed.")
		return nil
	}

	fmt.Fprintln(w, "\nEntries:")
	for _, e := range l.Entries {
		fmt.Fprintf(w, "  %s", e.Path)
		for i, r := range e.LineRanges {
			if i == 0 {
				fmt.Fprint(w, "  lines ")
			} else {
				fmt.Fprint(w, ", ")
			}
			if r.Start == r.End {
				fmt.Fprintf(w, "%d", r.Start)
			} else {
				fmt.Fprintf(w, "%d-%d", r.Start, r.End)
			}
		}
		if e.CommitRef != "" {
			ref := e.CommitRef
			if len(ref) > 8 {
				ref = ref[:8]
			}
			fmt.Fprintf(w, "  (commit %s)", ref)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nTotal: %d file(s), %d line(s), %d commit(s)\n",
		l.Summary.Files, l.Summary.Lines, l.Summary.Commits)
	return nil
}

func openStore() (*ledger.Store, error) {
	repoRoot, err := paths.RepoRoot()
	if err != nil {
		return nil, errors.New("not inside a git repository")
	}
	return ledger.NewStore(repoRoot)
}
