package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tributary.dev/cli/cmd/tributary/cli/gitinspect"
	"tributary.dev/cli/cmd/tributary/cli/hookio"
	"tributary.dev/cli/cmd/tributary/cli/ledger"
	"tributary.dev/cli/cmd/tributary/cli/lifecycle"
	"tributary.dev/cli/cmd/tributary/cli/logging"
	"tributary.dev/cli/cmd/tributary/cli/settings"
)

// handleHookEvent is the shared entry point for all lifecycle hook
// subcommands. It parses the event from stdin, resolves the repository,
// runs the state machine, and writes the host-facing response.
//
// Exit policy: 0 for success and for rejected transitions (logged and
// ignored so a stray delivery never breaks the host's pipeline),
// ExitCodeBusy when the ledger lock timed out (retryable), non-zero
// otherwise.
func handleHookEvent(cmd *cobra.Command, event lifecycle.Event, eventName string) error {
	start := time.Now()

	input, err := hookio.ParseInput(cmd.InOrStdin(), eventName)
	if err != nil {
		return fmt.Errorf("failed to parse hook input: %w", err)
	}

	// The event's cwd locates the repository; hooks may run from a
	// subdirectory of the work tree.
	dir := input.CWD
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	insp, err := gitinspect.Open(dir)
	if err != nil {
		return err
	}
	repoRoot := insp.Root()

	cfg, err := settings.Load(repoRoot)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !cfg.Enabled {
		// Disabled repositories get silent, stateless hooks.
		return nil
	}

	logging.SetLogLevelGetter(func() string { return cfg.LogLevel })
	if err := logging.Init(repoRoot, input.SessionID); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	ctx := logging.WithEvent(logging.WithComponent(cmd.Context(), "hooks"), eventName)
	ctx = logging.WithSession(ctx, input.SessionID)
	logging.Info(ctx, "hook invoked",
		slog.String("repo_root", repoRoot),
		slog.String("source", input.Source),
		slog.String("reason", input.Reason),
	)
	defer logging.LogDuration(ctx, slog.LevelDebug, "hook finished", start)

	store, err := ledger.NewStore(repoRoot)
	if err != nil {
		return err
	}

	machine := &lifecycle.Machine{
		Store:     store,
		Inspector: insp,
		RepoRoot:  repoRoot,
	}

	result, err := machine.HandleEvent(ctx, event, lifecycle.EventInput{
		SessionID: input.SessionID,
		Source:    input.Source,
		Reason:    input.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrBusy):
			return NewExitCodeError(ExitCodeBusy, err)
		case errors.Is(err, ledger.ErrCorrupt):
			fmt.Fprintf(os.Stderr, "tributary: %v\n", err)
			fmt.Fprintf(os.Stderr, "The ledger file was not modified. Inspect or remove it manually to recover.\n")
			return NewSilentError(err)
		default:
			logging.Error(ctx, "hook failed", slog.String("error", err.Error()))
			return err
		}
	}

	if result.Rejected {
		// Invalid transition: log and ignore rather than crashing the host.
		logging.Warn(ctx, "event ignored", slog.String("rejection", result.Reason))
		return nil
	}

	out := buildHookOutput(ctx, event, insp, cfg, store, result)
	if err := hookio.WriteOutput(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	logging.Info(ctx, "hook handled",
		slog.String("state", string(result.Ledger.State)),
		slog.Int("entries", len(result.Ledger.Entries)),
	)
	return nil
}

// buildHookOutput assembles the host-facing response for a handled event.
func buildHookOutput(ctx context.Context, event lifecycle.Event, insp *gitinspect.Inspector, cfg *settings.Settings, store *ledger.Store, result *lifecycle.Result) hookio.Output {
	var out hookio.Output

	if event == lifecycle.EventSessionStart && result.Created {
		if msg := sessionStartWarnings(ctx, insp, cfg, store, result.Ledger.SessionID); msg != "" {
			out.SystemMessage = msg
		}
	}

	if result.Summary != nil {
		line := formatSummary(*result.Summary)
		if out.SystemMessage != "" {
			out.SystemMessage += "\n" + line
		} else {
			out.SystemMessage = line
		}
	}

	return out
}

// sessionStartWarnings checks the conditions worth surfacing when a new
// session begins: working on a protected branch, starting with uncommitted
// changes that will be attributed to this session, or other sessions still
// active in the same repository.
func sessionStartWarnings(ctx context.Context, insp *gitinspect.Inspector, cfg *settings.Settings, store *ledger.Store, sessionID string) string {
	var warnings []string

	if branch, err := insp.Branch(); err == nil && branch != "" && cfg.ShouldWarnBranch(branch) {
		warnings = append(warnings, fmt.Sprintf("Warning: session started on branch %q.", branch))
	}

	if cfg.ShouldWarnUncommitted() {
		if dirty, err := insp.HasUncommittedChanges(); err == nil && dirty {
			warnings = append(warnings, "Warning: the working tree has uncommitted changes; they will be attributed to this session.")
		}
	}

	if n := otherActiveSessions(ctx, store, sessionID); n > 0 {
		warnings = append(warnings, fmt.Sprintf("Note: %d other active session(s) in this repository; overlapping edits are attributed to every session that observes them.", n))
	}

	return strings.Join(warnings, "\n")
}

// otherActiveSessions counts active ledgers other than the given session.
// Failures count as zero; the hint is best-effort.
func otherActiveSessions(ctx context.Context, store *ledger.Store, sessionID string) int {
	ledgers, err := store.List(ctx)
	if err != nil {
		return 0
	}
	n := 0
	for _, l := range ledgers {
		if l.SessionID != sessionID && l.State == ledger.StateActive {
			n++
		}
	}
	return n
}

// formatSummary renders the final attribution summary for the host.
func formatSummary(s ledger.Summary) string {
	return fmt.Sprintf("Session attribution: %d file(s), %d line(s), %d commit(s).", s.Files, s.Lines, s.Commits)
}
