package lifecycle

import (
	"context"
	"fmt"
	"time"

	"tributary.dev/cli/cmd/tributary/cli/gitinspect"
	"tributary.dev/cli/cmd/tributary/cli/ledger"
)

// Inspector is the read-only repository contract the Machine depends on.
// gitinspect.Inspector satisfies it; tests substitute a fake so transitions
// can be exercised without a real repository.
type Inspector interface {
	Head() (string, error)
	WorkingTreeChanges() ([]gitinspect.FileChange, error)
	CommitsSince(baseline string) ([]gitinspect.Commit, error)
	CommitTouches(hash string) ([]string, error)
}

// EventInput carries the event-specific fields the Machine needs.
type EventInput struct {
	SessionID string

	// Source is the SessionStart source (startup, resume, clear, compact).
	Source string

	// Reason is the SessionEnd reason.
	Reason string
}

// Result reports what handling an event did.
type Result struct {
	// Ledger is the state after the event, nil when the event was
	// rejected before a ledger existed.
	Ledger *ledger.Ledger

	// Summary is set when the transition asked for one (Stop redelivery
	// on an ended session, SessionEnd).
	Summary *ledger.Summary

	// Created is true when this event created the ledger.
	Created bool

	// Rejected is true for events that arrived in a state that cannot
	// accept them. The caller logs Reason and ignores the event.
	Rejected bool
	Reason   string
}

// Machine applies lifecycle events to session ledgers.
//
// All mutation happens inside the ledger lock, and the persisted state is
// re-read after acquisition, so concurrent invocations for the same
// session always build on the latest durable ledger.
type Machine struct {
	Store     *ledger.Store
	Inspector Inspector

	// RepoRoot is recorded into new ledgers.
	RepoRoot string

	// Now is the clock, replaceable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// HandleEvent processes one lifecycle event under the session's ledger
// lock. Returns ledger.ErrBusy if the lock cannot be acquired in time and
// ledger.ErrCorrupt if the ledger file exists but cannot be decoded.
func (m *Machine) HandleEvent(ctx context.Context, event Event, input EventInput) (*Result, error) {
	var result *Result

	err := m.Store.WithLock(input.SessionID, func() error {
		// Re-read under the lock: another invocation may have saved since
		// this process started.
		current, err := m.Store.Load(ctx, input.SessionID)
		if err != nil {
			return err
		}

		var state ledger.State
		if current != nil {
			state = current.State
		}

		decision := Transition(state, current != nil, event)

		switch decision.Outcome {
		case OutcomeReject:
			result = &Result{Ledger: current, Rejected: true, Reason: decision.Reason}
			return nil
		case OutcomeNoop:
			result = &Result{Ledger: current}
			if current != nil && hasAction(decision.Actions, ActionEmitSummary) {
				s := current.Summary
				result.Summary = &s
			}
			return nil
		case OutcomeApply:
		}

		updated, summary, err := m.apply(current, decision.Actions, input)
		if err != nil {
			return err
		}

		updated.Touch(m.now())
		if err := m.Store.Save(ctx, updated); err != nil {
			return err
		}

		result = &Result{
			Ledger:  updated,
			Summary: summary,
			Created: current == nil && hasAction(decision.Actions, ActionCreateLedger),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// apply executes the declared actions against the ledger and inspector.
func (m *Machine) apply(l *ledger.Ledger, actions []Action, input EventInput) (*ledger.Ledger, *ledger.Summary, error) {
	now := m.now()
	var summary *ledger.Summary

	for _, action := range actions {
		switch action {
		case ActionCreateLedger:
			head, err := m.Inspector.Head()
			if err != nil {
				return nil, nil, fmt.Errorf("repository query failed: %w", err)
			}
			l = ledger.New(input.SessionID, m.RepoRoot, head, input.Source, now)

		case ActionMergeWorkingTree:
			changes, err := m.Inspector.WorkingTreeChanges()
			if err != nil {
				return nil, nil, fmt.Errorf("repository query failed: %w", err)
			}
			for _, ch := range changes {
				// Deleted and binary files carry no ranges; the touched
				// path is still recorded.
				l.RecordFile(ch.Path, ch.Ranges, now)
			}

		case ActionAttributeCommits:
			commits, err := m.Inspector.CommitsSince(l.BaselineCommit)
			if err != nil {
				return nil, nil, fmt.Errorf("repository query failed: %w", err)
			}
			// Oldest first, so a path touched by several session commits
			// ends up bound to the latest one.
			for _, c := range commits {
				touched, err := m.Inspector.CommitTouches(c.Hash)
				if err != nil {
					return nil, nil, fmt.Errorf("repository query failed: %w", err)
				}
				l.AttributeCommit(c.Hash, touched, now)
			}

		case ActionMarkStopped:
			l.State = ledger.StateStopped
			t := now
			l.StoppedAt = &t

		case ActionMarkEnded:
			if l.State == ledger.StateActive {
				t := now
				l.StoppedAt = &t
			}
			l.State = ledger.StateEnded
			t := now
			l.EndedAt = &t
			if input.Reason != "" {
				l.EndReason = input.Reason
			}

		case ActionEmitSummary:
			l.Recompute()
			s := l.Summary
			summary = &s

		case ActionRefreshTimestamp:
			// Touch before save covers this.
		}
	}

	return l, summary, nil
}

func hasAction(actions []Action, want Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
