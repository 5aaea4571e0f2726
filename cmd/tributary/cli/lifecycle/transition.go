// Package lifecycle drives session ledgers through their states in
// response to host events.
//
// The transition table is a pure function so it can be tested exhaustively
// without a repository or a filesystem; the Machine executes the declared
// actions against real stores and inspectors.
package lifecycle

import (
	"fmt"

	"tributary.dev/cli/cmd/tributary/cli/ledger"
)

// Event represents a lifecycle event delivered by the host.
type Event int

const (
	EventSessionStart     Event = iota // Session began (startup, resume, clear, compact)
	EventUserPromptSubmit              // User submitted a prompt
	EventStop                          // Assistant finished responding
	EventSessionEnd                    // Session terminated
)

// allEvents is the canonical list of events for enumeration.
var allEvents = []Event{EventSessionStart, EventUserPromptSubmit, EventStop, EventSessionEnd}

// String returns a human-readable name for the event.
func (e Event) String() string {
	switch e {
	case EventSessionStart:
		return "SessionStart"
	case EventUserPromptSubmit:
		return "UserPromptSubmit"
	case EventStop:
		return "Stop"
	case EventSessionEnd:
		return "SessionEnd"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Action is a side effect the Machine must perform after a transition.
// The transition table only declares them.
type Action int

const (
	ActionCreateLedger     Action = iota // Create a fresh Active ledger with a baseline snapshot
	ActionRefreshTimestamp               // Touch the ledger's updated_at
	ActionMergeWorkingTree               // Merge working-tree changes into the ledger
	ActionAttributeCommits               // Record commits landed since the baseline
	ActionMarkStopped                    // Move the ledger to Stopped
	ActionMarkEnded                      // Move the ledger to Ended and record the reason
	ActionEmitSummary                    // Include the attribution summary in the response
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionCreateLedger:
		return "CreateLedger"
	case ActionRefreshTimestamp:
		return "RefreshTimestamp"
	case ActionMergeWorkingTree:
		return "MergeWorkingTree"
	case ActionAttributeCommits:
		return "AttributeCommits"
	case ActionMarkStopped:
		return "MarkStopped"
	case ActionMarkEnded:
		return "MarkEnded"
	case ActionEmitSummary:
		return "EmitSummary"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Outcome classifies a transition decision.
type Outcome int

const (
	// OutcomeApply means the actions must run and the ledger is saved.
	OutcomeApply Outcome = iota

	// OutcomeNoop means the event is an idempotent redelivery. Nothing is
	// written; any declared actions (e.g. summary emission) are read-only.
	OutcomeNoop

	// OutcomeReject means the event arrived in a state that cannot accept
	// it. The event is logged and ignored so the host is never crashed by
	// a stray delivery; the ledger is unchanged.
	OutcomeReject
)

// Decision is the outcome of the transition table for one event.
type Decision struct {
	Outcome Outcome
	Actions []Action

	// Reason explains a rejection for logging.
	Reason string
}

// Transition computes what an event does to a ledger in the given state.
// exists is false when no ledger has been created for the session yet, in
// which case state is ignored. Pure function, no side effects.
func Transition(state ledger.State, exists bool, event Event) Decision {
	if !exists {
		if event == EventSessionStart {
			return Decision{Outcome: OutcomeApply, Actions: []Action{ActionCreateLedger}}
		}
		return Decision{
			Outcome: OutcomeReject,
			Reason:  fmt.Sprintf("%s delivered before SessionStart", event),
		}
	}

	switch state {
	case ledger.StateActive:
		return transitionFromActive(event)
	case ledger.StateStopped:
		return transitionFromStopped(event)
	case ledger.StateEnded:
		// Terminal: everything is an idempotent no-op that reports the
		// last known summary.
		return Decision{Outcome: OutcomeNoop, Actions: []Action{ActionEmitSummary}}
	default:
		return Decision{
			Outcome: OutcomeReject,
			Reason:  fmt.Sprintf("ledger in unknown state %q", state),
		}
	}
}

func transitionFromActive(event Event) Decision {
	switch event {
	case EventSessionStart:
		// Redelivery of the start event: refresh the timestamp only.
		return Decision{Outcome: OutcomeApply, Actions: []Action{ActionRefreshTimestamp}}
	case EventUserPromptSubmit:
		return Decision{Outcome: OutcomeApply, Actions: []Action{ActionMergeWorkingTree, ActionRefreshTimestamp}}
	case EventStop:
		return Decision{Outcome: OutcomeApply, Actions: []Action{
			ActionMergeWorkingTree,
			ActionAttributeCommits,
			ActionMarkStopped,
			ActionRefreshTimestamp,
		}}
	case EventSessionEnd:
		// Stop was never delivered; take its snapshot before ending.
		return Decision{Outcome: OutcomeApply, Actions: []Action{
			ActionMergeWorkingTree,
			ActionAttributeCommits,
			ActionMarkEnded,
			ActionRefreshTimestamp,
			ActionEmitSummary,
		}}
	default:
		return Decision{Outcome: OutcomeReject, Reason: fmt.Sprintf("unknown event %d", int(event))}
	}
}

func transitionFromStopped(event Event) Decision {
	switch event {
	case EventSessionStart:
		// A resumed host process may redeliver its start event. The state
		// stays Stopped; moving back to Active would break monotonicity.
		return Decision{Outcome: OutcomeApply, Actions: []Action{ActionRefreshTimestamp}}
	case EventUserPromptSubmit:
		return Decision{
			Outcome: OutcomeReject,
			Reason:  "UserPromptSubmit on a stopped session",
		}
	case EventStop:
		// Duplicate delivery of the stop event.
		return Decision{Outcome: OutcomeNoop}
	case EventSessionEnd:
		return Decision{Outcome: OutcomeApply, Actions: []Action{
			ActionMarkEnded,
			ActionRefreshTimestamp,
			ActionEmitSummary,
		}}
	default:
		return Decision{Outcome: OutcomeReject, Reason: fmt.Sprintf("unknown event %d", int(event))}
	}
}
