// Package hookio implements the wire protocol between the assistant host
// and the hook handler: JSON events on stdin, JSON responses on stdout.
package hookio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Event names as delivered in hook_event_name.
const (
	EventSessionStart     = "SessionStart"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventStop             = "Stop"
	EventSessionEnd       = "SessionEnd"
)

// SessionStart sources.
const (
	SourceStartup = "startup"
	SourceResume  = "resume"
	SourceClear   = "clear"
	SourceCompact = "compact"
)

// SessionEnd reasons.
const (
	ReasonClear  = "clear"
	ReasonLogout = "logout"
	ReasonExit   = "prompt_input_exit"
	ReasonOther  = "other"
)

// ErrMalformed is returned when stdin does not contain a decodable event
// or a required field is missing.
var ErrMalformed = errors.New("malformed hook event")

// ErrUnsupportedEvent is returned when the payload names an event this
// handler does not process.
var ErrUnsupportedEvent = errors.New("unsupported hook event")

// Input is the JSON payload the host writes to the hook's stdin.
// All events carry the common fields; Source and Reason are event-specific.
type Input struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	CWD            string `json:"cwd,omitempty"`
	HookEventName  string `json:"hook_event_name,omitempty"`

	// Source is set for SessionStart: startup, resume, clear, or compact.
	Source string `json:"source,omitempty"`

	// Reason is set for SessionEnd: clear, logout, prompt_input_exit, or other.
	Reason string `json:"reason,omitempty"`
}

// Output is the JSON response written to stdout for the host to display.
type Output struct {
	SystemMessage  string `json:"systemMessage,omitempty"`
	SuppressOutput bool   `json:"suppressOutput,omitempty"`
}

// knownEvents is the set of events this handler processes.
var knownEvents = map[string]bool{
	EventSessionStart:     true,
	EventUserPromptSubmit: true,
	EventStop:             true,
	EventSessionEnd:       true,
}

// ParseInput reads and decodes a hook event, checking it against the event
// the subcommand was registered for. A payload whose hook_event_name names
// a different known event is still accepted (the subcommand is
// authoritative); an unknown name fails with ErrUnsupportedEvent.
func ParseInput(r io.Reader, expectedEvent string) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read input: %v", ErrMalformed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrMalformed, err)
	}

	if input.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrMalformed)
	}
	if input.HookEventName != "" && !knownEvents[input.HookEventName] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, input.HookEventName)
	}
	if input.HookEventName == "" {
		input.HookEventName = expectedEvent
	}

	return &input, nil
}

// WriteOutput encodes a hook response to w. A zero-value output writes
// nothing so the host sees clean stdout.
func WriteOutput(w io.Writer, out Output) error {
	if out == (Output{}) {
		return nil
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write hook output: %w", err)
	}
	return nil
}
