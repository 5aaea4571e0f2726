// Package ledger persists per-session attribution records.
//
// Each assistant session gets one ledger file under the repository's git
// common dir. The ledger accumulates working-tree observations (file paths
// with line ranges) and commit refs across the session's lifecycle, and
// survives process restarts and host session resumption.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the lifecycle state of a session ledger.
type State string

const (
	// StateActive means the session is running and observations are expected.
	StateActive State = "active"

	// StateStopped means the assistant finished responding and the final
	// snapshot was taken. Only SessionEnd moves the ledger further.
	StateStopped State = "stopped"

	// StateEnded is terminal. No further transitions are valid.
	StateEnded State = "ended"
)

// LineRange is a 1-based inclusive range of lines within a file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of lines covered by the range.
func (r LineRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Entry is one attributed observation: a file with the line ranges the
// session touched.
type Entry struct {
	// Path is the repository-relative file path.
	Path string `json:"path"`

	// LineRanges holds the coalesced ranges attributed to the session.
	// Empty for binary and fully-deleted files.
	LineRanges []LineRange `json:"line_ranges,omitempty"`

	// CommitRef is the full hash of the commit that captured this change,
	// set once a session commit covers the path. Empty while the change is
	// working-tree-only.
	CommitRef string `json:"commit_ref,omitempty"`

	// ObservedAt is when this observation was recorded.
	ObservedAt time.Time `json:"observed_at"`

	// extra preserves entry fields written by newer versions, like the
	// ledger-level map.
	extra map[string]json.RawMessage
}

// knownEntryFields lists the entry JSON keys owned by this version.
var knownEntryFields = map[string]bool{
	"path":        true,
	"line_ranges": true,
	"commit_ref":  true,
	"observed_at": true,
}

// entryAlias avoids recursion in the custom JSON methods.
type entryAlias Entry

// UnmarshalJSON decodes the known entry fields and stashes unknown ones.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var alias entryAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownEntryFields[key] {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*e = Entry(alias)
	e.extra = raw
	return nil
}

// MarshalJSON encodes the known entry fields and re-attaches any preserved
// unknown fields.
func (e Entry) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(entryAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range e.extra {
		if _, owned := merged[key]; owned {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Summary aggregates a ledger's entries for quick display.
type Summary struct {
	Files   int `json:"files"`
	Lines   int `json:"lines"`
	Commits int `json:"commits"`
}

// Ledger is the durable record for one assistant session.
// Stored as <sessions-dir>/<session-id>.json.
type Ledger struct {
	// SessionID is the host-assigned session identifier.
	SessionID string `json:"session_id"`

	// RepoRoot is the absolute repository root captured at session start.
	// It never changes for the life of the ledger.
	RepoRoot string `json:"repo_root"`

	// State is the current lifecycle state.
	State State `json:"state"`

	// BaselineCommit is HEAD when the session started. Empty on an
	// unborn branch.
	BaselineCommit string `json:"baseline_commit,omitempty"`

	// StartSource records how the session began (startup, resume, clear, compact).
	StartSource string `json:"start_source,omitempty"`

	// EndReason records why the session ended (clear, logout, exit, other).
	EndReason string `json:"end_reason,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// Entries is the accumulated attribution record.
	Entries []Entry `json:"entries,omitempty"`

	// Summary is recomputed on every save.
	Summary Summary `json:"summary"`

	// extra holds fields written by newer versions of the tool. They are
	// carried through load/save untouched so an older binary never strips
	// data it does not understand.
	extra map[string]json.RawMessage
}

// knownLedgerFields lists the JSON keys owned by this version. Anything
// else read from disk is preserved verbatim in extra.
var knownLedgerFields = map[string]bool{
	"session_id":      true,
	"repo_root":       true,
	"state":           true,
	"baseline_commit": true,
	"start_source":    true,
	"end_reason":      true,
	"started_at":      true,
	"updated_at":      true,
	"stopped_at":      true,
	"ended_at":        true,
	"entries":         true,
	"summary":         true,
}

// ledgerAlias avoids recursion in the custom JSON methods.
type ledgerAlias Ledger

// UnmarshalJSON decodes the known fields and stashes unknown ones.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var alias ledgerAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownLedgerFields[key] {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*l = Ledger(alias)
	l.extra = raw
	return nil
}

// MarshalJSON encodes the known fields and re-attaches any preserved
// unknown fields.
func (l Ledger) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(ledgerAlias(l))
	if err != nil {
		return nil, err
	}
	if len(l.extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range l.extra {
		if _, owned := merged[key]; owned {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// New creates an active ledger for a freshly started session.
func New(sessionID, repoRoot, baselineCommit, source string, now time.Time) *Ledger {
	return &Ledger{
		SessionID:      sessionID,
		RepoRoot:       repoRoot,
		State:          StateActive,
		BaselineCommit: baselineCommit,
		StartSource:    source,
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// RecordFile merges line ranges for a file into the ledger. Ranges for a
// path already present are unioned and coalesced, so re-observing the same
// change is idempotent.
func (l *Ledger) RecordFile(path string, ranges []LineRange, now time.Time) {
	for i := range l.Entries {
		if l.Entries[i].Path == path {
			merged := MergeRanges(l.Entries[i].LineRanges, ranges)
			if !rangesEqual(merged, l.Entries[i].LineRanges) {
				l.Entries[i].LineRanges = merged
				l.Entries[i].ObservedAt = now
			}
			return
		}
	}
	l.Entries = append(l.Entries, Entry{
		Path:       path,
		LineRanges: NormalizeRanges(ranges),
		ObservedAt: now,
	})
}

// AttributeCommit binds a commit to the paths it touched. Entries for
// those paths gain the commit ref; paths the session never observed in the
// working tree get a new entry so the commit is still accounted for.
// Re-attributing the same ref is a no-op.
func (l *Ledger) AttributeCommit(ref string, paths []string, now time.Time) {
	for _, path := range paths {
		found := false
		for i := range l.Entries {
			if l.Entries[i].Path == path {
				found = true
				if l.Entries[i].CommitRef != ref {
					l.Entries[i].CommitRef = ref
					l.Entries[i].ObservedAt = now
				}
				break
			}
		}
		if !found {
			l.Entries = append(l.Entries, Entry{
				Path:       path,
				CommitRef:  ref,
				ObservedAt: now,
			})
		}
	}
}

// Recompute refreshes the summary from the entries. Commits counts the
// distinct commit refs bound to entries.
func (l *Ledger) Recompute() {
	var s Summary
	refs := make(map[string]struct{})
	for _, e := range l.Entries {
		s.Files++
		for _, r := range e.LineRanges {
			s.Lines += r.Len()
		}
		if e.CommitRef != "" {
			refs[e.CommitRef] = struct{}{}
		}
	}
	s.Commits = len(refs)
	l.Summary = s
}

// Touch updates the modification timestamp and refreshes the summary.
// Call before saving.
func (l *Ledger) Touch(now time.Time) {
	l.UpdatedAt = now
	l.Recompute()
}

// Validate checks the structural invariants of a loaded ledger.
func (l *Ledger) Validate() error {
	if l.SessionID == "" {
		return fmt.Errorf("ledger missing session_id")
	}
	switch l.State {
	case StateActive, StateStopped, StateEnded:
	default:
		return fmt.Errorf("ledger has unknown state %q", l.State)
	}
	for _, e := range l.Entries {
		if e.Path == "" {
			return fmt.Errorf("ledger entry missing path")
		}
		for _, r := range e.LineRanges {
			if r.Start < 1 || r.End < r.Start {
				return fmt.Errorf("ledger entry %q has invalid range %d-%d", e.Path, r.Start, r.End)
			}
		}
	}
	return nil
}
