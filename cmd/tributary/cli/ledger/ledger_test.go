package ledger

import (
	"encoding/json"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestRecordFileMergesRanges(t *testing.T) {
	l := New("s1", "/repo", "abc", "startup", testTime)

	l.RecordFile("main.go", []LineRange{{Start: 1, End: 5}}, testTime)
	l.RecordFile("main.go", []LineRange{{Start: 4, End: 9}}, testTime.Add(time.Minute))

	if len(l.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(l.Entries))
	}
	want := []LineRange{{Start: 1, End: 9}}
	if !rangesEqual(l.Entries[0].LineRanges, want) {
		t.Errorf("ranges = %v, want %v", l.Entries[0].LineRanges, want)
	}
}

func TestRecordFileIdempotent(t *testing.T) {
	l := New("s1", "/repo", "abc", "startup", testTime)

	l.RecordFile("main.go", []LineRange{{Start: 1, End: 5}}, testTime)
	l.RecordFile("main.go", []LineRange{{Start: 1, End: 5}}, testTime.Add(time.Hour))

	if len(l.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(l.Entries))
	}
	// Re-observing identical ranges must not bump the timestamp.
	if !l.Entries[0].ObservedAt.Equal(testTime) {
		t.Errorf("ObservedAt = %v, want %v", l.Entries[0].ObservedAt, testTime)
	}
}

func TestAttributeCommit(t *testing.T) {
	l := New("s1", "/repo", "abc", "startup", testTime)
	l.RecordFile("a.go", []LineRange{{Start: 3, End: 5}}, testTime)

	// A commit covering an observed path binds to its entry; a path the
	// session never saw in the working tree gets its own entry.
	l.AttributeCommit("deadbeef", []string{"a.go", "generated.go"}, testTime.Add(time.Minute))

	if len(l.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(l.Entries))
	}
	if l.Entries[0].Path != "a.go" || l.Entries[0].CommitRef != "deadbeef" {
		t.Errorf("observed entry = %+v", l.Entries[0])
	}
	if !rangesEqual(l.Entries[0].LineRanges, []LineRange{{Start: 3, End: 5}}) {
		t.Errorf("binding a commit must not change ranges: %v", l.Entries[0].LineRanges)
	}
	if l.Entries[1].Path != "generated.go" || l.Entries[1].CommitRef != "deadbeef" {
		t.Errorf("unobserved entry = %+v", l.Entries[1])
	}
}

func TestAttributeCommitIdempotent(t *testing.T) {
	l := New("s1", "/repo", "abc", "startup", testTime)
	l.RecordFile("a.go", []LineRange{{Start: 1, End: 2}}, testTime)

	l.AttributeCommit("deadbeef", []string{"a.go"}, testTime)
	l.AttributeCommit("deadbeef", []string{"a.go"}, testTime.Add(time.Hour))

	if len(l.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(l.Entries))
	}
	if !l.Entries[0].ObservedAt.Equal(testTime) {
		t.Errorf("re-attribution bumped ObservedAt to %v", l.Entries[0].ObservedAt)
	}

	// A later commit touching the same path supersedes the earlier ref.
	l.AttributeCommit("cafebabe", []string{"a.go"}, testTime.Add(2*time.Hour))
	if l.Entries[0].CommitRef != "cafebabe" {
		t.Errorf("commit ref = %q, want the later commit", l.Entries[0].CommitRef)
	}
}

func TestRecompute(t *testing.T) {
	l := New("s1", "/repo", "abc", "startup", testTime)
	l.RecordFile("a.go", []LineRange{{Start: 1, End: 3}, {Start: 10, End: 10}}, testTime)
	l.RecordFile("b.go", []LineRange{{Start: 2, End: 2}}, testTime)
	l.AttributeCommit("deadbeef", []string{"a.go", "b.go"}, testTime)

	l.Recompute()

	// Both entries carry the same commit; it counts once.
	if l.Summary.Files != 2 || l.Summary.Lines != 5 || l.Summary.Commits != 1 {
		t.Errorf("summary = %+v, want 2 files, 5 lines, 1 commit", l.Summary)
	}
}

func TestUnknownFieldsSurviveRoundtrip(t *testing.T) {
	input := `{
		"session_id": "s1",
		"repo_root": "/repo",
		"state": "active",
		"started_at": "2026-03-14T09:30:00Z",
		"updated_at": "2026-03-14T09:30:00Z",
		"summary": {"files": 0, "lines": 0, "commits": 0},
		"future_field": {"nested": [1, 2, 3]},
		"another": "kept"
	}`

	var l Ledger
	if err := json.Unmarshal([]byte(input), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.SessionID != "s1" || l.State != StateActive {
		t.Fatalf("known fields not decoded: %+v", l)
	}

	l.RecordFile("a.go", []LineRange{{Start: 1, End: 1}}, testTime)

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if string(raw["another"]) != `"kept"` {
		t.Errorf("unknown string field lost: %s", raw["another"])
	}
	if _, ok := raw["future_field"]; !ok {
		t.Error("unknown object field lost")
	}
	if _, ok := raw["entries"]; !ok {
		t.Error("known entries field missing after update")
	}
}

func TestEntryUnknownFieldsSurviveRoundtrip(t *testing.T) {
	input := `{
		"session_id": "s1",
		"repo_root": "/repo",
		"state": "active",
		"started_at": "2026-03-14T09:30:00Z",
		"updated_at": "2026-03-14T09:30:00Z",
		"entries": [{
			"path": "a.go",
			"line_ranges": [{"start": 1, "end": 2}],
			"observed_at": "2026-03-14T09:30:00Z",
			"author_confidence": 0.9
		}],
		"summary": {"files": 1, "lines": 2, "commits": 0}
	}`

	var l Ledger
	if err := json.Unmarshal([]byte(input), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(l.Entries) != 1 || l.Entries[0].Path != "a.go" {
		t.Fatalf("known entry fields not decoded: %+v", l.Entries)
	}

	// Touching the entry must not shed the field another writer added.
	l.RecordFile("a.go", []LineRange{{Start: 4, End: 5}}, testTime)

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw struct {
		Entries []map[string]json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if len(raw.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(raw.Entries))
	}
	if string(raw.Entries[0]["author_confidence"]) != "0.9" {
		t.Errorf("entry unknown field lost: %s", raw.Entries[0]["author_confidence"])
	}
	if _, ok := raw.Entries[0]["line_ranges"]; !ok {
		t.Error("known entry field missing after update")
	}
}

func TestValidate(t *testing.T) {
	valid := New("s1", "/repo", "", "startup", testTime)
	if err := valid.Validate(); err != nil {
		t.Errorf("valid ledger rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Ledger)
	}{
		{"missing session id", func(l *Ledger) { l.SessionID = "" }},
		{"unknown state", func(l *Ledger) { l.State = "paused" }},
		{"entry without path", func(l *Ledger) {
			l.Entries = append(l.Entries, Entry{CommitRef: "deadbeef", ObservedAt: testTime})
		}},
		{"inverted range", func(l *Ledger) {
			l.Entries = append(l.Entries, Entry{Path: "a.go", LineRanges: []LineRange{{Start: 5, End: 2}}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New("s1", "/repo", "", "startup", testTime)
			tt.mutate(l)
			if err := l.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
