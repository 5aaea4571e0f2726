package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tributary.dev/cli/cmd/tributary/cli/jsonutil"
	"tributary.dev/cli/cmd/tributary/cli/paths"
	"tributary.dev/cli/cmd/tributary/cli/validation"
)

// ErrCorrupt is returned when a ledger file exists but cannot be decoded
// or fails validation. The file is never repaired or overwritten
// automatically; the caller must surface the error so the operator can
// inspect the file.
var ErrCorrupt = errors.New("ledger file is corrupt")

// Store provides persistence for session ledgers.
//
// Ledger files live under the git common dir so they are shared across
// worktrees and invisible to version control.
type Store struct {
	// dir is the directory where ledger files are stored
	dir string
}

// NewStore creates a store for the repository rooted at repoRoot.
func NewStore(repoRoot string) (*Store, error) {
	dir, err := paths.SessionsDir(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ledger directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewStoreWithDir creates a store with a custom directory.
// This is useful for testing.
func NewStoreWithDir(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding ledger files.
func (s *Store) Dir() string {
	return s.dir
}

// Load loads the ledger for the given session ID.
// Returns (nil, nil) when no ledger file exists (not an error condition).
// Returns an error wrapping ErrCorrupt when the file exists but cannot be
// decoded.
func (s *Store) Load(ctx context.Context, sessionID string) (*Ledger, error) {
	_ = ctx // Reserved for future use

	// Validate session ID to prevent path traversal
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	file := s.filePath(sessionID)

	data, err := os.ReadFile(file) //nolint:gosec // file is derived from validated sessionID
	if os.IsNotExist(err) {
		return nil, nil //nolint:nilnil // nil,nil indicates ledger not found (expected case)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, file, err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, file, err)
	}
	return &l, nil
}

// Save saves the ledger atomically via a temp file and rename, so a crash
// mid-write never leaves a truncated ledger behind.
func (s *Store) Save(ctx context.Context, l *Ledger) error {
	_ = ctx // Reserved for future use

	if err := validation.ValidateSessionID(l.SessionID); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	data, err := jsonutil.MarshalIndentWithNewline(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	file := s.filePath(l.SessionID)

	tmpFile := file + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmpFile, file); err != nil {
		return fmt.Errorf("failed to rename ledger file: %w", err)
	}
	return nil
}

// Delete removes the ledger file for the given session ID.
// Removing a missing ledger is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_ = ctx // Reserved for future use

	if err := validation.ValidateSessionID(sessionID); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}

	if err := os.Remove(s.filePath(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove ledger file: %w", err)
	}
	return nil
}

// List returns all readable ledgers. Corrupt files are skipped here, not
// surfaced; use Load to get the corruption error for a specific session.
func (s *Store) List(ctx context.Context) ([]*Ledger, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger directory: %w", err)
	}

	var ledgers []*Ledger
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		sessionID := strings.TrimSuffix(entry.Name(), ".json")
		l, err := s.Load(ctx, sessionID)
		if err != nil || l == nil {
			continue
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

// filePath returns the path to a session's ledger file.
func (s *Store) filePath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}
