package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"tributary.dev/cli/cmd/tributary/cli/validation"
)

const (
	lockTimeout    = 2 * time.Second
	lockRetry      = 50 * time.Millisecond
	lockStaleAfter = 5 * time.Minute
)

// ErrBusy is returned when the ledger lock cannot be acquired within the
// timeout. The ledger is untouched; the caller may retry the whole
// operation later.
var ErrBusy = errors.New("ledger is locked by another process")

// processLocks serializes lock acquisition between goroutines of this
// process, so contention is only ever resolved via the filesystem across
// processes.
var processLocks sync.Map

func getProcessLock(lockPath string) *sync.Mutex {
	mu, _ := processLocks.LoadOrStore(lockPath, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// lockMetadata is written into the lock file for debugging stuck locks.
type lockMetadata struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
}

// WithLock runs fn while holding an exclusive lock scoped to one session's
// ledger. Sessions never block each other.
//
// The lock is a sibling file created with O_EXCL. Acquisition retries for
// a bounded time and then fails with ErrBusy. Locks older than
// lockStaleAfter are assumed to be left over from a crashed process and
// are broken.
func (s *Store) WithLock(sessionID string, fn func() error) error {
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	lockPath := s.filePath(sessionID) + ".lock"

	processLock := getProcessLock(lockPath)
	processLock.Lock()
	defer processLock.Unlock()

	start := time.Now()
	for {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // path derived from validated sessionID
		if err == nil {
			meta := lockMetadata{PID: os.Getpid(), CreatedAt: time.Now().UTC()}
			if encoded, marshalErr := json.Marshal(meta); marshalErr == nil {
				_, _ = lockFile.Write(append(encoded, '\n'))
			}
			_ = lockFile.Close()
			defer func() { _ = os.Remove(lockPath) }()
			return fn()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to acquire ledger lock: %w", err)
		}

		if isStaleLock(lockPath) {
			_ = os.Remove(lockPath)
			continue
		}

		if time.Since(start) >= lockTimeout {
			return fmt.Errorf("%w: %s (waited %s)", ErrBusy, lockPath, time.Since(start).Round(time.Millisecond))
		}
		time.Sleep(lockRetry)
	}
}

// isStaleLock reports whether the lock file is old enough to have been
// abandoned by a crashed process.
func isStaleLock(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		// Holder may have just released it; let the retry loop find out.
		return false
	}
	return time.Since(info.ModTime()) > lockStaleAfter
}
