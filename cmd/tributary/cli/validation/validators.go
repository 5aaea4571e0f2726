// Package validation provides input validators shared across the CLI.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// sessionIDRegex matches identifiers safe for use as file names.
// Host session IDs are UUIDs in practice, but the format is not ours to
// pin down, so anything path-safe is accepted.
var sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`)

// ValidateSessionID validates that a session ID is non-empty and cannot
// escape the ledger directory via path separators or traversal.
func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid session ID %q: contains path separators", id)
	}
	if !sessionIDRegex.MatchString(id) {
		return fmt.Errorf("invalid session ID %q: must be alphanumeric with dots, underscores or hyphens", id)
	}
	return nil
}

// ValidateRepoRelativePath validates that a path is repository-relative:
// non-empty, not absolute, and free of traversal components.
func ValidateRepoRelativePath(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return fmt.Errorf("invalid path %q: must be repository-relative", path)
	}
	for _, part := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if part == ".." {
			return fmt.Errorf("invalid path %q: contains traversal component", path)
		}
	}
	return nil
}
