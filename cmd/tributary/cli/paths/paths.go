// Package paths centralizes filesystem layout for the CLI: where the
// repository lives, where ledgers and logs are stored, and where settings
// files are read from.
package paths

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Directory and file constants
const (
	TributaryDir          = ".tributary"
	SettingsFileName      = "settings.json"
	LocalSettingsFileName = "settings.local.json"

	// stateDirName is the directory under the git common dir holding all
	// per-repository state. Living inside .git keeps it out of version
	// control without an ignore entry.
	stateDirName = "tributary"

	sessionsDirName = "sessions"
	logsDirName     = "logs"
)

// repoRootCache caches the repository root to avoid repeated git commands.
// The cache is keyed by the current working directory to handle directory changes.
var (
	repoRootMu       sync.RWMutex
	repoRootCache    string
	repoRootCacheDir string
)

// RepoRoot returns the git repository root directory.
// Uses 'git rev-parse --show-toplevel' which works from any subdirectory.
// The result is cached per working directory.
// Returns an error if not inside a git repository.
func RepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	repoRootMu.RLock()
	if repoRootCache != "" && repoRootCacheDir == cwd {
		cached := repoRootCache
		repoRootMu.RUnlock()
		return cached, nil
	}
	repoRootMu.RUnlock()

	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git repository root: %w", err)
	}

	root := strings.TrimSpace(string(output))

	repoRootMu.Lock()
	repoRootCache = root
	repoRootCacheDir = cwd
	repoRootMu.Unlock()

	return root, nil
}

// ClearRepoRootCache clears the cached repository root.
// This is primarily useful for testing when changing directories.
func ClearRepoRootCache() {
	repoRootMu.Lock()
	repoRootCache = ""
	repoRootCacheDir = ""
	repoRootMu.Unlock()
}

// GitCommonDir returns the git common directory for the repository
// containing repoPath. For normal repositories this is <root>/.git; for
// worktrees it is the main repository's .git directory, so all worktrees
// of a repository share one state directory.
func GitCommonDir(repoPath string) (string, error) {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "rev-parse", "--git-common-dir")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git common directory: %w", err)
	}

	dir := strings.TrimSpace(string(output))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoPath, dir)
	}
	return dir, nil
}

// StateDir returns the per-repository state directory under the git
// common dir. The directory is not created.
func StateDir(repoPath string) (string, error) {
	commonDir, err := GitCommonDir(repoPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(commonDir, stateDirName), nil
}

// SessionsDir returns the directory holding session ledger files.
func SessionsDir(repoPath string) (string, error) {
	stateDir, err := StateDir(repoPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, sessionsDirName), nil
}

// LogsDir returns the directory holding per-session log files.
func LogsDir(repoPath string) (string, error) {
	stateDir, err := StateDir(repoPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, logsDirName), nil
}

// SettingsPath returns the path to the shared settings file in repoPath.
func SettingsPath(repoPath string) string {
	return filepath.Join(repoPath, TributaryDir, SettingsFileName)
}

// LocalSettingsPath returns the path to the per-developer settings
// overlay in repoPath.
func LocalSettingsPath(repoPath string) string {
	return filepath.Join(repoPath, TributaryDir, LocalSettingsFileName)
}

// ToRelativePath converts an absolute path to relative.
// Returns empty string if the path is outside the working directory.
func ToRelativePath(absPath, cwd string) string {
	if !filepath.IsAbs(absPath) {
		return absPath
	}
	relPath, err := filepath.Rel(cwd, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return ""
	}
	return relPath
}
