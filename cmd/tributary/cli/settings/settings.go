// Package settings provides configuration loading for Tributary.
// Settings live in .tributary/settings.json with optional per-developer
// overrides in .tributary/settings.local.json.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tributary.dev/cli/cmd/tributary/cli/jsonutil"
	"tributary.dev/cli/cmd/tributary/cli/paths"
)

// Settings represents the .tributary/settings.json configuration.
type Settings struct {
	// Enabled indicates whether Tributary is active. When false, hooks
	// exit silently without touching any ledger. Defaults to true.
	Enabled bool `json:"enabled"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	// Can be overridden by the TRIBUTARY_LOG_LEVEL environment variable.
	// Defaults to "info".
	LogLevel string `json:"log_level,omitempty"`

	// WarnBranches lists branch names on which starting a session prints a
	// warning to the host (e.g. "main", "master"). Empty means never warn.
	WarnBranches []string `json:"warn_branches,omitempty"`

	// WarnUncommitted controls whether starting a session with uncommitted
	// working-tree changes prints a warning. nil defaults to true.
	WarnUncommitted *bool `json:"warn_uncommitted,omitempty"`
}

// Load loads the settings from .tributary/settings.json inside repoRoot,
// then applies any overrides from .tributary/settings.local.json if it exists.
// Returns default settings if neither file exists.
func Load(repoRoot string) (*Settings, error) {
	settings, err := loadFromFile(paths.SettingsPath(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(paths.LocalSettingsPath(repoRoot)) //nolint:gosec // path derived from repo root
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
		// Local file doesn't exist, continue without overrides
	} else {
		if err := mergeJSON(settings, localData); err != nil {
			return nil, fmt.Errorf("merging local settings: %w", err)
		}
	}

	return settings, nil
}

// loadFromFile loads settings from a specific file path.
// Returns default settings if the file doesn't exist.
func loadFromFile(filePath string) (*Settings, error) {
	settings := &Settings{
		Enabled: true, // Default to enabled
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is from caller
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("%w", err)
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	return settings, nil
}

// mergeJSON merges JSON data into existing settings.
// Only fields present in the JSON override existing settings.
func mergeJSON(settings *Settings, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if enabledRaw, ok := raw["enabled"]; ok {
		var e bool
		if err := json.Unmarshal(enabledRaw, &e); err != nil {
			return fmt.Errorf("parsing enabled field: %w", err)
		}
		settings.Enabled = e
	}

	if logLevelRaw, ok := raw["log_level"]; ok {
		var ll string
		if err := json.Unmarshal(logLevelRaw, &ll); err != nil {
			return fmt.Errorf("parsing log_level field: %w", err)
		}
		if ll != "" {
			settings.LogLevel = ll
		}
	}

	if branchesRaw, ok := raw["warn_branches"]; ok {
		var wb []string
		if err := json.Unmarshal(branchesRaw, &wb); err != nil {
			return fmt.Errorf("parsing warn_branches field: %w", err)
		}
		settings.WarnBranches = wb
	}

	if wuRaw, ok := raw["warn_uncommitted"]; ok {
		var wu bool
		if err := json.Unmarshal(wuRaw, &wu); err != nil {
			return fmt.Errorf("parsing warn_uncommitted field: %w", err)
		}
		settings.WarnUncommitted = &wu
	}

	return nil
}

// Save writes the shared settings file in repoRoot, creating the
// .tributary directory if needed.
func Save(repoRoot string, s *Settings) error {
	path := paths.SettingsPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := jsonutil.MarshalIndentWithNewline(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// ShouldWarnUncommitted reports whether a session start with uncommitted
// changes should warn. Defaults to true when unset.
func (s *Settings) ShouldWarnUncommitted() bool {
	if s.WarnUncommitted == nil {
		return true
	}
	return *s.WarnUncommitted
}

// ShouldWarnBranch reports whether starting a session on the given branch
// should warn.
func (s *Settings) ShouldWarnBranch(branch string) bool {
	for _, b := range s.WarnBranches {
		if b == branch {
			return true
		}
	}
	return false
}
