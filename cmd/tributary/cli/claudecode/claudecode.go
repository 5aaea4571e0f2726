// Package claudecode manages the hook registration in .claude/settings.json
// that makes the host invoke tributary at session lifecycle points.
package claudecode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Hook verbs - these become subcommands under `tributary hooks claude-code`.
const (
	HookNameSessionStart     = "session-start"
	HookNameUserPromptSubmit = "user-prompt-submit"
	HookNameStop             = "stop"
	HookNameSessionEnd       = "session-end"
)

// SettingsFileName is the settings file used by Claude Code.
const SettingsFileName = "settings.json"

// Settings models the hook-relevant part of .claude/settings.json.
type Settings struct {
	Hooks Hooks `json:"hooks"`
}

// Hooks contains the hook configurations by event.
type Hooks struct {
	SessionStart     []HookMatcher `json:"SessionStart,omitempty"`
	UserPromptSubmit []HookMatcher `json:"UserPromptSubmit,omitempty"`
	Stop             []HookMatcher `json:"Stop,omitempty"`
	SessionEnd       []HookMatcher `json:"SessionEnd,omitempty"`
}

// HookMatcher groups hook commands under a matcher pattern.
type HookMatcher struct {
	Matcher string      `json:"matcher"`
	Hooks   []HookEntry `json:"hooks"`
}

// HookEntry is a single hook command.
type HookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// hookCommand builds the command line for one hook verb.
func hookCommand(verb string) string {
	return "tributary hooks claude-code " + verb
}

// hookEvents maps the settings.json event key to our verb.
var hookEvents = []struct {
	event string
	verb  string
}{
	{"SessionStart", HookNameSessionStart},
	{"UserPromptSubmit", HookNameUserPromptSubmit},
	{"Stop", HookNameStop},
	{"SessionEnd", HookNameSessionEnd},
}

// settingsPath returns the path to .claude/settings.json under repoRoot.
func settingsPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".claude", SettingsFileName)
}

// InstallHooks registers the four lifecycle hooks in .claude/settings.json,
// creating the file if needed. Fields we do not own are preserved verbatim.
// Returns the number of hooks added.
func InstallHooks(repoRoot string) (int, error) {
	path := settingsPath(repoRoot)

	var settings Settings
	var rawSettings map[string]json.RawMessage

	existingData, readErr := os.ReadFile(path) //nolint:gosec // path is repo root + fixed suffix
	if readErr == nil {
		if err := json.Unmarshal(existingData, &rawSettings); err != nil {
			return 0, fmt.Errorf("failed to parse existing settings.json: %w", err)
		}
		if hooksRaw, ok := rawSettings["hooks"]; ok {
			if err := json.Unmarshal(hooksRaw, &settings.Hooks); err != nil {
				return 0, fmt.Errorf("failed to parse hooks in settings.json: %w", err)
			}
		}
	} else {
		rawSettings = make(map[string]json.RawMessage)
	}

	count := 0
	for _, h := range hookEvents {
		matchers := settings.Hooks.byEvent(h.event)
		cmd := hookCommand(h.verb)
		if hookCommandExists(*matchers, cmd) {
			continue
		}
		*matchers = addHookToMatcher(*matchers, cmd)
		count++
	}

	if count == 0 {
		return 0, nil // Already installed
	}

	hooksJSON, err := json.Marshal(settings.Hooks)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal hooks: %w", err)
	}
	rawSettings["hooks"] = hooksJSON

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("failed to create .claude directory: %w", err)
	}

	output, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, output, 0o600); err != nil {
		return 0, fmt.Errorf("failed to write settings.json: %w", err)
	}

	return count, nil
}

// UninstallHooks removes tributary hooks from .claude/settings.json,
// leaving everything else in the file untouched. Returns the number of
// hooks removed.
func UninstallHooks(repoRoot string) (int, error) {
	path := settingsPath(repoRoot)

	existingData, err := os.ReadFile(path) //nolint:gosec // path is repo root + fixed suffix
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read settings.json: %w", err)
	}

	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(existingData, &rawSettings); err != nil {
		return 0, fmt.Errorf("failed to parse settings.json: %w", err)
	}

	var hooks Hooks
	if hooksRaw, ok := rawSettings["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &hooks); err != nil {
			return 0, fmt.Errorf("failed to parse hooks in settings.json: %w", err)
		}
	}

	count := 0
	for _, h := range hookEvents {
		matchers := hooks.byEvent(h.event)
		filtered, removed := removeTributaryHooks(*matchers)
		*matchers = filtered
		count += removed
	}

	if count == 0 {
		return 0, nil
	}

	hooksJSON, err := json.Marshal(hooks)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal hooks: %w", err)
	}
	rawSettings["hooks"] = hooksJSON

	output, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, output, 0o600); err != nil {
		return 0, fmt.Errorf("failed to write settings.json: %w", err)
	}

	return count, nil
}

// AreHooksInstalled checks whether our hooks are present in settings.json.
func AreHooksInstalled(repoRoot string) bool {
	data, err := os.ReadFile(settingsPath(repoRoot)) //nolint:gosec // path is repo root + fixed suffix
	if err != nil {
		return false
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return false
	}

	return hookCommandExists(settings.Hooks.SessionStart, hookCommand(HookNameSessionStart)) &&
		hookCommandExists(settings.Hooks.Stop, hookCommand(HookNameStop))
}

// byEvent returns a pointer to the matcher slice for a settings.json event key.
func (h *Hooks) byEvent(event string) *[]HookMatcher {
	switch event {
	case "SessionStart":
		return &h.SessionStart
	case "UserPromptSubmit":
		return &h.UserPromptSubmit
	case "Stop":
		return &h.Stop
	case "SessionEnd":
		return &h.SessionEnd
	default:
		panic("unknown hook event " + event)
	}
}

func hookCommandExists(matchers []HookMatcher, command string) bool {
	for _, matcher := range matchers {
		for _, hook := range matcher.Hooks {
			if hook.Command == command {
				return true
			}
		}
	}
	return false
}

func addHookToMatcher(matchers []HookMatcher, command string) []HookMatcher {
	entry := HookEntry{
		Type:    "command",
		Command: command,
	}

	// Lifecycle hooks use the empty matcher.
	for i, matcher := range matchers {
		if matcher.Matcher == "" {
			matchers[i].Hooks = append(matchers[i].Hooks, entry)
			return matchers
		}
	}
	return append(matchers, HookMatcher{
		Matcher: "",
		Hooks:   []HookEntry{entry},
	})
}

// isTributaryHook checks if a command belongs to us.
func isTributaryHook(command string) bool {
	return strings.HasPrefix(command, "tributary ")
}

// removeTributaryHooks filters our hooks out of the matchers, dropping
// matchers left empty. Returns the filtered slice and the removal count.
func removeTributaryHooks(matchers []HookMatcher) ([]HookMatcher, int) {
	removed := 0
	result := make([]HookMatcher, 0, len(matchers))
	for _, matcher := range matchers {
		filteredHooks := make([]HookEntry, 0, len(matcher.Hooks))
		for _, hook := range matcher.Hooks {
			if isTributaryHook(hook.Command) {
				removed++
				continue
			}
			filteredHooks = append(filteredHooks, hook)
		}
		if len(filteredHooks) > 0 {
			matcher.Hooks = filteredHooks
			result = append(result, matcher)
		}
	}
	if len(result) == 0 {
		result = nil
	}
	return result, removed
}
