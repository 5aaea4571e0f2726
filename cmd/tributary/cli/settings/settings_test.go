package settings

import (
	"os"
	"path/filepath"
	"testing"

	"tributary.dev/cli/cmd/tributary/cli/paths"
)

func writeSettingsFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Enabled {
		t.Error("default Enabled should be true")
	}
	if s.LogLevel != "" {
		t.Errorf("default LogLevel = %q", s.LogLevel)
	}
	if !s.ShouldWarnUncommitted() {
		t.Error("uncommitted warning should default on")
	}
	if s.ShouldWarnBranch("main") {
		t.Error("branch warnings should default off")
	}
}

func TestLoadFromFile(t *testing.T) {
	root := t.TempDir()
	writeSettingsFile(t, paths.SettingsPath(root), `{
		"enabled": false,
		"log_level": "debug",
		"warn_branches": ["main", "master"]
	}`)

	s, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled {
		t.Error("Enabled should be false")
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", s.LogLevel)
	}
	if !s.ShouldWarnBranch("main") || s.ShouldWarnBranch("feature/x") {
		t.Errorf("WarnBranches = %v", s.WarnBranches)
	}
}

func TestLoadLocalOverrides(t *testing.T) {
	root := t.TempDir()
	writeSettingsFile(t, paths.SettingsPath(root), `{
		"enabled": true,
		"log_level": "info",
		"warn_branches": ["main"]
	}`)
	writeSettingsFile(t, paths.LocalSettingsPath(root), `{
		"log_level": "debug",
		"warn_uncommitted": false
	}`)

	s, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	// Only fields present in the local file override.
	if !s.Enabled {
		t.Error("Enabled should survive an override file that omits it")
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want local override", s.LogLevel)
	}
	if !s.ShouldWarnBranch("main") {
		t.Error("WarnBranches should survive the local file")
	}
	if s.ShouldWarnUncommitted() {
		t.Error("local file disabled the uncommitted warning")
	}
}

func TestLoadMalformedSettings(t *testing.T) {
	root := t.TempDir()
	writeSettingsFile(t, paths.SettingsPath(root), "{broken")

	if _, err := Load(root); err == nil {
		t.Fatal("malformed settings should fail loading")
	}
}

func TestSaveRoundtrip(t *testing.T) {
	root := t.TempDir()
	warn := false
	in := &Settings{
		Enabled:         true,
		LogLevel:        "warn",
		WarnBranches:    []string{"main"},
		WarnUncommitted: &warn,
	}
	if err := Save(root, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Enabled || out.LogLevel != "warn" || len(out.WarnBranches) != 1 {
		t.Errorf("roundtrip mismatch: %+v", out)
	}
	if out.ShouldWarnUncommitted() {
		t.Error("WarnUncommitted lost in roundtrip")
	}
}
