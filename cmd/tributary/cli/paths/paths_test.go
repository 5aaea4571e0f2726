package paths

import (
	"path/filepath"
	"strings"
	"testing"

	"tributary.dev/cli/cmd/tributary/cli/testutil"
)

func TestStateDirsLiveUnderGitCommonDir(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)

	sessions, err := SessionsDir(dir)
	if err != nil {
		t.Fatalf("SessionsDir: %v", err)
	}
	logs, err := LogsDir(dir)
	if err != nil {
		t.Fatalf("LogsDir: %v", err)
	}

	if !strings.HasSuffix(sessions, filepath.Join(".git", "tributary", "sessions")) {
		t.Errorf("SessionsDir = %q, want it under .git/tributary", sessions)
	}
	if !strings.HasSuffix(logs, filepath.Join(".git", "tributary", "logs")) {
		t.Errorf("LogsDir = %q, want it under .git/tributary", logs)
	}
}

func TestSessionsDirOutsideRepository(t *testing.T) {
	if _, err := SessionsDir(t.TempDir()); err == nil {
		t.Fatal("expected an error outside a repository")
	}
}

func TestSettingsPaths(t *testing.T) {
	root := "/work/repo"
	if got := SettingsPath(root); !strings.HasSuffix(got, filepath.Join(".tributary", "settings.json")) {
		t.Errorf("SettingsPath = %q", got)
	}
	if got := LocalSettingsPath(root); !strings.HasSuffix(got, filepath.Join(".tributary", "settings.local.json")) {
		t.Errorf("LocalSettingsPath = %q", got)
	}
}

func TestToRelativePath(t *testing.T) {
	tests := []struct {
		abs  string
		cwd  string
		want string
	}{
		{"/work/repo/main.go", "/work/repo", "main.go"},
		{"/work/repo/pkg/a.go", "/work/repo", filepath.Join("pkg", "a.go")},
		{"/elsewhere/file.go", "/work/repo", ""},
		{"already/relative.go", "/work/repo", "already/relative.go"},
	}

	for _, tt := range tests {
		if got := ToRelativePath(tt.abs, tt.cwd); got != tt.want {
			t.Errorf("ToRelativePath(%q, %q) = %q, want %q", tt.abs, tt.cwd, got, tt.want)
		}
	}
}
