package gitinspect

import (
	"errors"
	"path/filepath"
	"testing"

	"tributary.dev/cli/cmd/tributary/cli/ledger"
	"tributary.dev/cli/cmd/tributary/cli/testutil"
)

func newTestInspector(t *testing.T) (*Inspector, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	insp, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return insp, dir
}

func TestOpenOutsideRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotARepository) {
		t.Fatalf("err = %v, want ErrNotARepository", err)
	}
}

func TestOpenFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.WriteFile(t, dir, filepath.Join("pkg", "a.go"), "package a\n")

	insp, err := Open(filepath.Join(dir, "pkg"))
	if err != nil {
		t.Fatalf("Open from subdirectory: %v", err)
	}
	if insp.Root() == filepath.Join(dir, "pkg") {
		t.Errorf("root should be the repository root, got %q", insp.Root())
	}
}

func TestHeadOnUnbornBranch(t *testing.T) {
	insp, _ := newTestInspector(t)

	head, err := insp.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "" {
		t.Errorf("unborn branch head = %q, want empty", head)
	}
}

func TestHeadAfterCommit(t *testing.T) {
	insp, dir := newTestInspector(t)
	want := testutil.CommitFile(t, dir, "a.txt", "hello\n", "initial")

	head, err := insp.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != want {
		t.Errorf("head = %q, want %q", head, want)
	}
}

func TestBranchOnUnbornBranch(t *testing.T) {
	insp, _ := newTestInspector(t)

	branch, err := insp.Branch()
	if err != nil {
		t.Fatalf("Branch: %v", err)
	}
	if branch == "" {
		t.Error("unborn branch should still resolve the symbolic HEAD target")
	}
}

func TestHasUncommittedChanges(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "hello\n", "initial")

	dirty, err := insp.HasUncommittedChanges()
	if err != nil {
		t.Fatal(err)
	}
	if dirty {
		t.Error("clean tree reported dirty")
	}

	testutil.WriteFile(t, dir, "a.txt", "changed\n")
	dirty, err = insp.HasUncommittedChanges()
	if err != nil {
		t.Fatal(err)
	}
	if !dirty {
		t.Error("modified tree reported clean")
	}
}

func TestWorkingTreeChangesModified(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "one\ntwo\nthree\nfour\n", "initial")
	testutil.WriteFile(t, dir, "a.txt", "one\nTWO\nthree\nfour\nfive\n")

	changes, err := insp.WorkingTreeChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one entry", changes)
	}
	ch := changes[0]
	if ch.Path != "a.txt" || ch.Kind != ChangeModified {
		t.Errorf("change = %+v", ch)
	}
	want := []ledger.LineRange{{Start: 2, End: 2}, {Start: 5, End: 5}}
	if len(ch.Ranges) != len(want) || ch.Ranges[0] != want[0] || ch.Ranges[1] != want[1] {
		t.Errorf("ranges = %v, want %v", ch.Ranges, want)
	}
}

func TestWorkingTreeChangesUntracked(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "hello\n", "initial")
	testutil.WriteFile(t, dir, "new.txt", "one\ntwo\nthree\n")

	changes, err := insp.WorkingTreeChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one entry", changes)
	}
	ch := changes[0]
	if ch.Kind != ChangeUntracked {
		t.Errorf("kind = %q, want untracked", ch.Kind)
	}
	if len(ch.Ranges) != 1 || ch.Ranges[0] != (ledger.LineRange{Start: 1, End: 3}) {
		t.Errorf("untracked file should be attributed whole, got %v", ch.Ranges)
	}
}

func TestWorkingTreeChangesDeleted(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "gone.txt", "hello\n", "initial")
	testutil.RemoveFile(t, dir, "gone.txt")

	changes, err := insp.WorkingTreeChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one entry", changes)
	}
	ch := changes[0]
	if ch.Kind != ChangeDeleted {
		t.Errorf("kind = %q, want deleted", ch.Kind)
	}
	if ch.Ranges != nil {
		t.Errorf("deletion carried ranges: %v", ch.Ranges)
	}
}

func TestWorkingTreeChangesBinary(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "hello\n", "initial")
	testutil.WriteFile(t, dir, "blob.bin", "PK\x00\x01data")

	changes, err := insp.WorkingTreeChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one entry", changes)
	}
	if changes[0].Ranges != nil {
		t.Errorf("binary file carried line ranges: %v", changes[0].Ranges)
	}
}

func TestWorkingTreeChangesSkipSettingsDir(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "hello\n", "initial")
	testutil.WriteFile(t, dir, filepath.Join(".tributary", "settings.local.json"), "{}\n")

	changes, err := insp.WorkingTreeChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("settings files reported as session work: %v", changes)
	}
}

func TestWorkingTreeChangesIdenticalContentSkipped(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "hello\n", "initial")

	// Touch the file without changing content.
	testutil.WriteFile(t, dir, "a.txt", "hello\n")

	changes, err := insp.WorkingTreeChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("byte-identical file reported as changed: %v", changes)
	}
}

func TestCommitsSince(t *testing.T) {
	insp, dir := newTestInspector(t)
	baseline := testutil.CommitFile(t, dir, "a.txt", "one\n", "first")
	second := testutil.CommitFile(t, dir, "a.txt", "two\n", "second")
	third := testutil.CommitFile(t, dir, "a.txt", "three\n", "third")

	commits, err := insp.CommitsSince(baseline)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Fatalf("commits = %v, want two", commits)
	}
	// Oldest first, baseline excluded.
	if commits[0].Hash != second || commits[1].Hash != third {
		t.Errorf("order = [%s %s], want [%s %s]", commits[0].Hash, commits[1].Hash, second, third)
	}
	if commits[0].Summary != "second" {
		t.Errorf("summary = %q", commits[0].Summary)
	}
}

func TestCommitsSinceEmptyBaseline(t *testing.T) {
	insp, dir := newTestInspector(t)
	first := testutil.CommitFile(t, dir, "a.txt", "one\n", "first")
	testutil.CommitFile(t, dir, "a.txt", "two\n", "second")

	commits, err := insp.CommitsSince("")
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 || commits[0].Hash != first {
		t.Errorf("empty baseline should return full history oldest first, got %v", commits)
	}
}

func TestCommitsSinceUnreachableBaseline(t *testing.T) {
	insp, dir := newTestInspector(t)
	first := testutil.CommitFile(t, dir, "a.txt", "one\n", "first")
	baseline := testutil.CommitFile(t, dir, "a.txt", "two\n", "second")

	// Rewrite history past the baseline, the way a reset or amend would.
	testutil.GitResetHard(t, dir, first)
	testutil.CommitFile(t, dir, "a.txt", "three\n", "rewritten")

	commits, err := insp.CommitsSince(baseline)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 0 {
		t.Errorf("unreachable baseline must not attribute history, got %v", commits)
	}
}

func TestCommitsSinceUnborn(t *testing.T) {
	insp, _ := newTestInspector(t)

	commits, err := insp.CommitsSince("")
	if err != nil {
		t.Fatal(err)
	}
	if commits != nil {
		t.Errorf("unborn branch returned commits: %v", commits)
	}
}

func TestCommitTouches(t *testing.T) {
	insp, dir := newTestInspector(t)
	testutil.CommitFile(t, dir, "a.txt", "one\n", "first")

	testutil.WriteFile(t, dir, "a.txt", "two\n")
	testutil.WriteFile(t, dir, "b.txt", "new\n")
	testutil.GitAdd(t, dir, "a.txt", "b.txt")
	hash := testutil.GitCommit(t, dir, "second")

	paths, err := insp.CommitTouches(hash)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != "a.txt" || paths[1] != "b.txt" {
		t.Errorf("paths = %v, want [a.txt b.txt]", paths)
	}
}
