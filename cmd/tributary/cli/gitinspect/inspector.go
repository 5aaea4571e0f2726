// Package gitinspect answers read-only questions about a git repository:
// where HEAD points, what the working tree changed and on which lines, and
// which commits landed since a baseline. It never mutates repository state.
package gitinspect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"tributary.dev/cli/cmd/tributary/cli/ledger"
	"tributary.dev/cli/cmd/tributary/cli/paths"
)

// ErrNotARepository is returned by Open when the path is not inside a git
// repository.
var ErrNotARepository = errors.New("not a git repository")

// ChangeKind classifies a working-tree change.
type ChangeKind string

const (
	ChangeModified  ChangeKind = "modified"
	ChangeUntracked ChangeKind = "untracked"
	ChangeDeleted   ChangeKind = "deleted"
)

// FileChange is one changed file in the working tree relative to HEAD.
type FileChange struct {
	// Path is the repository-relative file path.
	Path string

	// Kind says how the file changed.
	Kind ChangeKind

	// Ranges are the coalesced 1-based line ranges that differ from HEAD,
	// in terms of the current file content. Nil for deleted and binary
	// files, where line attribution has no meaning.
	Ranges []ledger.LineRange
}

// Commit is a minimal view of a commit for attribution purposes.
type Commit struct {
	Hash    string
	Summary string
	When    time.Time
}

// Inspector provides read-only queries against one repository.
type Inspector struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing path, searching parent directories
// the way git itself does. Returns ErrNotARepository when there is none.
func Open(path string) (*Inspector, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return &Inspector{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the absolute path of the working tree root.
func (i *Inspector) Root() string {
	return i.root
}

// Head returns the full hash of the current HEAD commit.
// Returns empty string (not an error) on an unborn branch.
func (i *Inspector) Head() (string, error) {
	head, err := i.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// Branch returns the short name of the current branch, or empty string for
// a detached HEAD or unborn repository without a symbolic HEAD target.
func (i *Inspector) Branch() (string, error) {
	head, err := i.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Unborn branch: HEAD still names the branch symbolically.
			ref, refErr := i.repo.Reference(plumbing.HEAD, false)
			if refErr == nil && ref.Type() == plumbing.SymbolicReference {
				return ref.Target().Short(), nil
			}
			return "", nil
		}
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// HasUncommittedChanges reports whether the working tree differs from HEAD.
// This includes staged changes, unstaged changes, and untracked files.
func (i *Inspector) HasUncommittedChanges() (bool, error) {
	wt, err := i.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	return !status.IsClean(), nil
}

// WorkingTreeChanges returns every file whose content differs from HEAD,
// with the line ranges that changed. Results are sorted by path.
//
// Untracked files are attributed whole (lines 1 through end). Binary files
// and deletions are reported without ranges.
func (i *Inspector) WorkingTreeChanges() ([]FileChange, error) {
	wt, err := i.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	headTree, err := i.headTree()
	if err != nil {
		return nil, err
	}

	var changes []FileChange
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		// Edits to our own settings files are not session work.
		if path == paths.TributaryDir || strings.HasPrefix(path, paths.TributaryDir+"/") {
			continue
		}

		change, ok, err := i.classifyChange(headTree, path, st)
		if err != nil {
			return nil, err
		}
		if ok {
			changes = append(changes, change)
		}
	}

	sort.Slice(changes, func(a, b int) bool { return changes[a].Path < changes[b].Path })
	return changes, nil
}

// classifyChange builds the FileChange for one status entry. The second
// return value is false when the entry needs no reporting (e.g. the
// content is byte-identical to HEAD despite a status flag).
func (i *Inspector) classifyChange(headTree *object.Tree, path string, st *git.FileStatus) (FileChange, bool, error) {
	untracked := st.Worktree == git.Untracked && st.Staging == git.Untracked

	current, currentExists, err := i.readWorktreeFile(path)
	if err != nil {
		return FileChange{}, false, err
	}

	if !currentExists {
		// Deleted relative to HEAD. Nothing to line-attribute.
		if headTree == nil || !treeHasFile(headTree, path) {
			return FileChange{}, false, nil
		}
		return FileChange{Path: path, Kind: ChangeDeleted}, true, nil
	}

	if untracked {
		if isBinary(current) {
			return FileChange{Path: path, Kind: ChangeUntracked}, true, nil
		}
		n := countLinesStr(current)
		var ranges []ledger.LineRange
		if n > 0 {
			ranges = []ledger.LineRange{{Start: 1, End: n}}
		}
		return FileChange{Path: path, Kind: ChangeUntracked, Ranges: ranges}, true, nil
	}

	baseline := treeFileContent(headTree, path)
	if baseline == current {
		return FileChange{}, false, nil
	}
	if isBinary(current) || isBinary(baseline) {
		return FileChange{Path: path, Kind: ChangeModified}, true, nil
	}

	ranges := changedRanges(baseline, current)
	return FileChange{Path: path, Kind: ChangeModified, Ranges: ranges}, true, nil
}

// CommitsSince returns the commits reachable from HEAD that are not
// reachable from baseline, oldest first. The baseline commit itself is
// excluded. An empty baseline (session started on an unborn branch)
// returns the full history of HEAD. A baseline that is no longer
// reachable from HEAD yields no commits.
func (i *Inspector) CommitsSince(baseline string) ([]Commit, error) {
	head, err := i.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	iter, err := i.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	sawBaseline := baseline == ""
	err = iter.ForEach(func(c *object.Commit) error {
		if baseline != "" && c.Hash.String() == baseline {
			sawBaseline = true
			return storerStop
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Summary: firstLine(c.Message),
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil && !errors.Is(err, storerStop) {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}

	// A rebase, amend or reset after the session started can leave the
	// baseline unreachable from HEAD. The walk then covers history that
	// predates the session, so report nothing rather than everything.
	if !sawBaseline {
		return nil, nil
	}

	// Log walks newest first; callers want chronological order.
	for a, b := 0, len(commits)-1; a < b; a, b = a+1, b-1 {
		commits[a], commits[b] = commits[b], commits[a]
	}
	return commits, nil
}

// CommitTouches returns the repository-relative paths changed by the given
// commit relative to its first parent. A root commit reports all its files.
func (i *Inspector) CommitTouches(hash string) ([]string, error) {
	commit, err := i.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get commit tree: %w", err)
	}

	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent commit: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to get parent tree: %w", err)
		}
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	pathSet := make(map[string]struct{})
	for _, ch := range changes {
		if ch.From.Name != "" {
			pathSet[ch.From.Name] = struct{}{}
		}
		if ch.To.Name != "" {
			pathSet[ch.To.Name] = struct{}{}
		}
	}

	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// storerStop terminates commit iteration early without signaling failure.
var storerStop = errors.New("stop iteration")

// headTree returns the tree of the HEAD commit, or nil on an unborn branch.
func (i *Inspector) headTree() (*object.Tree, error) {
	head, err := i.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := i.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD tree: %w", err)
	}
	return tree, nil
}

// readWorktreeFile reads a file's content from the working tree.
// Returns exists=false when the file is gone.
func (i *Inspector) readWorktreeFile(path string) (content string, exists bool, err error) {
	data, err := os.ReadFile(filepath.Join(i.root, path)) //nolint:gosec // path comes from git status
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), true, nil
}

// treeFileContent retrieves a file's content from a tree.
// Returns empty string if the tree is nil or the file doesn't exist.
func treeFileContent(tree *object.Tree, path string) string {
	if tree == nil {
		return ""
	}
	file, err := tree.File(path)
	if err != nil {
		return ""
	}
	content, err := file.Contents()
	if err != nil {
		return ""
	}
	return content
}

func treeHasFile(tree *object.Tree, path string) bool {
	if tree == nil {
		return false
	}
	_, err := tree.File(path)
	return err == nil
}

// isBinary reports whether content looks like binary data.
// Line-based attribution only applies to text files.
func isBinary(content string) bool {
	return strings.Contains(content, "\x00")
}

func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}
