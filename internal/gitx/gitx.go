// Package gitx wraps the git plumbing commands ganban needs, via
// CommandRunner. Every read and write goes through content-addressed
// primitives; nothing here ever touches a working tree or the index.
package gitx

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/exec"
)

// ZeroOID is the all-zeros object id, used with UpdateRef to assert that a
// ref does not yet exist.
const ZeroOID = "0000000000000000000000000000000000000000"

// Git runs plumbing commands against one repository.
type Git struct {
	Runner exec.CommandRunner
	Dir    string
}

// New creates a Git handle for the repository at dir.
func New(runner exec.CommandRunner, dir string) *Git {
	return &Git{Runner: runner, Dir: dir}
}

// RepoRoot discovers the repository root from cwd using
// `git rev-parse --show-toplevel`. Returns E_NO_REPO when cwd is not inside
// a repository.
func RepoRoot(ctx context.Context, runner exec.CommandRunner, cwd string) (string, error) {
	if cwd == "" {
		return "", errors.New(errors.ENoRepo, "working directory is empty")
	}
	result, err := runner.Run(ctx, "git", []string{"rev-parse", "--show-toplevel"}, exec.RunOpts{Dir: cwd})
	if err != nil {
		return "", errors.Wrap(errors.EGitNotInstalled, "failed to run git", err)
	}
	if result.ExitCode != 0 {
		return "", errors.New(errors.ENoRepo, "not inside a git repository")
	}
	out := strings.TrimSpace(result.Stdout)
	if out == "" || strings.Contains(out, "\n") {
		return "", errors.New(errors.ENoRepo, "unexpected rev-parse output")
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(cwd, out)
	}
	return filepath.Clean(out), nil
}

func (g *Git) run(ctx context.Context, args ...string) (exec.CmdResult, error) {
	return g.Runner.Run(ctx, "git", args, exec.RunOpts{Dir: g.Dir})
}

func (g *Git) runStdin(ctx context.Context, stdin []byte, args ...string) (exec.CmdResult, error) {
	return g.Runner.Run(ctx, "git", args, exec.RunOpts{Dir: g.Dir, Stdin: stdin})
}

// RevParse resolves rev to an object id. ok is false when rev does not
// exist; err is reserved for execution failures.
func (g *Git) RevParse(ctx context.Context, rev string) (string, bool, error) {
	result, err := g.run(ctx, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return "", false, errors.Wrap(errors.EInternal, "rev-parse failed", err)
	}
	if result.ExitCode != 0 {
		return "", false, nil
	}
	return strings.TrimSpace(result.Stdout), true, nil
}

// HashObject writes content to the object store and returns the blob id.
func (g *Git) HashObject(ctx context.Context, content []byte) (string, error) {
	result, err := g.runStdin(ctx, content, "hash-object", "-w", "--stdin")
	if err != nil || result.ExitCode != 0 {
		return "", errors.Wrap(errors.EObjectWrite, "hash-object failed: "+result.Stderr, err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// TreeEntry is one row of a git tree object.
type TreeEntry struct {
	Mode string // "100644", "120000", "040000"
	Type string // "blob" or "tree"
	OID  string
	Name string
}

// IsSymlink reports whether the entry is a symbolic-reference blob.
func (e TreeEntry) IsSymlink() bool { return e.Mode == "120000" }

// IsTree reports whether the entry is a subdirectory.
func (e TreeEntry) IsTree() bool { return e.Type == "tree" }

// MkTree builds a tree object from entries and returns its id.
func (g *Git) MkTree(ctx context.Context, entries []TreeEntry) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Mode + " " + e.Type + " " + e.OID + "\t" + e.Name + "\x00")
	}
	result, err := g.runStdin(ctx, []byte(b.String()), "mktree", "-z")
	if err != nil || result.ExitCode != 0 {
		return "", errors.Wrap(errors.EObjectWrite, "mktree failed: "+result.Stderr, err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// LsTree lists the entries of a tree-ish.
func (g *Git) LsTree(ctx context.Context, treeish string) ([]TreeEntry, error) {
	result, err := g.run(ctx, "ls-tree", "-z", treeish)
	if err != nil || result.ExitCode != 0 {
		return nil, errors.Wrap(errors.EObjectRead, "ls-tree failed for "+treeish, err)
	}
	var entries []TreeEntry
	for _, row := range strings.Split(result.Stdout, "\x00") {
		if row == "" {
			continue
		}
		tab := strings.IndexByte(row, '\t')
		if tab < 0 {
			continue
		}
		head := strings.Fields(row[:tab])
		if len(head) != 3 {
			continue
		}
		entries = append(entries, TreeEntry{Mode: head[0], Type: head[1], OID: head[2], Name: row[tab+1:]})
	}
	return entries, nil
}

// CatBlob returns the content of a blob object.
func (g *Git) CatBlob(ctx context.Context, oid string) ([]byte, error) {
	result, err := g.run(ctx, "cat-file", "blob", oid)
	if err != nil || result.ExitCode != 0 {
		return nil, errors.Wrap(errors.EObjectRead, "cat-file failed for "+oid, err)
	}
	return []byte(result.Stdout), nil
}

// CommitTree creates a commit object for tree with the given parents.
func (g *Git) CommitTree(ctx context.Context, tree string, parents []string, message string) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		if p != "" {
			args = append(args, "-p", p)
		}
	}
	args = append(args, "-m", message)
	result, err := g.run(ctx, args...)
	if err != nil || result.ExitCode != 0 {
		return "", errors.Wrap(errors.EObjectWrite, "commit-tree failed: "+result.Stderr, err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// CommitMessage returns the full message of a commit.
func (g *Git) CommitMessage(ctx context.Context, commit string) (string, error) {
	result, err := g.run(ctx, "log", "-1", "--format=%B", commit)
	if err != nil || result.ExitCode != 0 {
		return "", errors.Wrap(errors.EObjectRead, "log failed for "+commit, err)
	}
	return strings.TrimRight(result.Stdout, "\n"), nil
}

// TreeOf returns the tree id of a commit.
func (g *Git) TreeOf(ctx context.Context, commit string) (string, error) {
	oid, ok, err := g.RevParse(ctx, commit+"^{tree}")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Newf(errors.EObjectRead, "no tree for %s", commit)
	}
	return oid, nil
}

// UpdateRef atomically points ref at newOID. When oldOID is non-empty the
// update is compare-and-swap: it fails unless the ref currently holds
// oldOID (use ZeroOID to assert the ref must not exist). This CAS is the
// only concurrency primitive ganban uses.
func (g *Git) UpdateRef(ctx context.Context, ref, newOID, oldOID string) error {
	args := []string{"update-ref", ref, newOID}
	if oldOID != "" {
		args = append(args, oldOID)
	}
	result, err := g.run(ctx, args...)
	if err != nil {
		return errors.Wrap(errors.ERefUpdate, "update-ref failed", err)
	}
	if result.ExitCode != 0 {
		return errors.NewWithDetails(
			errors.ERefUpdate,
			"update-ref rejected: "+strings.TrimSpace(result.Stderr),
			map[string]string{"ref": ref},
		)
	}
	return nil
}

// MergeBase returns the common ancestor of two commits. ok is false when
// the commits share no history.
func (g *Git) MergeBase(ctx context.Context, a, b string) (string, bool, error) {
	result, err := g.run(ctx, "merge-base", a, b)
	if err != nil {
		return "", false, errors.Wrap(errors.EInternal, "merge-base failed", err)
	}
	if result.ExitCode != 0 {
		return "", false, nil
	}
	return strings.TrimSpace(result.Stdout), true, nil
}

// IsAncestor reports whether a is an ancestor of b.
func (g *Git) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	result, err := g.run(ctx, "merge-base", "--is-ancestor", a, b)
	if err != nil {
		return false, errors.Wrap(errors.EInternal, "merge-base --is-ancestor failed", err)
	}
	switch result.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, errors.New(errors.EObjectRead, "merge-base --is-ancestor: "+strings.TrimSpace(result.Stderr))
	}
}

// MergeResult is the outcome of a tree-level three-way merge.
type MergeResult struct {
	Tree      string
	Conflicts []string // affected paths; empty on a clean merge
}

// MergeTree performs a tree-level three-way merge without touching any
// working tree. Conflicts are reported, never resolved here.
func (g *Git) MergeTree(ctx context.Context, base, ours, theirs string) (MergeResult, error) {
	result, err := g.run(ctx, "merge-tree", "--write-tree", "--merge-base="+base, ours, theirs)
	if err != nil {
		return MergeResult{}, errors.Wrap(errors.EInternal, "merge-tree failed", err)
	}
	// Exit 0: clean merge. Exit 1: conflicts, output still holds the tree.
	if result.ExitCode > 1 {
		return MergeResult{}, errors.New(errors.EObjectRead, "merge-tree: "+strings.TrimSpace(result.Stderr))
	}
	lines := strings.Split(strings.TrimRight(result.Stdout, "\n"), "\n")
	mr := MergeResult{Tree: strings.TrimSpace(lines[0])}
	if result.ExitCode == 1 {
		mr.Conflicts = parseConflictPaths(lines[1:])
	}
	return mr, nil
}

// parseConflictPaths extracts affected paths from merge-tree's
// informational messages ("CONFLICT (content): Merge conflict in <path>").
func parseConflictPaths(lines []string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, line := range lines {
		if !strings.HasPrefix(line, "CONFLICT") {
			continue
		}
		path := line
		if idx := strings.LastIndex(line, " in "); idx >= 0 {
			path = line[idx+len(" in "):]
		} else if idx := strings.LastIndex(line, ": "); idx >= 0 {
			path = line[idx+2:]
		}
		path = strings.TrimSpace(path)
		if path != "" && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	return paths
}

// RevList returns the commits in rangeSpec, oldest first.
func (g *Git) RevList(ctx context.Context, rangeSpec string) ([]string, error) {
	result, err := g.run(ctx, "rev-list", "--reverse", rangeSpec)
	if err != nil || result.ExitCode != 0 {
		return nil, errors.Wrap(errors.EObjectRead, "rev-list failed for "+rangeSpec, err)
	}
	var commits []string
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		if line != "" {
			commits = append(commits, line)
		}
	}
	return commits, nil
}

// Remotes lists the configured remote names.
func (g *Git) Remotes(ctx context.Context) ([]string, error) {
	result, err := g.run(ctx, "remote")
	if err != nil || result.ExitCode != 0 {
		return nil, errors.Wrap(errors.EInternal, "git remote failed", err)
	}
	var remotes []string
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		if line != "" {
			remotes = append(remotes, line)
		}
	}
	return remotes, nil
}

// Fetch updates the remote-tracking refs for remote. Failures map to
// E_REMOTE so callers can treat them as transient.
func (g *Git) Fetch(ctx context.Context, remote string) error {
	result, err := g.run(ctx, "fetch", "--prune", remote)
	if err != nil {
		return errors.Wrap(errors.ERemote, "fetch "+remote+" failed", err)
	}
	if result.ExitCode != 0 {
		return errors.NewWithDetails(
			errors.ERemote,
			"fetch "+remote+": "+strings.TrimSpace(result.Stderr),
			map[string]string{"remote": remote},
		)
	}
	return nil
}

// Push publishes branch to remote.
func (g *Git) Push(ctx context.Context, remote, branch string) error {
	refspec := "refs/heads/" + branch + ":refs/heads/" + branch
	result, err := g.run(ctx, "push", remote, refspec)
	if err != nil {
		return errors.Wrap(errors.ERemote, "push "+remote+" failed", err)
	}
	if result.ExitCode != 0 {
		return errors.NewWithDetails(
			errors.ERemote,
			"push "+remote+": "+strings.TrimSpace(result.Stderr),
			map[string]string{"remote": remote},
		)
	}
	return nil
}

// ConfigGet reads one git config value. ok is false when unset.
func (g *Git) ConfigGet(ctx context.Context, key string) (string, bool) {
	result, err := g.run(ctx, "config", "--get", key)
	if err != nil || result.ExitCode != 0 {
		return "", false
	}
	value := strings.TrimSpace(result.Stdout)
	return value, value != ""
}

// Committers returns the unique "Name <email>" authors of recent history,
// sorted, across all refs. Used for comment-attribution choices.
func (g *Git) Committers(ctx context.Context, max int) ([]string, error) {
	result, err := g.run(ctx, "log", "--all", "-n", strconv.Itoa(max), "--format=%aN <%aE>")
	if err != nil || result.ExitCode != 0 {
		return nil, nil // empty history is not an error
	}
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		if line != "" && !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	sort.Strings(out)
	return out, nil
}
