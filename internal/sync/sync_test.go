package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ganban/ganban/internal/exec"
	"github.com/ganban/ganban/internal/gitx"
)

const (
	localTip = "1111111111111111111111111111111111111111"
	peerTip  = "2222222222222222222222222222222222222222"
	baseTip  = "3333333333333333333333333333333333333333"
	newTip   = "4444444444444444444444444444444444444444"
)

// scriptBoardLoad satisfies the post-integration scan with a minimal, clean
// board at whatever commit rev-parse of the branch returns.
func scriptBoardLoad(stub *exec.StubRunner, commit string) {
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", commit + "^{tree}"},
		exec.CmdResult{Stdout: "tree-" + commit[:4] + "\n"})
	stub.On("git", []string{"ls-tree", "-z", commit},
		exec.CmdResult{Stdout: "040000 tree oid-all\t.all\x00100644 blob oid-root\tindex.md\x00"})
	stub.On("git", []string{"ls-tree", "-z", "oid-all"}, exec.CmdResult{})
	stub.On("git", []string{"cat-file", "blob", "oid-root"}, exec.CmdResult{Stdout: "# Demo Board\n"})
	stub.On("git", []string{"log", "--all", "-n", "200", "--format=%aN <%aE>"}, exec.CmdResult{ExitCode: 1})
}

func baseStub() *exec.StubRunner {
	stub := exec.NewStubRunner()
	stub.On("git", []string{"remote"}, exec.CmdResult{Stdout: "origin\n"})
	stub.On("git", []string{"fetch", "--prune", "origin"}, exec.CmdResult{})
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"},
		exec.CmdResult{Stdout: localTip + "\n"})
	return stub
}

func newEngine(stub *exec.StubRunner) *Engine {
	return &Engine{
		Git:      gitx.New(stub, "/repo"),
		Branch:   "ganban",
		Upstream: "origin",
	}
}

func calls(stub *exec.StubRunner, sub string) int {
	n := 0
	for _, c := range stub.Calls {
		if len(c.Args) > 0 && c.Args[0] == sub {
			n++
		}
	}
	return n
}

func TestCycleFastForwards(t *testing.T) {
	stub := baseStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/remotes/origin/ganban"},
		exec.CmdResult{Stdout: peerTip + "\n"})
	stub.On("git", []string{"merge-base", "--is-ancestor", peerTip, localTip},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"merge-base", "--is-ancestor", localTip, peerTip},
		exec.CmdResult{})
	stub.On("git", []string{"update-ref", "refs/heads/ganban", peerTip, localTip},
		exec.CmdResult{})
	scriptBoardLoad(stub, localTip) // scan re-reads the branch head

	engine := newEngine(stub)
	flushed := false
	engine.Flush = func(context.Context) error { flushed = true; return nil }

	report, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.True(t, flushed, "flush runs before integration")
	assert.Equal(t, []string{"origin"}, report.Fetched)
	assert.True(t, report.Advanced)
	assert.Empty(t, report.Conflicts)
	// Upstream already holds the fast-forwarded tip; nothing to push.
	assert.False(t, report.Pushed)
	assert.Zero(t, calls(stub, "push"))
}

func TestCycleRebasesLocalCommits(t *testing.T) {
	stub := baseStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/remotes/origin/ganban"},
		exec.CmdResult{Stdout: peerTip + "\n"})
	stub.On("git", []string{"merge-base", "--is-ancestor", peerTip, localTip},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"merge-base", "--is-ancestor", localTip, peerTip},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"merge-base", localTip, peerTip},
		exec.CmdResult{Stdout: baseTip + "\n"})
	stub.On("git", []string{"rev-list", "--reverse", peerTip + ".." + localTip},
		exec.CmdResult{Stdout: localTip + "\n"})
	stub.On("git", []string{"merge-tree", "--write-tree", "--merge-base=" + localTip + "^", peerTip, localTip},
		exec.CmdResult{Stdout: "tree-merged\n"})
	stub.On("git", []string{"log", "-1", "--format=%B", localTip},
		exec.CmdResult{Stdout: "ganban: create card\n"})
	stub.On("git", []string{"commit-tree", "tree-merged", "-p", peerTip, "-m", "ganban: create card"},
		exec.CmdResult{Stdout: newTip + "\n"})
	stub.On("git", []string{"update-ref", "refs/heads/ganban", newTip, localTip},
		exec.CmdResult{})
	scriptBoardLoad(stub, localTip)
	stub.On("git", []string{"push", "origin", "refs/heads/ganban:refs/heads/ganban"},
		exec.CmdResult{})

	report, err := newEngine(stub).Cycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Advanced)
	assert.True(t, report.Pushed)
	assert.Empty(t, report.Conflicts)
}

func TestCycleStopsOnContentConflict(t *testing.T) {
	stub := baseStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/remotes/origin/ganban"},
		exec.CmdResult{Stdout: peerTip + "\n"})
	stub.On("git", []string{"merge-base", "--is-ancestor", peerTip, localTip},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"merge-base", "--is-ancestor", localTip, peerTip},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"merge-base", localTip, peerTip},
		exec.CmdResult{Stdout: baseTip + "\n"})
	stub.On("git", []string{"rev-list", "--reverse", peerTip + ".." + localTip},
		exec.CmdResult{Stdout: localTip + "\n"})
	stub.On("git", []string{"merge-tree", "--write-tree", "--merge-base=" + localTip + "^", peerTip, localTip},
		exec.CmdResult{
			ExitCode: 1,
			Stdout: "tree-partial\n" +
				"100644 oid 1\t.all/001.md\n\n" +
				"CONFLICT (content): Merge conflict in .all/001.md\n",
		})

	report, err := newEngine(stub).Cycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, ConflictContent, report.Conflicts[0].Kind)
	assert.Equal(t, []string{".all/001.md"}, report.Conflicts[0].Paths)
	assert.Equal(t, "origin", report.Conflicts[0].Remote)

	// The rebase aborted wholesale: the branch never moved, nothing was
	// committed or pushed.
	assert.Zero(t, calls(stub, "update-ref"))
	assert.Zero(t, calls(stub, "commit-tree"))
	assert.Zero(t, calls(stub, "push"))
}

func TestCycleSurfacesBrokenLinkAfterIntegration(t *testing.T) {
	stub := baseStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/remotes/origin/ganban"},
		exec.CmdResult{Stdout: peerTip + "\n"})
	stub.On("git", []string{"merge-base", "--is-ancestor", peerTip, localTip},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"merge-base", "--is-ancestor", localTip, peerTip},
		exec.CmdResult{})
	stub.On("git", []string{"update-ref", "refs/heads/ganban", peerTip, localTip},
		exec.CmdResult{})

	// The merged board has a column link to a card nobody has anymore.
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", localTip + "^{tree}"},
		exec.CmdResult{Stdout: "tree-1111\n"})
	stub.On("git", []string{"ls-tree", "-z", localTip},
		exec.CmdResult{Stdout: "040000 tree oid-all\t.all\x00" +
			"040000 tree oid-col\t1.todo\x00" +
			"100644 blob oid-root\tindex.md\x00"})
	stub.On("git", []string{"ls-tree", "-z", "oid-all"}, exec.CmdResult{})
	stub.On("git", []string{"ls-tree", "-z", "oid-col"},
		exec.CmdResult{Stdout: "120000 blob oid-link\t01.ghost.md\x00"})
	stub.On("git", []string{"cat-file", "blob", "oid-root"}, exec.CmdResult{Stdout: "# Demo Board\n"})
	stub.On("git", []string{"cat-file", "blob", "oid-link"}, exec.CmdResult{Stdout: "../.all/007.md"})
	stub.On("git", []string{"log", "--all", "-n", "200", "--format=%aN <%aE>"}, exec.CmdResult{ExitCode: 1})

	report, err := newEngine(stub).Cycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, ConflictBrokenLink, report.Conflicts[0].Kind)
	assert.Equal(t, []string{"1.todo/01.ghost.md"}, report.Conflicts[0].Paths)
	assert.Zero(t, calls(stub, "push"), "conflicts block the push")
}

func TestCycleToleratesFetchFailure(t *testing.T) {
	stub := exec.NewStubRunner()
	stub.On("git", []string{"remote"}, exec.CmdResult{Stdout: "origin\nbackup\n"})
	stub.On("git", []string{"fetch", "--prune", "origin"},
		exec.CmdResult{ExitCode: 128, Stderr: "fatal: unable to access"})
	stub.On("git", []string{"fetch", "--prune", "backup"}, exec.CmdResult{})
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"},
		exec.CmdResult{Stdout: localTip + "\n"})
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/remotes/backup/ganban"},
		exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/remotes/origin/ganban"},
		exec.CmdResult{ExitCode: 1})

	engine := newEngine(stub)
	report, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"origin"}, report.Failed)
	assert.Equal(t, []string{"backup"}, report.Fetched)
	assert.False(t, report.Advanced)
}
