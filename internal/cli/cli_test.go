package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/exec"
	"github.com/ganban/ganban/internal/render"
)

const cliTip = "1111111111111111111111111111111111111111"

// cliStub scripts a one-column board with one card plus the generic write
// path, enough for command-level tests.
func cliStub() *exec.StubRunner {
	stub := exec.NewStubRunner()
	out := func(s string) exec.CmdResult { return exec.CmdResult{Stdout: s} }

	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"}, out(cliTip+"\n"))
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", cliTip + "^{tree}"}, out("tree-base\n"))
	stub.On("git", []string{"ls-tree", "-z", cliTip},
		out("040000 tree oid-all\t.all\x00040000 tree oid-col\t1.todo\x00100644 blob oid-root\tindex.md\x00"))
	stub.On("git", []string{"ls-tree", "-z", "oid-all"}, out("100644 blob oid-c1\t001.md\x00"))
	stub.On("git", []string{"ls-tree", "-z", "oid-col"},
		out("100644 blob oid-coldoc\tindex.md\x00120000 blob oid-l1\t01.fix-login.md\x00"))
	stub.On("git", []string{"cat-file", "blob", "oid-coldoc"}, out("# Todo\n"))
	stub.On("git", []string{"cat-file", "blob", "oid-root"}, out("# Demo Board\n"))
	stub.On("git", []string{"cat-file", "blob", "oid-c1"}, out("# Fix login\n\nUsers cannot log in.\n"))
	stub.On("git", []string{"cat-file", "blob", "oid-l1"}, out("../.all/001.md"))
	stub.On("git", []string{"log", "--all", "-n", "200", "--format=%aN <%aE>"}, exec.CmdResult{ExitCode: 1})
	stub.On("git", []string{"remote"}, exec.CmdResult{})

	stub.Fallback = func(name string, args []string, opts exec.RunOpts) (exec.CmdResult, error) {
		switch args[0] {
		case "config":
			return exec.CmdResult{ExitCode: 1}, nil
		case "hash-object":
			return out("oid-blob\n"), nil
		case "mktree":
			return out("tree-new\n"), nil
		case "commit-tree":
			return out("commit-new\n"), nil
		case "update-ref":
			return exec.CmdResult{}, nil
		}
		return exec.CmdResult{ExitCode: 127, Stderr: "unexpected: " + strings.Join(args, " ")}, nil
	}
	return stub
}

func runCLI(t *testing.T, stub *exec.StubRunner, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), stub, append([]string{"--repo", "/repo"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestBoardCommand(t *testing.T) {
	stdout, _, err := runCLI(t, cliStub(), "board")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Demo Board")
	assert.Contains(t, stdout, "#001  Fix login")
}

func TestBoardCommandJSON(t *testing.T) {
	stdout, _, err := runCLI(t, cliStub(), "board", "--json")
	require.NoError(t, err)

	var summary render.BoardSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "Demo Board", summary.Title)
	require.Len(t, summary.Columns, 1)
	assert.Equal(t, "Todo", summary.Columns[0].Title)
}

func TestCardListCommand(t *testing.T) {
	stdout, _, err := runCLI(t, cliStub(), "card", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "001")
	assert.Contains(t, stdout, "Fix login")
}

func TestCardGetCommand(t *testing.T) {
	stdout, _, err := runCLI(t, cliStub(), "card", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "#001  Fix login")
	assert.Contains(t, stdout, "Users cannot log in.")
}

func TestCardGetUnknown(t *testing.T) {
	_, _, err := runCLI(t, cliStub(), "card", "get", "42")
	assert.True(t, errors.HasCode(err, errors.ECardNotFound))
}

func TestCardCreateCommand(t *testing.T) {
	stub := cliStub()
	stdout, _, err := runCLI(t, stub, "card", "create", "--column", "1", "--title", "New thing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "created card #002")

	// The save went through commit-tree and a CAS ref update.
	var sawCommit, sawUpdate bool
	for _, call := range stub.Calls {
		switch call.Args[0] {
		case "commit-tree":
			sawCommit = true
			assert.Contains(t, call.Args, "ganban: create card 002 (New thing)")
		case "update-ref":
			sawUpdate = true
			assert.Equal(t, []string{"update-ref", "refs/heads/ganban", "commit-new", cliTip}, call.Args)
		}
	}
	assert.True(t, sawCommit)
	assert.True(t, sawUpdate)
}

func TestCardCreateRequiresTitle(t *testing.T) {
	_, _, err := runCLI(t, cliStub(), "card", "create")
	assert.True(t, errors.HasCode(err, errors.EUsage))
}

func TestColumnListCommand(t *testing.T) {
	stdout, _, err := runCLI(t, cliStub(), "column", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Todo")
	assert.Contains(t, stdout, "(1 cards)")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, cliStub(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "ganban "))
}

func TestBoardWithoutInit(t *testing.T) {
	stub := cliStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"},
		exec.CmdResult{ExitCode: 1})
	_, _, err := runCLI(t, stub, "board")
	assert.True(t, errors.HasCode(err, errors.ENoBoard))
}

func TestInitCommand(t *testing.T) {
	stub := cliStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"},
		exec.CmdResult{ExitCode: 1})
	stdout, _, err := runCLI(t, stub, "init", "--title", "Team Board")
	require.NoError(t, err)
	assert.Contains(t, stdout, "initialized board on ganban")
}

func TestBranchOverrideFlag(t *testing.T) {
	stub := cliStub()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/tasks"},
		exec.CmdResult{ExitCode: 1})
	_, _, err := runCLI(t, stub, "--branch", "tasks", "board")
	assert.True(t, errors.HasCode(err, errors.ENoBoard))
}
