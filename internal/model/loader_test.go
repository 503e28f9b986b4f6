package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/exec"
	"github.com/ganban/ganban/internal/gitx"
)

const (
	tipCommit = "1111111111111111111111111111111111111111"
	tipTree   = "2222222222222222222222222222222222222222"
)

// stubBranch scripts a board branch into a StubRunner. Object ids are
// symbolic; only the loader's parsing is under test.
func stubBranch(t *testing.T) *exec.StubRunner {
	t.Helper()
	stub := exec.NewStubRunner()
	on := func(args []string, stdout string) {
		stub.On("git", args, exec.CmdResult{Stdout: stdout})
	}

	on([]string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"}, tipCommit+"\n")
	on([]string{"rev-parse", "--verify", "--quiet", tipCommit + "^{tree}"}, tipTree+"\n")

	on([]string{"ls-tree", "-z", tipCommit},
		"040000 tree oid-all\t.all\x00"+
			"040000 tree oid-col1\t1.todo\x00"+
			"040000 tree oid-col2\t2.done\x00"+
			"100644 blob oid-root\tindex.md\x00")
	on([]string{"cat-file", "blob", "oid-root"}, "---\nwidths:\n  card: 3\n---\n\n# Demo Board\n")

	on([]string{"ls-tree", "-z", "oid-all"},
		"100644 blob oid-c1\t001.md\x00"+
			"100644 blob oid-c2\t002.md\x00")
	on([]string{"cat-file", "blob", "oid-c1"}, "# Fix login\n\nUsers cannot log in.\n")
	on([]string{"cat-file", "blob", "oid-c2"}, "# Ship release\n")

	on([]string{"ls-tree", "-z", "oid-col1"},
		"100644 blob oid-col1doc\tindex.md\x00"+
			"120000 blob oid-l1\t01.fix-login.md\x00"+
			"100644 blob oid-stray\t02.scribbles.md\x00"+
			"120000 blob oid-l3\t03.gone.md\x00")
	on([]string{"cat-file", "blob", "oid-col1doc"}, "# Todo\n")
	on([]string{"cat-file", "blob", "oid-l1"}, "../.all/001.md")
	on([]string{"cat-file", "blob", "oid-stray"}, "# Scribbled note\n\nFound loose in the column.\n")
	on([]string{"cat-file", "blob", "oid-l3"}, "../.all/999.md")

	on([]string{"ls-tree", "-z", "oid-col2"},
		"120000 blob oid-l2\t01.ship-release.md\x00")
	on([]string{"cat-file", "blob", "oid-l2"}, "../.all/002.md")

	return stub
}

func loadFixture(t *testing.T) (*Board, []Warning) {
	t.Helper()
	g := gitx.New(stubBranch(t), "/repo")
	board, warnings, err := Load(context.Background(), g, "ganban")
	require.NoError(t, err)
	return board, warnings
}

func TestLoadBoardShape(t *testing.T) {
	board, _ := loadFixture(t)

	assert.Equal(t, "Demo Board", board.Title())
	assert.Equal(t, "refs/heads/ganban", board.Ref)
	assert.Equal(t, tipCommit, board.BaseCommit)
	assert.Equal(t, tipTree, board.BaseTree)
	assert.Equal(t, 3, board.Widths.Card)

	cols := board.Ordered()
	require.Len(t, cols, 2)
	assert.Equal(t, "Todo", cols[0].Title())
	assert.Equal(t, "done", cols[1].Title()) // no index.md, slug fallback
}

func TestLoadAdoptsStrayFile(t *testing.T) {
	board, warnings := loadFixture(t)

	// The stray regular file became card 003 at its filename position.
	card, ok := board.Cards.Get("003")
	require.True(t, ok)
	assert.Equal(t, "Scribbled note", card.Title())

	todo, _ := board.Columns.Get("1")
	link, ok := todo.Links.Get("02")
	require.True(t, ok)
	assert.Equal(t, "003", link.CardID)

	var kinds []WarningKind
	for _, w := range warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Contains(t, kinds, WarnStrayFile)
}

func TestLoadKeepsBrokenLink(t *testing.T) {
	board, warnings := loadFixture(t)

	todo, _ := board.Columns.Get("1")
	link, ok := todo.Links.Get("03")
	require.True(t, ok)
	assert.True(t, link.Broken)
	assert.Equal(t, "999", link.CardID)

	found := false
	for _, w := range warnings {
		if w.Kind == WarnBrokenLink {
			found = true
			assert.Equal(t, "1.todo/03.gone.md", w.Path)
		}
	}
	assert.True(t, found)
}

func TestLoadMissingBranch(t *testing.T) {
	stub := exec.NewStubRunner()
	stub.On("git", []string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"},
		exec.CmdResult{ExitCode: 1})

	g := gitx.New(stub, "/repo")
	_, _, err := Load(context.Background(), g, "ganban")
	assert.True(t, errors.HasCode(err, errors.ENoBoard))
}

func TestLoadSynthesizesOrderForBadColumnName(t *testing.T) {
	stub := exec.NewStubRunner()
	on := func(args []string, stdout string) {
		stub.On("git", args, exec.CmdResult{Stdout: stdout})
	}
	on([]string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"}, tipCommit+"\n")
	on([]string{"rev-parse", "--verify", "--quiet", tipCommit + "^{tree}"}, tipTree+"\n")
	on([]string{"ls-tree", "-z", tipCommit},
		"040000 tree oid-all\t.all\x00"+
			"040000 tree oid-colA\t1.todo\x00"+
			"040000 tree oid-colB\tRandom Stuff\x00"+
			"100644 blob oid-root\tindex.md\x00")
	on([]string{"cat-file", "blob", "oid-root"}, "# Demo Board\n")
	on([]string{"ls-tree", "-z", "oid-all"}, "")
	on([]string{"ls-tree", "-z", "oid-colA"}, "")
	on([]string{"ls-tree", "-z", "oid-colB"}, "")

	g := gitx.New(stub, "/repo")
	board, warnings, err := Load(context.Background(), g, "ganban")
	require.NoError(t, err)

	cols := board.Ordered()
	require.Len(t, cols, 2)
	assert.Equal(t, "2", cols[1].Order)
	assert.True(t, cols[1].NeedsRename)
	assert.Equal(t, "2.random-stuff", cols[1].DirName())

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnBadColumnName, warnings[0].Kind)
}

func TestLoadHiddenColumn(t *testing.T) {
	stub := exec.NewStubRunner()
	on := func(args []string, stdout string) {
		stub.On("git", args, exec.CmdResult{Stdout: stdout})
	}
	on([]string{"rev-parse", "--verify", "--quiet", "refs/heads/ganban"}, tipCommit+"\n")
	on([]string{"rev-parse", "--verify", "--quiet", tipCommit + "^{tree}"}, tipTree+"\n")
	on([]string{"ls-tree", "-z", tipCommit},
		"040000 tree oid-all\t.all\x00"+
			"040000 tree oid-hidden\t.icebox\x00"+
			"040000 tree oid-colA\t1.todo\x00"+
			"100644 blob oid-root\tindex.md\x00")
	on([]string{"cat-file", "blob", "oid-root"}, "# Demo Board\n")
	on([]string{"ls-tree", "-z", "oid-all"}, "")
	on([]string{"ls-tree", "-z", "oid-hidden"}, "")
	on([]string{"ls-tree", "-z", "oid-colA"}, "")

	g := gitx.New(stub, "/repo")
	board, warnings, err := Load(context.Background(), g, "ganban")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, board.Ordered(), 1)
	hidden, ok := board.Columns.Get(".icebox")
	require.True(t, ok)
	assert.True(t, hidden.Hidden)
	assert.Equal(t, "", hidden.Order)
	// Hidden columns sort after the ordered sequence.
	assert.Equal(t, []string{"1", ".icebox"}, board.Columns.Keys())
}
