package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSetGetDelete(t *testing.T) {
	m := NewMap[string]()
	m.Set("title", "Board")
	m.Set("owner", "jane")

	v, ok := m.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Board", v)
	assert.Equal(t, []string{"title", "owner"}, m.Keys())

	m.Delete("title")
	assert.False(t, m.Has("title"))
	assert.Equal(t, []string{"owner"}, m.Keys())
}

func TestMapWatchFiresSynchronously(t *testing.T) {
	m := NewMap[int]()
	var got []Change
	m.Watch("n", func(c Change) { got = append(got, c) })

	m.Set("n", 1)
	m.Set("n", 2)
	m.Delete("n")

	require.Len(t, got, 3)
	assert.Equal(t, OpInsert, got[0].Op)
	assert.Equal(t, OpUpdate, got[1].Op)
	assert.Equal(t, 1, got[1].Old)
	assert.Equal(t, 2, got[1].New)
	assert.Equal(t, OpRemove, got[2].Op)
}

func TestWatchCancel(t *testing.T) {
	m := NewMap[int]()
	calls := 0
	cancel := m.Watch("n", func(Change) { calls++ })
	m.Set("n", 1)
	cancel()
	m.Set("n", 2)
	assert.Equal(t, 1, calls)
}

func TestBubblingToRoot(t *testing.T) {
	// board
	//   cards (list)
	//     001 (branch)
	//       meta (map)
	var board Branch
	cards := NewList[*fakeCard]()
	board.Wire("cards", cards)

	card := newFakeCard()
	cards.Put("001", card)

	var got []Change
	board.WatchAll(func(c Change) { got = append(got, c) })

	card.Meta.Set("due", "2026-09-01")

	require.Len(t, got, 1)
	assert.Equal(t, "cards.001.meta", got[0].Path)
	assert.Equal(t, "due", got[0].Key)
	assert.Equal(t, OpInsert, got[0].Op)
}

type fakeCard struct {
	Branch
	Meta     *Map[string]
	Sections *List[string]
}

func newFakeCard() *fakeCard {
	c := &fakeCard{Meta: NewMap[string](), Sections: NewList[string]()}
	c.Wire("meta", c.Meta)
	c.Wire("sections", c.Sections)
	return c
}

func TestSuppressDisablesWatchers(t *testing.T) {
	var board Branch
	cards := NewList[*fakeCard]()
	board.Wire("cards", cards)

	calls := 0
	board.WatchAll(func(Change) { calls++ })

	before := board.Version()
	board.Suppress(func() {
		card := newFakeCard()
		cards.Put("001", card)
		card.Meta.Set("due", "tomorrow")
	})

	assert.Equal(t, 0, calls)
	assert.Greater(t, board.Version(), before, "versions advance even when suppressed")

	// Watchers fire again after the scope ends.
	cards.Delete("001")
	assert.Equal(t, 1, calls)
}

func TestListOrderOps(t *testing.T) {
	l := NewList[string]()
	l.Put("01", "a")
	l.Put("03", "c")
	l.InsertAt(1, "02", "b")

	assert.Equal(t, []string{"01", "02", "03"}, l.Keys())
	assert.Equal(t, 1, l.IndexOf("02"))

	k, v := l.At(2)
	assert.Equal(t, "03", k)
	assert.Equal(t, "c", v)
}

func TestListReorder(t *testing.T) {
	l := NewList[string]()
	l.Put("1", "a")
	l.Put("2", "b")
	l.Put("3", "c")

	var got []Change
	l.WatchAll(func(c Change) { got = append(got, c) })

	l.Reorder([]string{"3", "1", "2"})
	assert.Equal(t, []string{"3", "1", "2"}, l.Keys())
	require.Len(t, got, 1)
	assert.Equal(t, OpReorder, got[0].Op)
	assert.Equal(t, []string{"1", "2", "3"}, got[0].Old)

	// Key-set mismatch is a no-op.
	l.Reorder([]string{"3", "1"})
	l.Reorder([]string{"3", "1", "4"})
	assert.Equal(t, []string{"3", "1", "2"}, l.Keys())
}

func TestListRenamePreservesPosition(t *testing.T) {
	l := NewList[string]()
	l.Put("01", "a")
	l.Put("02", "b")
	l.Put("03", "c")

	used := l.Rename("02", "05")
	assert.Equal(t, "05", used)
	assert.Equal(t, []string{"01", "05", "03"}, l.Keys())

	v, ok := l.Get("05")
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestRenameCollisionDeduplicates(t *testing.T) {
	l := NewList[string]()
	l.Put("Backlog", "x")
	l.Put("Done", "y")

	used := l.Rename("Done", "Backlog")
	assert.Equal(t, "Backlog (1)", used)
	assert.Equal(t, []string{"Backlog", "Backlog (1)"}, l.Keys())
}

func TestRenameFirst(t *testing.T) {
	l := NewList[string]()
	l.Put("Old title", "body")
	l.Put("Comments", "")

	used := l.RenameFirst("New title")
	assert.Equal(t, "New title", used)
	assert.Equal(t, []string{"New title", "Comments"}, l.Keys())
}

func TestChildRekeyedOnRename(t *testing.T) {
	cards := NewList[*fakeCard]()
	card := newFakeCard()
	cards.Put("001", card)

	cards.Rename("001", "004")
	assert.Equal(t, "004.meta", card.Meta.Path())
}

func TestChildOrphanedOnDelete(t *testing.T) {
	var board Branch
	cards := NewList[*fakeCard]()
	board.Wire("cards", cards)

	card := newFakeCard()
	cards.Put("001", card)
	cards.Delete("001")

	calls := 0
	board.WatchAll(func(Change) { calls++ })
	card.Meta.Set("due", "never") // detached: must not bubble to board
	assert.Equal(t, 0, calls)
}
