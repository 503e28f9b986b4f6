package model

import (
	"strconv"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/ids"
)

// Effects reports the identifier churn a mutation caused, so callers can
// explain renames and so replayed operations stay observable.
type Effects struct {
	// PositionRenames maps old to new position ids within the affected
	// column.
	PositionRenames map[string]string
	// OrderRenames maps old to new column order ids.
	OrderRenames map[string]string
}

// Merge folds another mutation's effects into this one.
func (e Effects) Merge(other Effects) Effects {
	out := e
	for k, v := range other.PositionRenames {
		if out.PositionRenames == nil {
			out.PositionRenames = make(map[string]string)
		}
		out.PositionRenames[k] = v
	}
	for k, v := range other.OrderRenames {
		if out.OrderRenames == nil {
			out.OrderRenames = make(map[string]string)
		}
		out.OrderRenames[k] = v
	}
	return out
}

// CreateCard adds a card to the store and links it at the tail of the
// column with the given order id. Returns the new card id.
func CreateCard(b *Board, columnOrder, title, body string) (string, error) {
	col, err := b.FindColumn(columnOrder)
	if err != nil {
		return "", err
	}
	id := ids.Decimal.Next(b.Cards.Keys(), b.Widths.Card)
	card := NewCard()
	card.Suppress(func() {
		card.Sections.Put(title, body)
	})
	b.Cards.Set(id, card)

	pos := ids.Decimal.Next(col.Links.Keys(), b.Widths.Position)
	col.Links.Put(pos, Link{CardID: id})
	return id, nil
}

// MoveCard removes a card's link from the source column and inserts it
// into the destination column at index. The card document is untouched.
// An empty srcOrder means the single column linking the card; a card
// linked from several columns must name its source. Moving a card with
// no link at all relinks an archived card.
func MoveCard(b *Board, cardID, srcOrder, destOrder string, index int) (Effects, error) {
	id, _, err := b.FindCard(cardID)
	if err != nil {
		return Effects{}, err
	}
	dest, err := b.FindColumn(destOrder)
	if err != nil {
		return Effects{}, err
	}
	src, pos, err := locateIn(b, id, srcOrder)
	switch {
	case err == nil:
		src.Links.Delete(pos)
	case srcOrder == "" && errors.HasCode(err, errors.ECardNotFound):
		// Archived card: nothing to unlink.
	default:
		return Effects{}, err
	}
	return insertLink(b, dest, id, index), nil
}

// ReorderCard moves a card to index within the column with columnOrder,
// renaming only the minimal contiguous run of position ids needed to
// open a slot. An empty columnOrder means the single column linking the
// card.
func ReorderCard(b *Board, columnOrder, cardID string, index int) (Effects, error) {
	id, _, err := b.FindCard(cardID)
	if err != nil {
		return Effects{}, err
	}
	col, pos, err := locateIn(b, id, columnOrder)
	if err != nil {
		return Effects{}, err
	}
	if col.Links.IndexOf(pos) == index {
		return Effects{}, nil
	}
	col.Links.Delete(pos)
	return insertLink(b, col, id, index), nil
}

// locateIn finds the link holding id. With a column order the search is
// restricted to that column; without one the card must be linked from at
// most one column, so a multi-linked card always names its target.
func locateIn(b *Board, id, order string) (*Column, string, error) {
	if order != "" {
		col, err := b.FindColumn(order)
		if err != nil {
			return nil, "", err
		}
		for _, pos := range col.Links.Keys() {
			link, _ := col.Links.Get(pos)
			if link.CardID == id {
				return col, pos, nil
			}
		}
		return nil, "", errors.Newf(errors.ECardNotFound, "card %s is not linked in column %s", id, col.Order)
	}

	var found *Column
	var foundPos string
	count := 0
	for _, key := range b.Columns.Keys() {
		col, _ := b.Columns.Get(key)
		if col == nil {
			continue
		}
		for _, pos := range col.Links.Keys() {
			link, _ := col.Links.Get(pos)
			if link.CardID == id {
				found, foundPos = col, pos
				count++
			}
		}
	}
	switch count {
	case 0:
		return nil, "", errors.Newf(errors.ECardNotFound, "card %s is not on the board", id)
	case 1:
		return found, foundPos, nil
	default:
		return nil, "", errors.Newf(errors.EUsage, "card %s is linked from %d columns; name the column", id, count)
	}
}

// ArchiveCard removes a card's link from whatever column holds it. The
// document stays in the store. Archiving an already-archived card is a
// no-op, which keeps the operation safe to replay.
func ArchiveCard(b *Board, cardID string) error {
	id, _, err := b.FindCard(cardID)
	if err != nil {
		return err
	}
	if col, pos, ok := b.Locate(id); ok {
		col.Links.Delete(pos)
	}
	return nil
}

// insertLink places cardID at index in col. If a free position value exists
// at that index it is used; otherwise the contiguous run of links from
// index up to the first gap shifts by one.
func insertLink(b *Board, col *Column, cardID string, index int) Effects {
	a := ids.Decimal
	w := b.Widths.Position
	keys := col.Links.Keys()
	if index < 0 || index > len(keys) {
		index = len(keys)
	}
	if index == len(keys) {
		col.Links.Put(a.Next(keys, w), Link{CardID: cardID})
		return Effects{}
	}

	vals := make([]uint64, len(keys))
	for i, k := range keys {
		v, ok := a.Parse(k)
		if !ok {
			// A foreign position id defeats value arithmetic; renumber
			// the whole column instead.
			return renumberAndInsert(b, col, cardID, index)
		}
		vals[i] = v
	}

	var prev uint64
	if index > 0 {
		prev = vals[index-1]
	}
	want := prev + 1
	if vals[index] > want {
		col.Links.InsertAt(index, a.Format(want, w), Link{CardID: cardID})
		return Effects{}
	}
	if vals[index] < want {
		// Zero-based or duplicate position values: shifting would rename
		// an existing link onto the id the new link needs. Renumber.
		return renumberAndInsert(b, col, cardID, index)
	}

	// Shift keys[index..run] up by one, stopping at the first gap.
	run := index
	for run+1 < len(keys) && vals[run+1] == vals[run]+1 {
		run++
	}
	renames := make(map[string]string, run-index+1)
	for i := run; i >= index; i-- {
		newKey := a.Format(vals[i]+1, w)
		col.Links.Rename(keys[i], newKey)
		renames[keys[i]] = newKey
	}
	col.Links.InsertAt(index, a.Format(want, w), Link{CardID: cardID})
	return Effects{PositionRenames: renames}
}

// renumberAndInsert rebuilds the whole position sequence as 1..n. Fallback
// for columns whose position ids do not parse.
func renumberAndInsert(b *Board, col *Column, cardID string, index int) Effects {
	a := ids.Decimal
	w := b.Widths.Position
	keys := col.Links.Keys()
	if index > len(keys) {
		index = len(keys)
	}

	old := make([]Link, len(keys))
	for i, k := range keys {
		old[i], _ = col.Links.Get(k)
	}
	for _, k := range keys {
		col.Links.Delete(k)
	}

	renames := make(map[string]string)
	final := 0
	put := func(link Link) {
		col.Links.Put(a.Format(uint64(final+1), w), link)
		final++
	}
	for i, link := range old {
		if i == index {
			put(Link{CardID: cardID})
		}
		if pos := a.Format(uint64(final+1), w); keys[i] != pos {
			renames[keys[i]] = pos
		}
		put(link)
	}
	if index == len(old) {
		put(Link{CardID: cardID})
	}
	return Effects{PositionRenames: renames}
}

// CreateColumn appends a column with the next free order id.
func CreateColumn(b *Board, title string) (*Column, error) {
	var orders []string
	for _, c := range b.Ordered() {
		orders = append(orders, c.Order)
	}
	order := ids.Decimal.Next(orders, b.Widths.Column)
	col := NewColumn(order, Slugify(title))
	col.Suppress(func() {
		col.Sections.Put(title, "")
	})

	// Insert before any hidden columns so the ordered sequence stays
	// contiguous at the front of the list.
	insertAt := b.Columns.Len()
	for i, key := range b.Columns.Keys() {
		if len(key) > 0 && key[0] == '.' {
			insertAt = i
			break
		}
	}
	b.Columns.InsertAt(insertAt, order, col)
	return col, nil
}

// RenameColumn retitles a column; its slug and on-branch directory name
// follow on the next save.
func RenameColumn(b *Board, order, title string) error {
	col, err := b.FindColumn(order)
	if err != nil {
		return err
	}
	col.Slug = Slugify(title)
	if col.Sections.Len() == 0 {
		col.Sections.Put(title, "")
	} else {
		col.Sections.RenameFirst(title)
	}
	return nil
}

// MoveColumn repositions a column and renumbers the visible sequence back
// to contiguous 1..n. Returns the order renames, which the writer turns
// into directory renames.
func MoveColumn(b *Board, order string, index int) (Effects, error) {
	col, err := b.FindColumn(order)
	if err != nil {
		return Effects{}, err
	}

	visible := b.Ordered()
	if index < 0 || index >= len(visible) {
		index = len(visible) - 1
	}
	from := -1
	for i, c := range visible {
		if c == col {
			from = i
			break
		}
	}
	if from == index {
		return Effects{}, nil
	}

	reordered := make([]*Column, 0, len(visible))
	for _, c := range visible {
		if c != col {
			reordered = append(reordered, c)
		}
	}
	reordered = append(reordered[:index], append([]*Column{col}, reordered[index:]...)...)

	oldKeys := make([]string, len(reordered))
	for i, c := range reordered {
		oldKeys[i] = c.Order
	}
	newKeys, renames := ids.Decimal.Renumber(oldKeys, b.Widths.Column)

	// Reposition first, then rename in two phases so swapped ids never
	// collide mid-flight.
	keySeq := append([]string{}, oldKeys...)
	for _, key := range b.Columns.Keys() {
		if len(key) > 0 && key[0] == '.' {
			keySeq = append(keySeq, key)
		}
	}
	b.Columns.Reorder(keySeq)
	for i := range reordered {
		if oldKeys[i] != newKeys[i] {
			b.Columns.Rename(oldKeys[i], "~"+newKeys[i])
		}
	}
	for i, moved := range reordered {
		if oldKeys[i] != newKeys[i] {
			b.Columns.Rename("~"+newKeys[i], newKeys[i])
			moved.Order = newKeys[i]
		}
	}
	return Effects{OrderRenames: renames}, nil
}

// ArchiveColumn hides a column: it moves to a dot-prefixed directory and
// leaves the ordered sequence. Its links and cards stay intact.
func ArchiveColumn(b *Board, order string) error {
	col, err := b.FindColumn(order)
	if err != nil {
		return err
	}
	oldKey := col.key()
	col.Hidden = true
	col.Order = ""
	// An existing hidden column of the same slug would collide both as a
	// key and as an on-branch directory; uniquify the slug itself.
	base := col.Slug
	for i := 1; b.Columns.Has(col.key()); i++ {
		col.Slug = base + "-" + strconv.Itoa(i)
	}
	used := b.Columns.Rename(oldKey, col.key())
	// Hidden columns sit after the ordered sequence.
	keys := b.Columns.Keys()
	b.Columns.Reorder(append(withoutKey(keys, used), used))
	return nil
}

func withoutKey(keys []string, drop string) []string {
	out := make([]string, 0, len(keys)-1)
	for _, k := range keys {
		if k != drop {
			out = append(out, k)
		}
	}
	return out
}

// AddComment appends an attributed, dated entry to a card's Comments
// section. Entries are append-only.
func AddComment(b *Board, cardID string, c codec.Comment) error {
	_, card, err := b.FindCard(cardID)
	if err != nil {
		return err
	}
	body, _ := card.Sections.Get(codec.SectionComments)
	card.Sections.Put(codec.SectionComments, codec.AppendComment(body, c))
	return nil
}

// LinkCards records a typed relation ("blocks", "see-also", …) from one
// card to another in the source card's Links section.
func LinkCards(b *Board, fromID, kind, toID string) error {
	from, card, err := b.FindCard(fromID)
	if err != nil {
		return err
	}
	to, _, err := b.FindCard(toID)
	if err != nil {
		return err
	}
	if from == to {
		return errors.New(errors.EUsage, "cannot link a card to itself")
	}
	body, _ := card.Sections.Get(codec.SectionLinks)
	card.Sections.Put(codec.SectionLinks, codec.AppendRelation(body, codec.Relation{Kind: kind, Target: to}))
	return nil
}

// SetCardMeta sets one front-matter key on a card; a nil value deletes it.
func SetCardMeta(b *Board, cardID, key string, value any) error {
	_, card, err := b.FindCard(cardID)
	if err != nil {
		return err
	}
	if value == nil {
		card.Meta.Delete(key)
	} else {
		card.Meta.Set(key, value)
	}
	card.repaired()
	return nil
}

// SetCardBody replaces the body of a card's first section, repairing a
// non-canonical card in the process.
func SetCardBody(b *Board, cardID, body string) error {
	_, card, err := b.FindCard(cardID)
	if err != nil {
		return err
	}
	if key, _, ok := card.Sections.First(); ok {
		card.Sections.Put(key, body)
	} else {
		card.Sections.Put("", body)
	}
	card.repaired()
	return nil
}

// RenameCard retitles a card; symlink filenames follow on the next save.
func RenameCard(b *Board, cardID, title string) error {
	_, card, err := b.FindCard(cardID)
	if err != nil {
		return err
	}
	if card.Sections.Len() == 0 {
		card.Sections.Put(title, "")
	} else {
		card.Sections.RenameFirst(title)
	}
	card.repaired()
	return nil
}

// repaired clears the non-canonical state after an explicit edit: the next
// save serializes from the tree, not the preserved raw bytes.
func (c *Card) repaired() {
	if c.NonCanonical {
		c.NonCanonical = false
		c.raw = nil
	}
}
