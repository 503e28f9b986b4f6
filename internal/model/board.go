// Package model holds the in-memory board: the reactive tree of cards and
// columns, the loader that builds it from a branch tip, the writer that
// commits it back, and the mutation operations the CLI and sync engine use.
package model

import (
	"strconv"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/ids"
	"github.com/ganban/ganban/internal/tree"
)

// CardStoreDir is the hidden directory holding every card document.
const CardStoreDir = ".all"

// Widths configures identifier zero-padding. Stored in the root document
// front-matter under "widths"; absent keys fall back to defaults.
type Widths struct {
	Card     int
	Column   int
	Position int
}

// DefaultWidths pads cards to three digits, columns to one, and link
// positions to two.
var DefaultWidths = Widths{Card: 3, Column: 1, Position: 2}

// Link is one card reference inside a column, keyed by its position id in
// the column's Links list.
type Link struct {
	CardID string
	// Broken marks a link whose target card was missing at load time. The
	// link is kept so a human can repair it.
	Broken bool
}

// Card is one task document from the card store.
type Card struct {
	tree.Branch
	Meta     *tree.Map[any]
	Sections *tree.List[string] // keyed by section title, value is the body

	// NonCanonical cards did not parse cleanly (broken front-matter or
	// conflict markers). Their original bytes are kept and written back
	// verbatim until a mutation repairs them.
	NonCanonical bool
	raw          []byte
}

// NewCard creates an empty card with its children wired for bubbling.
func NewCard() *Card {
	c := &Card{
		Meta:     tree.NewMap[any](),
		Sections: tree.NewList[string](),
	}
	c.Wire("meta", c.Meta)
	c.Wire("sections", c.Sections)
	return c
}

// Title returns the card's first section title, or "" when untitled.
func (c *Card) Title() string {
	key, _, ok := c.Sections.First()
	if !ok {
		return ""
	}
	return key
}

// Column is one ordered lane of the board.
type Column struct {
	tree.Branch
	// Order is the column's order identifier ("1", "2", …). Empty for
	// hidden columns, which sit outside the ordered sequence.
	Order string
	Slug  string
	// Hidden columns live in dot-prefixed directories and are excluded
	// from ordering and renumbering.
	Hidden   bool
	Meta     *tree.Map[any]
	Sections *tree.List[string]
	Links    *tree.List[Link] // keyed by position id

	// NeedsRename marks a column loaded from a directory whose name did
	// not carry an order prefix; the writer repairs the name on save.
	NeedsRename bool
}

// NewColumn creates a column with its children wired for bubbling.
func NewColumn(order, slug string) *Column {
	c := &Column{
		Order:    order,
		Slug:     slug,
		Meta:     tree.NewMap[any](),
		Sections: tree.NewList[string](),
		Links:    tree.NewList[Link](),
	}
	c.Wire("meta", c.Meta)
	c.Wire("sections", c.Sections)
	c.Wire("links", c.Links)
	return c
}

// Title returns the column's document title, falling back to the slug.
func (c *Column) Title() string {
	if key, _, ok := c.Sections.First(); ok && key != "" {
		return key
	}
	return c.Slug
}

// DirName returns the directory the column serializes to.
func (c *Column) DirName() string {
	if c.Hidden {
		return "." + c.Slug
	}
	return c.Order + "." + c.Slug
}

// key returns the column's key in the board's Columns list.
func (c *Column) key() string {
	if c.Hidden {
		return "." + c.Slug
	}
	return c.Order
}

// Board is the root of the reactive tree: one loaded branch tip.
type Board struct {
	tree.Branch
	Meta     *tree.Map[any]
	Sections *tree.List[string]
	Cards    *tree.Map[*Card]    // keyed by card id
	Columns  *tree.List[*Column] // keyed by order id ("." + slug for hidden)

	Widths Widths

	// Ref, BaseCommit and BaseTree tie the in-memory state to the branch
	// tip it was loaded from. Save uses them for its compare-and-swap.
	Ref        string
	BaseCommit string
	BaseTree   string

	// Committers is the recent-author roster, for comment attribution.
	Committers []string
}

// NewBoard creates an empty board with all containers wired.
func NewBoard() *Board {
	b := &Board{
		Meta:     tree.NewMap[any](),
		Sections: tree.NewList[string](),
		Cards:    tree.NewMap[*Card](),
		Columns:  tree.NewList[*Column](),
		Widths:   DefaultWidths,
	}
	b.Wire("meta", b.Meta)
	b.Wire("sections", b.Sections)
	b.Wire("cards", b.Cards)
	b.Wire("columns", b.Columns)
	return b
}

// Title returns the board title from its root document.
func (b *Board) Title() string {
	if key, _, ok := b.Sections.First(); ok && key != "" {
		return key
	}
	return "Board"
}

// Ordered returns the visible columns in board order.
func (b *Board) Ordered() []*Column {
	var cols []*Column
	for _, key := range b.Columns.Keys() {
		col, _ := b.Columns.Get(key)
		if col != nil && !col.Hidden {
			cols = append(cols, col)
		}
	}
	return cols
}

// FindCard resolves input against the card store: exact id, numeric
// equivalent, or unique prefix. An ambiguous prefix is E_BAD_IDENTIFIER,
// anything unmatched is E_CARD_NOT_FOUND.
func (b *Board) FindCard(input string) (string, *Card, error) {
	id, err := ids.Decimal.Resolve(input, b.Cards.Keys())
	if err != nil {
		return "", nil, resolveError(err, errors.ECardNotFound, "no such card")
	}
	card, _ := b.Cards.Get(id)
	return id, card, nil
}

// FindColumn resolves input against visible column orders.
func (b *Board) FindColumn(input string) (*Column, error) {
	var orders []string
	for _, col := range b.Ordered() {
		orders = append(orders, col.Order)
	}
	order, err := ids.Decimal.Resolve(input, orders)
	if err != nil {
		return nil, resolveError(err, errors.EColumnNotFound, "no such column")
	}
	col, _ := b.Columns.Get(order)
	return col, nil
}

func resolveError(err error, notFound errors.Code, msg string) error {
	if _, ok := err.(*ids.ErrAmbiguous); ok {
		return errors.Wrap(errors.EBadIdentifier, "ambiguous identifier", err)
	}
	return errors.Wrap(notFound, msg, err)
}

// Locate returns the column and position holding cardID's link, if any.
func (b *Board) Locate(cardID string) (*Column, string, bool) {
	for _, key := range b.Columns.Keys() {
		col, _ := b.Columns.Get(key)
		if col == nil {
			continue
		}
		for _, pos := range col.Links.Keys() {
			link, _ := col.Links.Get(pos)
			if link.CardID == cardID {
				return col, pos, true
			}
		}
	}
	return nil, "", false
}

// populateFromDocument fills meta and sections containers from a parsed
// document. Duplicate section titles get a numeric suffix to keep list keys
// unique.
func populateFromDocument(doc codec.Document, meta *tree.Map[any], sections *tree.List[string]) {
	if doc.Meta != nil {
		for _, key := range doc.Meta.Keys() {
			v, _ := doc.Meta.Get(key)
			meta.Set(key, v)
		}
	}
	for _, s := range doc.Sections {
		key := s.Title
		for n := 1; sections.Has(key); n++ {
			key = s.Title + " (" + strconv.Itoa(n) + ")"
		}
		sections.Put(key, s.Body)
	}
}

// toDocument rebuilds a codec document from meta and sections containers.
func toDocument(meta *tree.Map[any], sections *tree.List[string]) codec.Document {
	doc := codec.Document{Meta: codec.NewMeta()}
	for _, key := range meta.Keys() {
		v, _ := meta.Get(key)
		doc.Meta.Set(key, v)
	}
	for _, key := range sections.Keys() {
		body, _ := sections.Get(key)
		doc.Sections = append(doc.Sections, codec.Section{Title: key, Body: body})
	}
	return doc
}

// widthsFromMeta reads the "widths" front-matter key, falling back to
// defaults for missing or malformed entries.
func widthsFromMeta(meta *tree.Map[any]) Widths {
	w := DefaultWidths
	raw, ok := meta.Get("widths")
	if !ok {
		return w
	}
	nested, ok := raw.(*codec.Meta)
	if !ok {
		return w
	}
	if v, ok := intValue(nested, "card"); ok && v > 0 {
		w.Card = v
	}
	if v, ok := intValue(nested, "column"); ok && v > 0 {
		w.Column = v
	}
	if v, ok := intValue(nested, "position"); ok && v > 0 {
		w.Position = v
	}
	return w
}

func intValue(m *codec.Meta, key string) (int, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}
