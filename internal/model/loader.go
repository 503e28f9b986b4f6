package model

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/gitx"
	"github.com/ganban/ganban/internal/ids"
)

var (
	columnDirRE = regexp.MustCompile(`^([0-9]+)\.(.+)$`)
	linkNameRE  = regexp.MustCompile(`^([0-9A-Za-z_-]+)\.(.*)\.md$`)
	linkDestRE  = regexp.MustCompile(`\.all/([^/]+)\.md$`)
)

// committerRosterDepth bounds how much history the roster scan walks.
const committerRosterDepth = 200

// Load reads the board from the tip of branch. Structural anomalies become
// Warnings and are repaired where possible; only a missing branch or an
// unreadable object is fatal. The returned board fires no watcher events
// during population.
func Load(ctx context.Context, g *gitx.Git, branch string) (*Board, []Warning, error) {
	ref := "refs/heads/" + branch
	commit, ok, err := g.RevParse(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.Newf(errors.ENoBoard, "branch %q has no board (run init first)", branch)
	}

	board := NewBoard()
	board.Ref = ref
	board.BaseCommit = commit
	board.BaseTree, err = g.TreeOf(ctx, commit)
	if err != nil {
		return nil, nil, err
	}

	ld := &loader{g: g, board: board}
	board.Suppress(func() {
		err = ld.populate(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	board.Committers, _ = g.Committers(ctx, committerRosterDepth)
	return board, ld.warnings, nil
}

type loader struct {
	g        *gitx.Git
	board    *Board
	warnings []Warning
}

func (ld *loader) warn(kind WarningKind, path, message string) {
	ld.warnings = append(ld.warnings, Warning{Kind: kind, Path: path, Message: message})
}

func (ld *loader) populate(ctx context.Context) error {
	entries, err := ld.g.LsTree(ctx, ld.board.BaseCommit)
	if err != nil {
		return err
	}

	var columnDirs []gitx.TreeEntry
	for _, e := range entries {
		switch {
		case e.Name == "index.md" && !e.IsTree():
			if err := ld.loadRoot(ctx, e); err != nil {
				return err
			}
		case e.Name == CardStoreDir && e.IsTree():
			if err := ld.loadCards(ctx, e); err != nil {
				return err
			}
		case e.IsTree():
			columnDirs = append(columnDirs, e)
		}
	}

	// Cards must exist before links are resolved, so columns come last.
	for _, e := range columnDirs {
		if err := ld.loadColumn(ctx, e); err != nil {
			return err
		}
	}
	ld.sortColumns()
	return nil
}

func (ld *loader) loadRoot(ctx context.Context, e gitx.TreeEntry) error {
	raw, err := ld.g.CatBlob(ctx, e.OID)
	if err != nil {
		return err
	}
	doc := codec.Parse(raw)
	populateFromDocument(doc, ld.board.Meta, ld.board.Sections)
	ld.board.Widths = widthsFromMeta(ld.board.Meta)
	if doc.NonCanonical {
		ld.warn(WarnNonCanonical, "index.md", "board document needs manual repair")
	}
	return nil
}

func (ld *loader) loadCards(ctx context.Context, store gitx.TreeEntry) error {
	entries, err := ld.g.LsTree(ctx, store.OID)
	if err != nil {
		return err
	}
	// Deterministic store order regardless of tree order.
	sort.Slice(entries, func(i, j int) bool {
		return ids.Decimal.Compare(entries[i].Name, entries[j].Name) < 0
	})
	for _, e := range entries {
		if e.IsTree() || !strings.HasSuffix(e.Name, ".md") {
			continue
		}
		raw, err := ld.g.CatBlob(ctx, e.OID)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(e.Name, ".md")
		card := parseCard(raw)
		if card.NonCanonical {
			ld.warn(WarnNonCanonical, CardStoreDir+"/"+e.Name, "card needs manual repair")
		}
		ld.board.Cards.Set(id, card)
	}
	return nil
}

func parseCard(raw []byte) *Card {
	doc := codec.Parse(raw)
	card := NewCard()
	populateFromDocument(doc, card.Meta, card.Sections)
	if doc.NonCanonical {
		card.NonCanonical = true
		card.raw = append([]byte(nil), raw...)
	}
	return card
}

func (ld *loader) loadColumn(ctx context.Context, dir gitx.TreeEntry) error {
	board := ld.board
	var col *Column
	switch {
	case strings.HasPrefix(dir.Name, "."):
		col = NewColumn("", dir.Name[1:])
		col.Hidden = true
	default:
		if m := columnDirRE.FindStringSubmatch(dir.Name); m != nil && !board.Columns.Has(m[1]) {
			col = NewColumn(m[1], m[2])
		} else {
			// Missing or colliding order prefix: synthesize the next
			// free order and rename the directory on save.
			var orders []string
			for _, c := range board.Ordered() {
				orders = append(orders, c.Order)
			}
			order := ids.Decimal.Next(orders, board.Widths.Column)
			slug := strings.TrimLeft(dir.Name, "0123456789.")
			if slug == "" {
				slug = dir.Name
			}
			col = NewColumn(order, Slugify(slug))
			col.NeedsRename = true
			ld.warn(WarnBadColumnName, dir.Name, "no usable order prefix; will become "+col.DirName())
		}
	}
	board.Columns.Put(col.key(), col)

	entries, err := ld.g.LsTree(ctx, dir.OID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := dir.Name + "/" + e.Name
		switch {
		case e.IsTree():
			continue // nested directories are not part of the contract
		case e.Name == "index.md":
			raw, err := ld.g.CatBlob(ctx, e.OID)
			if err != nil {
				return err
			}
			doc := codec.Parse(raw)
			populateFromDocument(doc, col.Meta, col.Sections)
			if doc.NonCanonical {
				ld.warn(WarnNonCanonical, path, "column document needs manual repair")
			}
		case e.IsSymlink():
			if err := ld.loadLink(ctx, col, e, path); err != nil {
				return err
			}
		default:
			if err := ld.adoptStray(ctx, col, e, path); err != nil {
				return err
			}
		}
	}
	ld.sortLinks(col)
	return nil
}

func (ld *loader) loadLink(ctx context.Context, col *Column, e gitx.TreeEntry, path string) error {
	target, err := ld.g.CatBlob(ctx, e.OID)
	if err != nil {
		return err
	}
	m := linkDestRE.FindStringSubmatch(strings.TrimSpace(string(target)))
	if m == nil {
		ld.warn(WarnBrokenLink, path, "symlink does not point into "+CardStoreDir)
		return nil
	}
	cardID := m[1]

	pos := ""
	if nm := linkNameRE.FindStringSubmatch(e.Name); nm != nil {
		pos = nm[1]
	}
	if pos == "" || col.Links.Has(pos) {
		pos = ids.Decimal.Next(col.Links.Keys(), ld.board.Widths.Position)
	}

	link := Link{CardID: cardID}
	if !ld.board.Cards.Has(cardID) {
		link.Broken = true
		ld.warn(WarnBrokenLink, path, "target card "+cardID+" is missing")
	}
	col.Links.Put(pos, link)
	return nil
}

// adoptStray turns a regular file in a column directory into a real card:
// it joins the store under the next free id and keeps its place in the
// column.
func (ld *loader) adoptStray(ctx context.Context, col *Column, e gitx.TreeEntry, path string) error {
	board := ld.board
	raw, err := ld.g.CatBlob(ctx, e.OID)
	if err != nil {
		return err
	}
	id := ids.Decimal.Next(board.Cards.Keys(), board.Widths.Card)
	board.Cards.Set(id, parseCard(raw))

	pos := ""
	if nm := linkNameRE.FindStringSubmatch(e.Name); nm != nil && !col.Links.Has(nm[1]) {
		pos = nm[1]
	}
	if pos == "" {
		pos = ids.Decimal.Next(col.Links.Keys(), board.Widths.Position)
	}
	col.Links.Put(pos, Link{CardID: id})
	ld.warn(WarnStrayFile, path, "adopted into "+CardStoreDir+"/"+id+".md")
	return nil
}

func (ld *loader) sortColumns() {
	keys := ld.board.Columns.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		hi, hj := strings.HasPrefix(keys[i], "."), strings.HasPrefix(keys[j], ".")
		if hi != hj {
			return hj // hidden columns sort after the ordered sequence
		}
		return ids.Decimal.Compare(keys[i], keys[j]) < 0
	})
	ld.board.Columns.Reorder(keys)
}

func (ld *loader) sortLinks(col *Column) {
	keys := col.Links.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return ids.Decimal.Compare(keys[i], keys[j]) < 0
	})
	col.Links.Reorder(keys)
}
