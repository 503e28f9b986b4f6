package model

import (
	"context"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/gitx"
)

// Save serializes the board bottom-up into blobs and trees and advances the
// branch ref with a compare-and-swap against the loaded base commit. When
// the resulting tree equals the base tree no commit is made. When the tip
// moved since load the save fails with E_STALE_BASE and nothing on the
// branch changes. The tip is re-read before any object is written, so a
// stale save leaves no loose objects behind; the CAS stays authoritative
// for races past the pre-check.
func Save(ctx context.Context, g *gitx.Git, board *Board, message string) (string, error) {
	tip, ok, err := g.RevParse(ctx, board.Ref)
	if err != nil {
		return "", err
	}
	if !ok || tip != board.BaseCommit {
		return "", errors.Newf(errors.EStaleBase, "%s moved since load (was %.7s, now %.7s)", board.Ref, board.BaseCommit, tip)
	}

	rootTree, err := buildTree(ctx, g, board)
	if err != nil {
		return "", err
	}
	if rootTree == board.BaseTree {
		return board.BaseCommit, nil
	}

	commit, err := g.CommitTree(ctx, rootTree, []string{board.BaseCommit}, message)
	if err != nil {
		return "", err
	}
	if err := g.UpdateRef(ctx, board.Ref, commit, board.BaseCommit); err != nil {
		// The CAS lost a race that the pre-check did not see.
		if tip, ok, rerr := g.RevParse(ctx, board.Ref); rerr == nil && ok && tip != board.BaseCommit {
			return "", errors.Wrap(errors.EStaleBase, "branch moved during save", err)
		}
		return "", err
	}

	board.BaseCommit = commit
	board.BaseTree = rootTree
	for _, key := range board.Columns.Keys() {
		if col, _ := board.Columns.Get(key); col != nil {
			col.NeedsRename = false
		}
	}
	return commit, nil
}

func buildTree(ctx context.Context, g *gitx.Git, board *Board) (string, error) {
	var root []gitx.TreeEntry

	storeOID, err := buildCardStore(ctx, g, board)
	if err != nil {
		return "", err
	}
	root = append(root, gitx.TreeEntry{Mode: "040000", Type: "tree", OID: storeOID, Name: CardStoreDir})

	for _, key := range board.Columns.Keys() {
		col, _ := board.Columns.Get(key)
		if col == nil {
			continue
		}
		colOID, err := buildColumn(ctx, g, board, col)
		if err != nil {
			return "", err
		}
		root = append(root, gitx.TreeEntry{Mode: "040000", Type: "tree", OID: colOID, Name: col.DirName()})
	}

	indexOID, err := hashDocument(ctx, g, boardDocument(board))
	if err != nil {
		return "", err
	}
	root = append(root, gitx.TreeEntry{Mode: "100644", Type: "blob", OID: indexOID, Name: "index.md"})

	return g.MkTree(ctx, root)
}

func buildCardStore(ctx context.Context, g *gitx.Git, board *Board) (string, error) {
	var entries []gitx.TreeEntry
	for _, id := range board.Cards.Keys() {
		card, _ := board.Cards.Get(id)
		if card == nil {
			continue
		}
		var oid string
		var err error
		if card.NonCanonical && card.raw != nil {
			// Preserve broken documents byte-for-byte until repaired.
			oid, err = g.HashObject(ctx, card.raw)
		} else {
			oid, err = hashDocument(ctx, g, toDocument(card.Meta, card.Sections))
		}
		if err != nil {
			return "", err
		}
		entries = append(entries, gitx.TreeEntry{Mode: "100644", Type: "blob", OID: oid, Name: id + ".md"})
	}
	return g.MkTree(ctx, entries)
}

func buildColumn(ctx context.Context, g *gitx.Git, board *Board, col *Column) (string, error) {
	var entries []gitx.TreeEntry

	if col.Meta.Len() > 0 || col.Sections.Len() > 0 {
		oid, err := hashDocument(ctx, g, toDocument(col.Meta, col.Sections))
		if err != nil {
			return "", err
		}
		entries = append(entries, gitx.TreeEntry{Mode: "100644", Type: "blob", OID: oid, Name: "index.md"})
	}

	for _, pos := range col.Links.Keys() {
		link, _ := col.Links.Get(pos)
		oid, err := g.HashObject(ctx, []byte("../"+CardStoreDir+"/"+link.CardID+".md"))
		if err != nil {
			return "", err
		}
		entries = append(entries, gitx.TreeEntry{
			Mode: "120000",
			Type: "blob",
			OID:  oid,
			Name: pos + "." + linkSlug(board, link) + ".md",
		})
	}

	return g.MkTree(ctx, entries)
}

// linkSlug names a symlink after its card's current title so filenames stay
// readable after renames. Broken links keep a stable placeholder.
func linkSlug(board *Board, link Link) string {
	if card, ok := board.Cards.Get(link.CardID); ok && card != nil {
		return Slugify(card.Title())
	}
	return "missing"
}

func boardDocument(board *Board) codec.Document {
	doc := toDocument(board.Meta, board.Sections)
	if len(doc.Sections) == 0 {
		doc.Sections = append(doc.Sections, codec.Section{Title: board.Title()})
	}
	return doc
}

func hashDocument(ctx context.Context, g *gitx.Git, doc codec.Document) (string, error) {
	return g.HashObject(ctx, codec.Serialize(doc))
}
