// Package scaffold creates the initial board commit on a fresh branch. The
// branch is born from plumbing alone: it has no parent and is never checked
// out.
package scaffold

import (
	"context"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/gitx"
	"github.com/ganban/ganban/internal/model"
)

// DefaultColumns is the starter lane set.
var DefaultColumns = []string{"Todo", "Doing", "Done"}

// Init writes an empty board to branch and returns the root commit. Fails
// with E_BOARD_EXISTS when the branch already exists.
func Init(ctx context.Context, g *gitx.Git, branch, title string) (string, error) {
	ref := "refs/heads/" + branch
	if _, exists, err := g.RevParse(ctx, ref); err != nil {
		return "", err
	} else if exists {
		return "", errors.Newf(errors.EBoardExists, "branch %q already has a board", branch)
	}
	if title == "" {
		title = "Board"
	}

	storeOID, err := g.MkTree(ctx, nil)
	if err != nil {
		return "", err
	}
	entries := []gitx.TreeEntry{
		{Mode: "040000", Type: "tree", OID: storeOID, Name: model.CardStoreDir},
	}

	for i, colTitle := range DefaultColumns {
		order := string(rune('1' + i))
		colOID, err := columnTree(ctx, g, colTitle)
		if err != nil {
			return "", err
		}
		entries = append(entries, gitx.TreeEntry{
			Mode: "040000", Type: "tree", OID: colOID,
			Name: order + "." + model.Slugify(colTitle),
		})
	}

	rootDoc := codec.Document{
		Meta:     codec.NewMeta(),
		Sections: []codec.Section{{Title: title}},
	}
	rootOID, err := g.HashObject(ctx, codec.Serialize(rootDoc))
	if err != nil {
		return "", err
	}
	entries = append(entries, gitx.TreeEntry{Mode: "100644", Type: "blob", OID: rootOID, Name: "index.md"})

	rootTree, err := g.MkTree(ctx, entries)
	if err != nil {
		return "", err
	}
	commit, err := g.CommitTree(ctx, rootTree, nil, "ganban: init board "+title)
	if err != nil {
		return "", err
	}
	// ZeroOID asserts the ref still does not exist; a concurrent init
	// loses the race cleanly.
	if err := g.UpdateRef(ctx, ref, commit, gitx.ZeroOID); err != nil {
		return "", errors.Wrap(errors.EBoardExists, "another init got there first", err)
	}
	return commit, nil
}

func columnTree(ctx context.Context, g *gitx.Git, title string) (string, error) {
	doc := codec.Document{
		Meta:     codec.NewMeta(),
		Sections: []codec.Section{{Title: title}},
	}
	oid, err := g.HashObject(ctx, codec.Serialize(doc))
	if err != nil {
		return "", err
	}
	return g.MkTree(ctx, []gitx.TreeEntry{
		{Mode: "100644", Type: "blob", OID: oid, Name: "index.md"},
	})
}
