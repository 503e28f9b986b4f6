// Package identity derives the acting author from git configuration.
// Comments on cards are attributed to this identity.
package identity

import (
	"context"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/gitx"
)

// Author is who signs comments.
type Author struct {
	Name  string
	Email string
}

// String renders the roster form "Name <email>".
func (a Author) String() string {
	return a.Name + " <" + a.Email + ">"
}

// Current reads user.name and user.email. Both must be set; attribution is
// part of the comment contract.
func Current(ctx context.Context, g *gitx.Git) (Author, error) {
	name, okName := g.ConfigGet(ctx, "user.name")
	email, okEmail := g.ConfigGet(ctx, "user.email")
	if !okName || !okEmail {
		return Author{}, errors.New(errors.EUsage,
			"git user.name and user.email must be set to comment")
	}
	return Author{Name: name, Email: email}, nil
}
