// Package render formats boards and cards for the terminal, as aligned
// columns or as JSON.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ganban/ganban/internal/model"
)

// TitleUntitled is displayed for documents without a title.
const TitleUntitled = "<untitled>"

// CardRow is one card in list output. This is the public contract for
// `card list --json`.
type CardRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Column   string `json:"column"`   // column title; "" when archived
	Position string `json:"position"` // position id; "" when archived
	Broken   bool   `json:"broken,omitempty"`
}

// ColumnSummary is one column in board output.
type ColumnSummary struct {
	Order  string    `json:"order"`
	Title  string    `json:"title"`
	Hidden bool      `json:"hidden,omitempty"`
	Cards  []CardRow `json:"cards"`
}

// BoardSummary is the whole board. This is the public contract for
// `board --json`.
type BoardSummary struct {
	Title    string          `json:"title"`
	Branch   string          `json:"branch"`
	Commit   string          `json:"commit"`
	Columns  []ColumnSummary `json:"columns"`
	Archived []CardRow       `json:"archived,omitempty"`
}

// Summarize flattens a board into its output form.
func Summarize(b *model.Board) BoardSummary {
	s := BoardSummary{
		Title:  b.Title(),
		Branch: strings.TrimPrefix(b.Ref, "refs/heads/"),
		Commit: b.BaseCommit,
	}

	linked := make(map[string]bool)
	for _, key := range b.Columns.Keys() {
		col, _ := b.Columns.Get(key)
		if col == nil {
			continue
		}
		cs := ColumnSummary{Order: col.Order, Title: col.Title(), Hidden: col.Hidden}
		for _, pos := range col.Links.Keys() {
			link, _ := col.Links.Get(pos)
			linked[link.CardID] = true
			cs.Cards = append(cs.Cards, CardRow{
				ID:       link.CardID,
				Title:    cardTitle(b, link),
				Column:   cs.Title,
				Position: pos,
				Broken:   link.Broken,
			})
		}
		s.Columns = append(s.Columns, cs)
	}

	for _, id := range b.Cards.Keys() {
		if linked[id] {
			continue
		}
		card, _ := b.Cards.Get(id)
		title := TitleUntitled
		if t := card.Title(); t != "" {
			title = t
		}
		s.Archived = append(s.Archived, CardRow{ID: id, Title: title})
	}
	return s
}

func cardTitle(b *model.Board, link model.Link) string {
	if link.Broken {
		return "<missing>"
	}
	card, ok := b.Cards.Get(link.CardID)
	if !ok || card == nil || card.Title() == "" {
		return TitleUntitled
	}
	return card.Title()
}

// WriteBoardHuman writes the whole board grouped by column.
func WriteBoardHuman(w io.Writer, s BoardSummary) error {
	if _, err := fmt.Fprintf(w, "%s  (%s @ %.7s)\n", s.Title, s.Branch, s.Commit); err != nil {
		return err
	}
	for _, col := range s.Columns {
		name := col.Title
		if col.Hidden {
			name += " (hidden)"
		}
		if _, err := fmt.Fprintf(w, "\n%s\n", name); err != nil {
			return err
		}
		if len(col.Cards) == 0 {
			if _, err := fmt.Fprintln(w, "  (empty)"); err != nil {
				return err
			}
			continue
		}
		for _, card := range col.Cards {
			marker := ""
			if card.Broken {
				marker = "  [broken link]"
			}
			if _, err := fmt.Fprintf(w, "  #%s  %s%s\n", card.ID, card.Title, marker); err != nil {
				return err
			}
		}
	}
	if len(s.Archived) > 0 {
		if _, err := fmt.Fprintf(w, "\nArchived: %d card(s)\n", len(s.Archived)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCardsHuman writes card rows as whitespace-aligned columns.
func WriteCardsHuman(w io.Writer, rows []CardRow) error {
	if len(rows) == 0 {
		return nil
	}
	idW, titleW := len("ID"), len("TITLE")
	for _, r := range rows {
		if len(r.ID) > idW {
			idW = len(r.ID)
		}
		if len(r.Title) > titleW {
			titleW = len(r.Title)
		}
	}
	if _, err := fmt.Fprintf(w, "%-*s  %-*s  %s\n", idW, "ID", titleW, "TITLE", "COLUMN"); err != nil {
		return err
	}
	for _, r := range rows {
		column := r.Column
		if column == "" {
			column = "(archived)"
		}
		if _, err := fmt.Fprintf(w, "%-*s  %-*s  %s\n", idW, r.ID, titleW, r.Title, column); err != nil {
			return err
		}
	}
	return nil
}

// WriteCardHuman writes one card in full: front-matter, then sections.
func WriteCardHuman(w io.Writer, id string, card *model.Card) error {
	title := card.Title()
	if title == "" {
		title = TitleUntitled
	}
	if _, err := fmt.Fprintf(w, "#%s  %s\n", id, title); err != nil {
		return err
	}
	if card.NonCanonical {
		if _, err := fmt.Fprintln(w, "(needs manual repair)"); err != nil {
			return err
		}
	}
	for _, key := range card.Meta.Keys() {
		v, _ := card.Meta.Get(key)
		if _, err := fmt.Fprintf(w, "  %s: %v\n", key, v); err != nil {
			return err
		}
	}
	first := true
	for _, key := range card.Sections.Keys() {
		body, _ := card.Sections.Get(key)
		if first {
			first = false
			if body == "" {
				continue
			}
		} else if _, err := fmt.Fprintf(w, "\n%s\n", key); err != nil {
			return err
		}
		if body != "" {
			if _, err := fmt.Fprintf(w, "\n%s\n", strings.TrimRight(body, "\n")); err != nil {
				return err
			}
		}
	}
	return nil
}
