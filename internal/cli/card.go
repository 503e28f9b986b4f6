package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/identity"
	"github.com/ganban/ganban/internal/render"
)

func (a *app) cardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Work with cards",
	}
	cmd.AddCommand(
		a.cardListCmd(),
		a.cardGetCmd(),
		a.cardCreateCmd(),
		a.cardMoveCmd(),
		a.cardReorderCmd(),
		a.cardArchiveCmd(),
		a.cardSetCmd(),
		a.cardCommentCmd(),
		a.cardLinkCmd(),
	)
	return cmd
}

func (a *app) cardListCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			summary := render.Summarize(board)

			var rows []render.CardRow
			for _, col := range summary.Columns {
				if column != "" && col.Order != column {
					continue
				}
				rows = append(rows, col.Cards...)
			}
			if column == "" {
				rows = append(rows, summary.Archived...)
			}
			if a.jsonOut {
				return render.WriteJSON(cmd.OutOrStdout(), rows)
			}
			return render.WriteCardsHuman(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "only cards in this column (order id)")
	return cmd
}

func (a *app) cardGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <card>",
		Short: "Show one card in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			id, card, err := board.FindCard(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				doc := struct {
					ID       string            `json:"id"`
					Title    string            `json:"title"`
					Meta     map[string]any    `json:"meta,omitempty"`
					Sections map[string]string `json:"sections,omitempty"`
				}{ID: id, Title: card.Title()}
				if card.Meta.Len() > 0 {
					doc.Meta = make(map[string]any)
					for _, k := range card.Meta.Keys() {
						doc.Meta[k], _ = card.Meta.Get(k)
					}
				}
				if card.Sections.Len() > 0 {
					doc.Sections = make(map[string]string)
					for _, k := range card.Sections.Keys() {
						doc.Sections[k], _ = card.Sections.Get(k)
					}
				}
				return render.WriteJSON(cmd.OutOrStdout(), doc)
			}
			return render.WriteCardHuman(cmd.OutOrStdout(), id, card)
		},
	}
}

func (a *app) cardCreateCmd() *cobra.Command {
	var column, title, body string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return errors.New(errors.EUsage, "--title is required")
			}
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			id, err := s.CreateCard(column, title, body)
			if err != nil {
				return err
			}
			if _, err := a.save(cmd, s, "ganban: create card "+id+" ("+title+")"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created card #%s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "1", "destination column (order id)")
	cmd.Flags().StringVar(&title, "title", "", "card title (required)")
	cmd.Flags().StringVar(&body, "body", "", "card body markdown")
	return cmd
}

func (a *app) cardMoveCmd() *cobra.Command {
	var index int
	var from string
	cmd := &cobra.Command{
		Use:   "move <card> <column>",
		Short: "Move a card to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if _, err := s.MoveCard(args[0], from, args[1], index); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: move card "+args[0]+" to column "+args[1])
			return err
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "position in the destination column (default: end)")
	cmd.Flags().StringVar(&from, "from", "", "source column, for a card linked from several columns")
	return cmd
}

func (a *app) cardReorderCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "reorder <card> <index>",
		Short: "Reposition a card within its column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.New(errors.EUsage, "index must be a number")
			}
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if _, err := s.ReorderCard(column, args[0], index); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: reorder card "+args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "column to reorder in, for a card linked from several columns")
	return cmd
}

func (a *app) cardArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <card>",
		Short: "Remove a card from its column, keeping the document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if err := s.ArchiveCard(args[0]); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: archive card "+args[0])
			return err
		},
	}
}

func (a *app) cardSetCmd() *cobra.Command {
	var title, body string
	var metas []string
	cmd := &cobra.Command{
		Use:   "set <card>",
		Short: "Edit a card's title, body or front-matter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && body == "" && len(metas) == 0 && !cmd.Flags().Changed("body") {
				return errors.New(errors.EUsage, "nothing to change; pass --title, --body or --meta")
			}
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if title != "" {
				if err := s.RenameCard(args[0], title); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("body") {
				if err := s.SetCardBody(args[0], body); err != nil {
					return err
				}
			}
			for _, kv := range metas {
				key, value, found := strings.Cut(kv, "=")
				if !found || key == "" {
					return errors.Newf(errors.EUsage, "--meta wants key=value, got %q", kv)
				}
				var v any
				if value != "" {
					v = metaValue(value)
				}
				if err := s.SetCardMeta(args[0], key, v); err != nil {
					return err
				}
			}
			_, err = a.save(cmd, s, "ganban: edit card "+args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body markdown")
	cmd.Flags().StringArrayVar(&metas, "meta", nil, "front-matter key=value (empty value deletes)")
	return cmd
}

// metaValue keeps numeric front-matter values numeric.
func metaValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

func (a *app) cardCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <card> <text>...",
		Short: "Append an attributed comment to a card",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, g, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			author, err := identity.Current(cmd.Context(), g)
			if err != nil {
				return err
			}
			comment := codec.Comment{
				Author: author.Name,
				Email:  author.Email,
				Date:   time.Now().UTC().Format("2006-01-02"),
				Text:   strings.Join(args[1:], " "),
			}
			if err := s.AddComment(args[0], comment); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: comment on card "+args[0])
			return err
		},
	}
}

func (a *app) cardLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <card> <kind> <target>",
		Short: "Record a typed relation between two cards",
		Long:  "Records e.g. `ganban card link 001 blocks 002` in card 001's Links section.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if err := s.LinkCards(args[0], args[1], args[2]); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: link card "+args[0]+" "+args[1]+" "+args[2])
			return err
		},
	}
}
