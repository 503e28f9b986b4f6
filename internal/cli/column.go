package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/render"
)

func (a *app) columnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "column",
		Aliases: []string{"col"},
		Short:   "Work with columns",
	}
	cmd.AddCommand(
		a.columnListCmd(),
		a.columnCreateCmd(),
		a.columnRenameCmd(),
		a.columnMoveCmd(),
		a.columnArchiveCmd(),
	)
	return cmd
}

func (a *app) columnListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List columns in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			summary := render.Summarize(board)
			if a.jsonOut {
				return render.WriteJSON(cmd.OutOrStdout(), summary.Columns)
			}
			for _, col := range summary.Columns {
				marker := ""
				if col.Hidden {
					marker = "  (hidden)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-3s %s  (%d cards)%s\n",
					col.Order, col.Title, len(col.Cards), marker)
			}
			return nil
		},
	}
}

func (a *app) columnCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Append a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			order, err := s.CreateColumn(args[0])
			if err != nil {
				return err
			}
			if _, err := a.save(cmd, s, "ganban: create column "+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created column %s (%s)\n", order, args[0])
			return nil
		},
	}
}

func (a *app) columnRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <column> <title>",
		Short: "Retitle a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if err := s.RenameColumn(args[0], args[1]); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: rename column "+args[0]+" to "+args[1])
			return err
		},
	}
}

func (a *app) columnMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <column> <index>",
		Short: "Reposition a column, renumbering the sequence",
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
			eff, err := s.MoveColumn(args[0], index)
			if err != nil {
				return err
			}
			if _, err := a.save(cmd, s, "ganban: move column "+args[0]); err != nil {
				return err
			}
			for old, now := range eff.OrderRenames {
				fmt.Fprintf(cmd.ErrOrStderr(), "column %s is now %s\n", old, now)
			}
			return nil
		},
	}
}

func (a *app) columnArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <column>",
		Short: "Hide a column without touching its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			if err := s.ArchiveColumn(args[0]); err != nil {
				return err
			}
			_, err = a.save(cmd, s, "ganban: archive column "+args[0])
			return err
		},
	}
}
