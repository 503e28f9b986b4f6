package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ganban/ganban/internal/render"
	"github.com/ganban/ganban/internal/scaffold"
)

func (a *app) initCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty board on the board branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, cfg, err := a.git(ctx)
			if err != nil {
				return err
			}
			commit, err := scaffold.Init(ctx, g, cfg.Branch, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized board on %s at %.7s\n", cfg.Branch, commit)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "board title")
	return cmd
}

func (a *app) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the whole board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, _, _, err := a.load(cmd)
			if err != nil {
				return err
			}
			summary := render.Summarize(board)
			if a.jsonOut {
				return render.WriteJSON(cmd.OutOrStdout(), summary)
			}
			return render.WriteBoardHuman(cmd.OutOrStdout(), summary)
		},
	}
}
