package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/render"
	ganbansync "github.com/ganban/ganban/internal/sync"
)

func (a *app) syncCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch, integrate and push the board branch",
		Long: "Fetches every remote, integrates peer work by fast-forward or rebase,\n" +
			"and pushes to the upstream. Conflicts stop the push and are reported\n" +
			"for manual resolution. Without --once this runs until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, g, cfg, err := a.load(cmd)
			if err != nil {
				return err
			}

			upstream := cfg.Upstream
			if !cfg.AutoPush {
				upstream = ""
			}
			engine := &ganbansync.Engine{
				Git:      g,
				Branch:   cfg.Branch,
				Upstream: upstream,
				Logger:   slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)),
				Interval: cfg.SyncInterval,
				Flush: func(ctx context.Context) error {
					_, warnings, err := s.Flush(ctx, "ganban: sync flush")
					a.reportWarnings(cmd, warnings)
					return err
				},
			}

			if once {
				report, err := engine.Cycle(ctx)
				if err != nil {
					return err
				}
				return a.printReport(cmd, report)
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sync cycle and exit")
	return cmd
}

func (a *app) printReport(cmd *cobra.Command, report *ganbansync.Report) error {
	out := cmd.OutOrStdout()
	if a.jsonOut {
		if err := render.WriteJSON(out, report); err != nil {
			return err
		}
		if len(report.Conflicts) > 0 {
			return errors.New(errors.ESyncConflict, "sync stopped on conflicts; resolve and sync again")
		}
		return nil
	}
	fmt.Fprintf(out, "fetched %d remote(s)", len(report.Fetched))
	if len(report.Failed) > 0 {
		fmt.Fprintf(out, ", %d unreachable", len(report.Failed))
	}
	fmt.Fprintln(out)
	if report.Advanced {
		fmt.Fprintln(out, "integrated remote work into the local board")
	}
	if report.Pushed {
		fmt.Fprintln(out, "pushed to upstream")
	}
	for _, c := range report.Conflicts {
		fmt.Fprintf(out, "conflict (%s): %s %v\n", c.Kind, c.Detail, c.Paths)
	}
	if len(report.Conflicts) > 0 {
		return errors.New(errors.ESyncConflict, "sync stopped on conflicts; resolve and sync again")
	}
	return nil
}
