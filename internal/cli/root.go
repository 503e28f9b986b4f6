// Package cli wires the ganban commands. Every command goes through the
// session: the CLI never touches the branch except via its Save.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ganban/ganban/internal/config"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/exec"
	"github.com/ganban/ganban/internal/gitx"
	"github.com/ganban/ganban/internal/model"
	"github.com/ganban/ganban/internal/session"
	"github.com/ganban/ganban/internal/version"
)

// Run executes the CLI against the real git binary.
func Run(args []string, stdout, stderr io.Writer) error {
	return Execute(context.Background(), exec.NewRealRunner(), args, stdout, stderr)
}

// Execute runs the command tree with an injectable runner, for tests.
func Execute(ctx context.Context, runner exec.CommandRunner, args []string, stdout, stderr io.Writer) error {
	a := &app{runner: runner}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app carries the global flags and the runner into every command.
type app struct {
	runner  exec.CommandRunner
	repo    string
	branch  string
	jsonOut bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ganban",
		Short:         "A task board stored as markdown on a git branch",
		Long: "ganban keeps a task board as markdown documents on a dedicated git\n" +
			"branch that is never checked out. Cards, columns and their order are\n" +
			"plain files; history, sync and concurrency come from git itself.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.repo, "repo", "", "repository root (default: discovered from the working directory)")
	root.PersistentFlags().StringVar(&a.branch, "branch", "", "board branch (default: ganban.branch config or \"ganban\")")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "machine-readable output")

	root.AddCommand(
		a.initCmd(),
		a.boardCmd(),
		a.cardCmd(),
		a.columnCmd(),
		a.syncCmd(),
		a.versionCmd(),
	)
	return root
}

// git resolves the repository and configuration for one invocation.
func (a *app) git(ctx context.Context) (*gitx.Git, config.Config, error) {
	root := a.repo
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, config.Config{}, errors.Wrap(errors.EInternal, "cannot determine working directory", err)
		}
		root, err = gitx.RepoRoot(ctx, a.runner, cwd)
		if err != nil {
			return nil, config.Config{}, err
		}
	}
	g := gitx.New(a.runner, root)
	cfg := config.Load(ctx, g)
	if a.branch != "" {
		cfg.Branch = a.branch
	}
	return g, cfg, nil
}

// load opens a session on the configured branch and reports load warnings
// on stderr.
func (a *app) load(cmd *cobra.Command) (*session.Session, *model.Board, *gitx.Git, config.Config, error) {
	ctx := cmd.Context()
	g, cfg, err := a.git(ctx)
	if err != nil {
		return nil, nil, nil, config.Config{}, err
	}
	s := session.New(g, cfg.Branch)
	board, warnings, err := s.Load(ctx)
	if err != nil {
		return nil, nil, nil, config.Config{}, err
	}
	a.reportWarnings(cmd, warnings)
	return s, board, g, cfg, nil
}

func (a *app) reportWarnings(cmd *cobra.Command, warnings []model.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
}

// save commits the session and reports any replay warnings.
func (a *app) save(cmd *cobra.Command, s *session.Session, message string) (string, error) {
	commit, warnings, err := s.Save(cmd.Context(), message)
	a.reportWarnings(cmd, warnings)
	return commit, err
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ganban version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "ganban "+version.Version)
			return nil
		},
	}
}
