// Package sync keeps the board branch converging across remotes: fetch
// everything, integrate peer work by fast-forward or plumbing rebase, push
// to the upstream. Conflicts are detected here and surfaced; they are never
// resolved automatically.
package sync

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/gitx"
	"github.com/ganban/ganban/internal/model"
)

// ConflictKind classifies why a cycle refused to push.
type ConflictKind string

const (
	// ConflictContent is a line-level merge conflict in a document.
	ConflictContent ConflictKind = "content"
	// ConflictBrokenLink is a column link whose card vanished on the
	// other side.
	ConflictBrokenLink ConflictKind = "broken-link"
	// ConflictColumnRename is a column whose directory name diverged,
	// typically both sides renaming or reordering the same column.
	ConflictColumnRename ConflictKind = "column-rename"
	// ConflictUnrelated marks a peer branch sharing no history.
	ConflictUnrelated ConflictKind = "unrelated-history"
)

// Conflict is one human problem found during a cycle. The branch stays in
// whatever consistent state the last CAS left it; nothing is pushed until a
// person resolves the conflict and saves.
type Conflict struct {
	Kind   ConflictKind `json:"kind"`
	Remote string       `json:"remote,omitempty"`
	Paths  []string     `json:"paths,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

// FlushFunc saves pending in-memory mutations. It runs before any
// integration so local work is committed before pulled work lands.
type FlushFunc func(ctx context.Context) error

// Engine drives periodic synchronization of one branch.
type Engine struct {
	Git      *gitx.Git
	Branch   string
	Upstream string // remote to push to; "" disables pushing
	Logger   *slog.Logger
	Interval time.Duration
	Flush    FlushFunc
}

// Report summarizes one cycle.
type Report struct {
	Fetched []string `json:"fetched"`
	// Failed lists remotes that could not be fetched this cycle.
	Failed []string `json:"failed,omitempty"`
	// Advanced reports whether the local branch moved.
	Advanced  bool       `json:"advanced"`
	Pushed    bool       `json:"pushed"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Run cycles until ctx is cancelled. Cancellation between git calls is
// safe: the branch only ever moves through atomic ref updates, so no
// partial rebase is observable.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := e.Cycle(ctx)
		switch {
		case err != nil:
			e.logger().Warn("sync cycle failed", "err", err)
		case len(report.Conflicts) > 0:
			for _, c := range report.Conflicts {
				e.logger().Warn("sync conflict, waiting for manual resolution",
					"kind", string(c.Kind), "remote", c.Remote, "paths", c.Paths, "detail", c.Detail)
			}
		case report.Advanced || report.Pushed:
			e.logger().Info("sync cycle done",
				"fetched", len(report.Fetched), "advanced", report.Advanced, "pushed", report.Pushed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one fetch/flush/integrate/push pass.
func (e *Engine) Cycle(ctx context.Context) (*Report, error) {
	report := &Report{}
	ref := "refs/heads/" + e.Branch

	remotes, err := e.Git.Remotes(ctx)
	if err != nil {
		return report, err
	}
	e.fetchAll(ctx, remotes, report)

	// Commit before pull: local mutations must be on the branch before
	// anything foreign is integrated.
	if e.Flush != nil {
		if err := e.Flush(ctx); err != nil {
			return report, err
		}
	}

	local, ok, err := e.Git.RevParse(ctx, ref)
	if err != nil {
		return report, err
	}
	if !ok {
		return report, errors.Newf(errors.ENoBoard, "branch %q has no board", e.Branch)
	}

	for _, remote := range report.Fetched {
		peer, ok, err := e.Git.RevParse(ctx, "refs/remotes/"+remote+"/"+e.Branch)
		if err != nil {
			return report, err
		}
		if !ok || peer == local {
			continue
		}
		next, conflict, err := e.integrate(ctx, ref, local, peer, remote)
		if err != nil {
			return report, err
		}
		if conflict != nil {
			report.Conflicts = append(report.Conflicts, *conflict)
			return report, nil // stop: nothing is pushed this cycle
		}
		if next != local {
			local = next
			report.Advanced = true
		}
	}

	if report.Advanced {
		report.Conflicts = append(report.Conflicts, e.scanBoard(ctx)...)
		if len(report.Conflicts) > 0 {
			return report, nil
		}
	}

	if e.Upstream != "" {
		pushed, err := e.push(ctx, local)
		if err != nil {
			e.logger().Warn("push failed", "remote", e.Upstream, "err", err)
		} else {
			report.Pushed = pushed
		}
	}
	return report, nil
}

func (e *Engine) fetchAll(ctx context.Context, remotes []string, report *Report) {
	results := make([]error, len(remotes))
	g, ctx := errgroup.WithContext(ctx)
	for i, remote := range remotes {
		i, remote := i, remote
		g.Go(func() error {
			results[i] = e.Git.Fetch(ctx, remote)
			return nil
		})
	}
	_ = g.Wait()

	for i, remote := range remotes {
		if results[i] != nil {
			// Transient by assumption; the next cycle retries.
			e.logger().Warn("fetch failed", "remote", remote, "err", results[i])
			report.Failed = append(report.Failed, remote)
			continue
		}
		report.Fetched = append(report.Fetched, remote)
	}
}

// integrate folds one peer tip into the local branch. Returns the new local
// tip, or a conflict that stops the cycle. The ref only moves through CAS
// updates, so a concurrent local save makes the whole step fail cleanly.
func (e *Engine) integrate(ctx context.Context, ref, local, peer, remote string) (string, *Conflict, error) {
	ahead, err := e.Git.IsAncestor(ctx, peer, local)
	if err != nil {
		return "", nil, err
	}
	if ahead {
		return local, nil, nil
	}
	behind, err := e.Git.IsAncestor(ctx, local, peer)
	if err != nil {
		return "", nil, err
	}
	if behind {
		if err := e.Git.UpdateRef(ctx, ref, peer, local); err != nil {
			return "", nil, err
		}
		e.logger().Debug("fast-forwarded", "remote", remote, "tip", peer)
		return peer, nil, nil
	}

	tip, conflictPaths, err := e.rebase(ctx, local, peer)
	if err != nil {
		return "", nil, err
	}
	if conflictPaths != nil {
		return "", &Conflict{
			Kind:   ConflictContent,
			Remote: remote,
			Paths:  conflictPaths,
			Detail: "both sides changed the same documents",
		}, nil
	}
	if tip == "" {
		return "", &Conflict{Kind: ConflictUnrelated, Remote: remote,
			Detail: "peer branch shares no history with the local board"}, nil
	}
	if err := e.Git.UpdateRef(ctx, ref, tip, local); err != nil {
		return "", nil, err
	}
	e.logger().Debug("rebased local commits", "remote", remote, "tip", tip)
	return tip, nil, nil
}

// rebase replays the local commits that the peer lacks onto the peer tip,
// entirely with plumbing. Any merge conflict aborts the whole rebase and
// returns the affected paths; the branch is left untouched.
func (e *Engine) rebase(ctx context.Context, local, peer string) (string, []string, error) {
	_, related, err := e.Git.MergeBase(ctx, local, peer)
	if err != nil {
		return "", nil, err
	}
	if !related {
		return "", nil, nil
	}

	commits, err := e.Git.RevList(ctx, peer+".."+local)
	if err != nil {
		return "", nil, err
	}

	tip := peer
	for _, commit := range commits {
		merged, err := e.Git.MergeTree(ctx, commit+"^", tip, commit)
		if err != nil {
			return "", nil, err
		}
		if len(merged.Conflicts) > 0 {
			return "", merged.Conflicts, nil
		}
		message, err := e.Git.CommitMessage(ctx, commit)
		if err != nil {
			return "", nil, err
		}
		tip, err = e.Git.CommitTree(ctx, merged.Tree, []string{tip}, message)
		if err != nil {
			return "", nil, err
		}
	}
	return tip, nil, nil
}

// scanBoard loads the freshly integrated branch and promotes structural
// warnings to conflicts. These are states a tree-level merge can produce
// cleanly but that still need a human: a link whose card went away, or a
// column whose directory name diverged.
func (e *Engine) scanBoard(ctx context.Context) []Conflict {
	_, warnings, err := model.Load(ctx, e.Git, e.Branch)
	if err != nil {
		return []Conflict{{Kind: ConflictContent, Detail: "board unreadable after integration: " + err.Error()}}
	}
	var conflicts []Conflict
	for _, w := range warnings {
		switch w.Kind {
		case model.WarnBrokenLink:
			conflicts = append(conflicts, Conflict{Kind: ConflictBrokenLink, Paths: []string{w.Path}, Detail: w.Message})
		case model.WarnBadColumnName:
			conflicts = append(conflicts, Conflict{Kind: ConflictColumnRename, Paths: []string{w.Path}, Detail: w.Message})
		case model.WarnNonCanonical:
			conflicts = append(conflicts, Conflict{Kind: ConflictContent, Paths: []string{w.Path}, Detail: w.Message})
		}
	}
	return conflicts
}

// push publishes the local tip to the upstream unless it already has it.
func (e *Engine) push(ctx context.Context, local string) (bool, error) {
	upstreamTip, ok, err := e.Git.RevParse(ctx, "refs/remotes/"+e.Upstream+"/"+e.Branch)
	if err != nil {
		return false, err
	}
	if ok && upstreamTip == local {
		return false, nil
	}
	if err := e.Git.Push(ctx, e.Upstream, e.Branch); err != nil {
		return false, err
	}
	return true, nil
}
