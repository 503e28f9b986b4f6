// Package config reads repo-scoped settings from git config, under the
// ganban.* namespace. Board-scoped settings (identifier widths) live in the
// board's own front-matter instead.
package config

import (
	"context"
	"time"

	"github.com/ganban/ganban/internal/gitx"
)

// Defaults.
const (
	DefaultBranch       = "ganban"
	DefaultSyncInterval = 30 * time.Second
)

// Config holds the per-repository settings.
type Config struct {
	// Branch is the board branch name (ganban.branch).
	Branch string
	// Upstream is the remote pushed to during sync (ganban.upstream).
	// Defaults to "origin" when that remote exists, otherwise empty, which
	// disables pushing.
	Upstream string
	// SyncInterval is the periodic sync cadence (ganban.syncInterval, a Go
	// duration string).
	SyncInterval time.Duration
	// AutoPush can be set to false (ganban.autopush) to fetch and
	// integrate without ever publishing.
	AutoPush bool
}

// Load reads the configuration, applying defaults for unset keys. Malformed
// values fall back to their defaults rather than failing.
func Load(ctx context.Context, g *gitx.Git) Config {
	cfg := Config{
		Branch:       DefaultBranch,
		SyncInterval: DefaultSyncInterval,
		AutoPush:     true,
	}

	if v, ok := g.ConfigGet(ctx, "ganban.branch"); ok {
		cfg.Branch = v
	}
	if v, ok := g.ConfigGet(ctx, "ganban.upstream"); ok {
		cfg.Upstream = v
	} else if remotes, err := g.Remotes(ctx); err == nil {
		for _, r := range remotes {
			if r == "origin" {
				cfg.Upstream = "origin"
				break
			}
		}
	}
	if v, ok := g.ConfigGet(ctx, "ganban.syncInterval"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SyncInterval = d
		}
	}
	if v, ok := g.ConfigGet(ctx, "ganban.autopush"); ok && (v == "false" || v == "0" || v == "no") {
		cfg.AutoPush = false
	}
	return cfg
}
