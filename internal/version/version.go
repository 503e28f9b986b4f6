// Package version holds the ganban version string.
package version

// Version is the current ganban version. Overridden at build time via
// -ldflags "-X github.com/ganban/ganban/internal/version.Version=...".
var Version = "0.1.0-dev"
