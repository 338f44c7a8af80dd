// Package version exposes build metadata for the querydocs binaries.
package version

// Injected at build time via -ldflags "-X github.com/querydocs/querydocs/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
