// Package version exposes build information stamped in with -ldflags.
package version

// Defaults identify an unstamped source build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
