// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent returns the User-Agent sent to the GitHub API.
func UserAgent() string {
	return "ratewatch/" + Version
}

// String returns a one-line build description.
func String() string {
	return fmt.Sprintf("ratewatch %s (commit %s, built %s)", Version, Commit, Date)
}
