// Package version holds llamarouter build metadata, injected via
// -ldflags "-X github.com/thebeast/llamarouter/internal/version.Version=...".
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs and the User-Agent header.
func String() string {
	return fmt.Sprintf("llamarouter/%s (%s, %s)", Version, Commit, Date)
}
