// Package version carries build metadata.
package version

import "fmt"

// Version information set at build time via ldflags:
// go build -ldflags "-X github.com/gladston3/cf-reporting/internal/version.Version=1.0.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
