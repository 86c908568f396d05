// Package version holds build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the released version of blog-api.
	Version = "0.1.0"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)

// String formats the build metadata for the -version flag.
func String() string {
	return fmt.Sprintf("blog-api %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
