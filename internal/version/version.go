// Package version holds build metadata injected at link time.
package version

// Version is the release version, overridden via ldflags.
var Version = "0.0.0"

// GitCommit is the short commit hash of the build.
var GitCommit = "unknown"

// BuildDate is the UTC timestamp of the build.
var BuildDate = "unknown"
