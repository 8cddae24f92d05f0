package version

import "fmt"

// Name is the program name used in reports and process detection.
const Name = "apk-packager"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Generator returns "apk-packager/<version>".
func Generator() string {
	return Name + "/" + Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, Commit, BuildTime)
}
