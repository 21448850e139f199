// Package version exposes build-time version metadata.
package version

var (
	// Version is the semantic version, injected via -ldflags.
	Version = "v0.0.0-dev"

	// GitCommit is the short commit hash, injected via -ldflags.
	GitCommit = "unknown"

	// BuildTime is the UTC build timestamp, injected via -ldflags.
	BuildTime = "unknown"
)

// Info returns a single-line human-readable version string.
func Info() string {
	return Version + " (" + GitCommit + ") built " + BuildTime
}
