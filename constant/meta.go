// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Nuvioplay is the canonical application identifier used for filesystem paths and CLI branding.
	Nuvioplay = "nuvioplay"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the default HTTP User-Agent string used for network requests to external services.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Build metadata, overridden at link time with -ldflags.
var (
	// Revision is the git commit hash the binary was built from.
	Revision = "unknown"

	// BuiltAt is the build timestamp.
	BuiltAt = "unknown"

	// BuiltBy identifies the build environment or releaser.
	BuiltBy = "unknown"
)
