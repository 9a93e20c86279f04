// Package version holds build version information.
package version

// Version is the toolgate version, overridden at build time via
// -ldflags "-X github.com/mpostma/toolgate/internal/version.Version=...".
var Version = "0.2.0-dev"

// Commit is the git commit hash, set at build time.
var Commit = ""
