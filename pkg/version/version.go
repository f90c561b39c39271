// Package version provides build metadata, set with -ldflags at build time.
package version

import (
	"fmt"
	"log/slog"
	"runtime"
)

var (
	// BuildVersion is the semantic version of the build
	BuildVersion = "0.1.0"

	// BuildCommit is the git commit hash of the build
	BuildCommit = "unknown"

	// BuildDate is the date and time of the build
	BuildDate = "unknown"

	// GoVersion is the version of Go used to build
	GoVersion = runtime.Version()
)

// String returns the line printed by -version.
func String() string {
	return fmt.Sprintf("chargenow-mcp %s (commit %s, built %s, %s)",
		BuildVersion, BuildCommit, BuildDate, GoVersion)
}

// LogValue groups the build metadata for structured logs.
func LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit),
		slog.String("date", BuildDate),
		slog.String("go", GoVersion),
	)
}
