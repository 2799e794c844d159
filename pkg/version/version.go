// Package version carries build-time version information for MindMesh.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X github.com/mindmesh/mindmesh/pkg/version.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// String returns a one-line version summary.
func String() string {
	return fmt.Sprintf("mindmesh %s (%s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}

// Info returns all version fields for structured logging.
func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"buildTime": BuildTime,
		"gitCommit": GitCommit,
		"goVersion": GoVersion,
	}
}
