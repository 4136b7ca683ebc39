package app

import "fmt"

// Build metadata, set with -ldflags "-X github.com/heartmarshall/promptly/internal/app.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildVersion is the version line shown by `promptly version` and logged at startup.
func BuildVersion() string {
	return fmt.Sprintf("promptly %s (commit %s, built %s)", Version, Commit, BuildTime)
}
