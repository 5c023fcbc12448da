// Package utils holds small helpers shared across commands that do not
// warrant a package of their own.
package utils

import "fmt"

// Build metadata, set with -ldflags "-X" at release time.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo formats the build metadata on one line, e.g.
// "thoughtstream v0.3.0 (abc1234, built 2026-01-02)".
func BuildInfo(name string) string {
	return fmt.Sprintf("%s %s (%s, built %s)", name, Version, Sha, Buildtime)
}
