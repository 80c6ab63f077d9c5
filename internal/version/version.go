// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	-X github.com/banshee-data/aura/internal/version.Version=v0.3.0
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a binary's -version flag.
func String(binary string) string {
	sha := GitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("%s %s (%s, built %s, %s/%s)", binary, Version, sha, BuildTime, runtime.GOOS, runtime.GOARCH)
}
