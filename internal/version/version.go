// Package version carries build identity, overridden at link time:
//
//	-ldflags "-X github.com/jutt313/code-xi/internal/version.Version=v1.2.3"
package version

var (
	Version = "dev"
	Commit  = "none"
)
