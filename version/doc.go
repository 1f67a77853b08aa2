// Package version reports build information for the runkit binary. The
// ldflags variables win; the VCS stamps from debug.ReadBuildInfo fill gaps.
//
//	go build -ldflags "-X github.com/kbukum/runkit/version.Version=1.2.0" ./cmd/runkit
package version
