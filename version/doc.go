// Package version exposes build information for the transcriber binary.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/whisperbatch/version.Version=1.2.0" ./cmd/transcriber
//
// When they are not set, the VCS stamp embedded by the Go toolchain is used.
package version
