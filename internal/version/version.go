// Package version reports the crewforge release embedded at build time.
package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionContent string

// Commit is set with -ldflags "-X github.com/ShayCichocki/crewforge/internal/version.Commit=<sha>".
var Commit = ""

// Get returns the current version, with whitespace trimmed.
func Get() string {
	v := strings.TrimSpace(versionContent)
	if v == "" {
		return "dev"
	}
	return v
}

// Full returns the version with the commit, when known, and the Go runtime.
func Full() string {
	v := Get()
	if Commit != "" {
		v += " (" + Commit + ")"
	}
	return v + " " + runtime.Version()
}
