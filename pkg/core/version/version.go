// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     version
// Description: Central version information, overridable at link time
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/msto63/parsecheck/pkg/core/version.GitCommit=..."
var (
	Version   = "1.0.0"
	GitCommit = "development"
	BuildDate = "unknown"
)

// Info bundles the build information
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a one-line description
func (i Info) String() string {
	return fmt.Sprintf("parsecheck v%s (%s, %s)", i.Version, i.GitCommit, i.GoVersion)
}
