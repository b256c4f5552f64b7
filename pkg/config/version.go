// Package config carries build metadata for AlertDesk binaries.
package config

import (
	"fmt"
	"runtime"
)

// Stamped at build time through -ldflags "-X ...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the JSON form of the build metadata.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo snapshots the stamped values plus runtime details.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// VersionString renders the one line version banner.
func VersionString() string {
	return fmt.Sprintf("alertdesk %s (%s) built at %s with %s",
		Version, Commit, BuildTime, runtime.Version())
}
