// Package version provides build information.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info contains version and build information
type Info struct {
	Version     string `json:"version"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
	VCSRevision string `json:"vcs_revision,omitempty"`
}

// Get returns the current version and build information
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = buildInfo.GoVersion
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" {
				info.VCSRevision = setting.Value
			}
		}
	}

	return info
}

// String returns a human-readable version string
func (i Info) String() string {
	parts := []string{fmt.Sprintf("Version: %s", i.Version)}
	if i.BuildTime != "unknown" {
		parts = append(parts, fmt.Sprintf("Built: %s", i.BuildTime))
	}
	parts = append(parts, fmt.Sprintf("Go: %s", i.GoVersion))
	if rev := i.VCSRevision; rev != "" {
		if len(rev) > 8 {
			rev = rev[:8]
		}
		parts = append(parts, fmt.Sprintf("Commit: %s", rev))
	}
	return strings.Join(parts, ", ")
}
