// Package version exposes the turfkit build version, embedded at build
// time and reported to the game API in the User-Agent header.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/openturf/turfkit/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
)

// Info is the resolved build information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Get resolves the build information, falling back to the module build
// info when no ldflags were provided.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		if info.GitCommit == "" {
			for _, setting := range bi.Settings {
				if setting.Key == "vcs.revision" {
					info.GitCommit = setting.Value
					break
				}
			}
		}
	}

	return info
}

// UserAgent returns the User-Agent value sent with API requests.
func UserAgent() string {
	return fmt.Sprintf("turfkit/%s", Get().Version)
}

// String formats the build information for logs and CLI output.
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		commit := i.GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		s += "+" + commit
	}
	return s
}
