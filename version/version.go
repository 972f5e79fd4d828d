// Package version reports the build identity of the running binary. The
// variables are set with -ldflags "-X"; fields left empty are filled from
// the VCS stamp the Go toolchain embeds.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
	GoVersion = ""
)

// Info is served by /version and printed by the version command.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	BuildTime string    `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// GetVersionInfo returns the build identity. Without any build time the
// current time is reported.
func GetVersionInfo() *Info {
	bi, _ := debug.ReadBuildInfo()
	info := resolve(Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime, GoVersion: GoVersion}, bi)
	if info.BuildDate.IsZero() {
		info.BuildDate = time.Now().UTC()
		info.BuildTime = info.BuildDate.Format(time.RFC3339)
	}
	return &info
}

func resolve(info Info, bi *debug.BuildInfo) Info {
	if bi != nil {
		if info.GoVersion == "" {
			info.GoVersion = bi.GoVersion
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "":
				info.BuildTime = s.Value
			case s.Key == "vcs.modified":
				info.IsDirty = s.Value == "true"
			}
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
		info.BuildDate = t
	}
	info.IsRelease = info.Version != "dev" && !info.IsDirty && !strings.Contains(info.Version, "dirty")
	return info
}

// Short renders info as version[-commit][-dirty].
func (i *Info) Short() string {
	s := i.Version
	if i.GitCommit != "" {
		s += "-" + i.GitCommit
		if i.IsDirty {
			s += "-dirty"
		}
	}
	return s
}

// GetShortVersion is GetVersionInfo().Short().
func GetShortVersion() string {
	return GetVersionInfo().Short()
}

// UserAgent is the User-Agent header sent upstream by service.
func UserAgent(service string) string {
	return service + "/" + GetShortVersion()
}
