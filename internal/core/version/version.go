// Package version reports what build is running
package version

import "runtime/debug"

// Stamped with -ldflags "-X trendsetl/internal/core/version.version=v0.3.0 ..."
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// BuildInfo is served on /meta/version and logged at startup
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the stamped build values, falling back to the VCS data the
// go toolchain embeds when ldflags were not used
func Info() BuildInfo {
	bi := BuildInfo{Service: "trendsetl", Version: version, Commit: commit, Date: date}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && bi.Commit == "":
				bi.Commit = s.Value
			case s.Key == "vcs.time" && bi.Date == "":
				bi.Date = s.Value
			}
		}
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}

// UserAgent is the product token sent upstream
func UserAgent() string { return "trendsetl/" + version }
