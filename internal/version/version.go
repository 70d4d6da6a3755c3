// Package version provides build-time version information for wificomp.
// Variables are injected at build time via ldflags; module builds fall back
// to the embedded build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Details is the version record printed by `wificomp version`.
type Details struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
}

// Get returns the version details. When no ldflags were set, the module
// version and VCS settings embedded by the go tool are used.
func Get() Details {
	d := Details{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	info, ok := readBuildInfo()
	if !ok {
		return d
	}
	if d.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		d.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && d.GitCommit == "unknown":
			d.GitCommit = s.Value
		case s.Key == "vcs.time" && d.BuildDate == "unknown":
			d.BuildDate = s.Value
		}
	}
	return d
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	d := Get()
	return fmt.Sprintf("wificomp %s (commit: %s, built: %s, go: %s)",
		d.Version, d.GitCommit, d.BuildDate, d.GoVersion)
}

// Short returns just the version string (e.g., "0.1.0" or "dev").
func Short() string {
	return Get().Version
}
