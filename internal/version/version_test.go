package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestInfo(t *testing.T) {
	withBuildInfo(t, nil)
	info := Info()
	if !strings.Contains(info, "wificomp") {
		t.Errorf("Info() should contain 'wificomp', got: %s", info)
	}
	if !strings.Contains(info, runtime.Version()) {
		t.Errorf("Info() should contain Go version, got: %s", info)
	}
}

func TestShort(t *testing.T) {
	withBuildInfo(t, nil)
	if got := Short(); got != "dev" {
		t.Errorf("Short() = %q, want %q (default)", got, "dev")
	}
}

func TestGet_BuildInfoFallback(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	d := Get()
	if d.Version != "v1.2.3" {
		t.Errorf("Version = %q, want %q", d.Version, "v1.2.3")
	}
	if d.GitCommit != "abc123" {
		t.Errorf("GitCommit = %q, want %q", d.GitCommit, "abc123")
	}
	if d.BuildDate != "2026-01-02T03:04:05Z" {
		t.Errorf("BuildDate = %q", d.BuildDate)
	}
	if d.GoVersion != runtime.Version() || d.OS != runtime.GOOS || d.Arch != runtime.GOARCH {
		t.Errorf("runtime fields = %+v", d)
	}
}

func TestGet_DevelBuildKeepsDefault(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if got := Get().Version; got != "dev" {
		t.Errorf("Version = %q, want %q", got, "dev")
	}
}
