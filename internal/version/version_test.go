package version

import (
	"runtime/debug"
	"testing"
)

func TestResolvePrefersLinkedValues(t *testing.T) {
	t.Parallel()

	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.0.9"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "ffffffffffffffffffff"},
				{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
			},
		}, true
	}
	info := resolve("v1.2.0", "0123456789abcdef", "", read)
	if info.Version != "v1.2.0" || info.Commit != "0123456789abcdef" {
		t.Fatalf("linked values overridden: %+v", info)
	}
	if info.BuildTime != "2026-01-01T00:00:00Z" {
		t.Fatalf("expected vcs time fallback, got %q", info.BuildTime)
	}
	if got := info.String(); got != "v1.2.0 (0123456789ab)" {
		t.Fatalf("String: got %q", got)
	}
}

func TestResolveFallbacks(t *testing.T) {
	t.Parallel()

	none := func() (*debug.BuildInfo, bool) { return nil, false }
	info := resolve("", "", "", none)
	if info.Version != devVersion || info.Commit != "" {
		t.Fatalf("unexpected fallback: %+v", info)
	}
	if info.String() != devVersion {
		t.Fatalf("String without commit: got %q", info.String())
	}

	devel := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	if got := resolve("", "", "", devel).Version; got != devVersion {
		t.Fatalf("expected %q for devel builds, got %q", devVersion, got)
	}

	module := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}, true
	}
	if got := resolve("", "", "", module).Version; got != "v0.3.1" {
		t.Fatalf("expected module version, got %q", got)
	}
}
