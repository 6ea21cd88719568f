package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Error("expected a version")
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, "turfkit/") {
		t.Errorf("unexpected user agent %q", ua)
	}
}

func TestStringTruncatesCommit(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "0123456789abcdef0123"}
	got := info.String()
	if got != "1.2.0+0123456789ab" {
		t.Errorf("unexpected version string %q", got)
	}
}
