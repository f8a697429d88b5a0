package version

import (
	"strings"
	"testing"
)

func TestGetLdflags(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "v1.2.3", "abc1234"

	info := Get()
	if info.Version != "v1.2.3" || info.Commit != "abc1234" {
		t.Errorf("Get() = %+v", info)
	}
	if !strings.HasPrefix(Full(), "v1.2.3 (commit: abc1234") {
		t.Errorf("Full() = %q", Full())
	}
	if !strings.HasSuffix(UserAgent(), " UPnP/1.1 upnp-cp/1.2.3") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}

func TestGetFallback(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "", ""

	info := Get()
	if info.Version == "" || info.Commit == "" {
		t.Errorf("Get() left empty fields: %+v", info)
	}
}

func TestShortRevision(t *testing.T) {
	if got := shortRevision("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortRevision() = %q", got)
	}
	if got := shortRevision("abc"); got != "abc" {
		t.Errorf("shortRevision() = %q", got)
	}
}
