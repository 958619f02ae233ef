package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	defer func() { Version, GitCommit, BuildTime = oldV, oldC, oldB }()

	Version, GitCommit, BuildTime = "1.2.0", "a1b2c3d", "2026-02-21T00:00:00Z"

	want := "1.2.0 (commit a1b2c3d, built 2026-02-21T00:00:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
