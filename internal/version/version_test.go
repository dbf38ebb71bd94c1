package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	v := Get()
	if v == "" {
		t.Fatal("Get returned an empty version")
	}
	if strings.ContainsAny(v, " \n\t") {
		t.Errorf("version %q should be trimmed", v)
	}
}

func TestFull(t *testing.T) {
	old := Commit
	defer func() { Commit = old }()

	Commit = ""
	if got := Full(); got != Get()+" "+runtime.Version() {
		t.Errorf("unexpected Full() without commit: %q", got)
	}

	Commit = "abc123"
	if got := Full(); !strings.Contains(got, "(abc123)") {
		t.Errorf("Full() = %q, want commit included", got)
	}
}
