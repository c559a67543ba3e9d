package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cases := map[string]string{
		"":               "",
		"/abs/models":    "/abs/models",
		"rel/models":     "rel/models",
		"~":              home,
		"~/models":       filepath.Join(home, "models"),
		"~/models/depth": filepath.Join(home, "models", "depth"),
		"~other/models":  "~other/models",
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPathExistsAndFileSize(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "m.onnx")
	if err := os.WriteFile(f, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	if !PathExists(f) || !PathExists(dir) {
		t.Fatalf("expected existing paths to be reported")
	}
	if PathExists(filepath.Join(dir, "missing")) {
		t.Fatalf("missing path reported as present")
	}
	if got := FileSize(f); got != 2048 {
		t.Fatalf("FileSize = %d, want 2048", got)
	}
	if FileSize(dir) != 0 || FileSize(filepath.Join(dir, "missing")) != 0 || FileSize("") != 0 {
		t.Fatalf("expected 0 for directories, missing files and empty paths")
	}
}
