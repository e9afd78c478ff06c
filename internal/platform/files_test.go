package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.md")
	dst := filepath.Join(dir, "dst.md")
	if err := os.WriteFile(src, []byte("new content"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst, 0644); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new content" {
		t.Errorf("dst content = %q", got)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(dst)
		if perm := info.Mode().Perm(); perm != 0644 {
			t.Errorf("permissions = %o, want 0644", perm)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected no temp files left behind, found %d entries", len(entries))
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst.md")
	if err := CopyFile(filepath.Join(dir, "missing.md"), dst, 0644); err == nil {
		t.Fatal("expected error for missing source")
	}
	if Exists(dst) {
		t.Error("dst should not be created when the source is missing")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{}\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRemoveIfEmpty(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "empty")
	full := filepath.Join(root, "full")
	for _, d := range []string{empty, full} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(full, "keep"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		dir         string
		wantRemoved bool
	}{
		{empty, true},
		{full, false},
		{filepath.Join(root, "missing"), false},
	}
	for _, tt := range tests {
		removed, err := RemoveIfEmpty(tt.dir)
		if err != nil {
			t.Errorf("RemoveIfEmpty(%s) error: %v", tt.dir, err)
		}
		if removed != tt.wantRemoved {
			t.Errorf("RemoveIfEmpty(%s) = %v, want %v", tt.dir, removed, tt.wantRemoved)
		}
	}
	if !Exists(full) {
		t.Error("non-empty directory was removed")
	}
}
