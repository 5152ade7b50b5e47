package scan

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kalambet/gemsearch/internal/remote"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("content of "+f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScan_SkipsHiddenAndDependencyDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"report.pdf",
		"notes/summary.txt",
		"notes/deep/nested.md",
		".env",
		".git/config",
		"notes/.hidden.txt",
		"node_modules/pkg/index.js",
		"notes/node_modules/x/readme.md",
		"notes/.cache/blob.bin",
	)

	got, err := Scan(root, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{"notes/deep/nested.md", "notes/summary.txt", "report.pdf"}
	if rel := relPaths(t, root, got); !equalStrings(rel, want) {
		t.Errorf("Scan() = %v, want %v", rel, want)
	}
	for _, p := range got {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q is not absolute", p)
		}
	}
}

func TestScan_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b.txt", "a.txt", "dir/c.txt")

	first, err := Scan(root, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := Scan(root, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !equalStrings(first, second) {
		t.Errorf("rescans differ: %v vs %v", first, second)
	}

	seen := make(map[string]bool)
	for _, p := range first {
		if seen[p] {
			t.Errorf("path %q returned twice", p)
		}
		seen[p] = true
	}
}

func TestScan_IgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "keep.pdf", "drafts/old.pdf", "scratch.tmp", "docs/final.pdf")
	if err := os.WriteFile(filepath.Join(root, ".gemsearchignore"), []byte("drafts/\n*.tmp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Scan(root, Options{IgnoreFile: ".gemsearchignore"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{"docs/final.pdf", "keep.pdf"}
	if rel := relPaths(t, root, got); !equalStrings(rel, want) {
		t.Errorf("Scan() = %v, want %v", rel, want)
	}
}

func TestScan_MissingIgnoreFileIsFine(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt")

	got, err := Scan(root, Options{IgnoreFile: ".gemsearchignore"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d files, want 1", len(got))
	}
}

func TestScan_IncludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.pdf", "b.txt", "sub/c.pdf", "sub/d.md")

	got, err := Scan(root, Options{Include: []string{"**/*.pdf"}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{"a.pdf", "sub/c.pdf"}
	if rel := relPaths(t, root, got); !equalStrings(rel, want) {
		t.Errorf("Scan() = %v, want %v", rel, want)
	}
}

func TestScan_InvalidIncludePattern(t *testing.T) {
	if _, err := Scan(t.TempDir(), Options{Include: []string{"[unclosed"}}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), Options{})
	var scanErr *remote.ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("err = %v, want *remote.ScanError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want it to wrap os.ErrNotExist", err)
	}
}

func TestScan_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "file.txt")

	_, err := Scan(filepath.Join(root, "file.txt"), Options{})
	var scanErr *remote.ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("err = %v, want *remote.ScanError", err)
	}
}

func TestScan_EmptyDir(t *testing.T) {
	got, err := Scan(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no files", got)
	}
}
