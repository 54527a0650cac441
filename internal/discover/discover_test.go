package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	sort.Strings(out)
	return out
}

func TestDiscoverBasic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.js"), "module.exports = {};\n")
	writeFile(t, filepath.Join(dir, "src", "app.ts"), "export const x = 1;\n")
	writeFile(t, filepath.Join(dir, "src", "view.tsx"), "export const V = () => null;\n")
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	got := relPaths(files)
	want := []string{"index.js", "src/app.ts", "src/view.tsx"}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	for _, f := range files {
		if f.Path == "" || f.Language == "" {
			t.Errorf("incomplete FileInfo %+v", f)
		}
	}
}

func TestDiscoverSkipsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.js"), "")
	writeFile(t, filepath.Join(dir, "node_modules", "lib", "index.js"), "")
	writeFile(t, filepath.Join(dir, "dist", "bundle.js"), "")
	writeFile(t, filepath.Join(dir, "src", "a.min.js"), "")
	writeFile(t, filepath.Join(dir, "src", "types.d.ts"), "")
	writeFile(t, filepath.Join(dir, "fixtures", "f.js"), "")
	writeFile(t, filepath.Join(dir, "gen", "out.js"), "")
	writeFile(t, filepath.Join(dir, IgnoreFileName), "# generated\ngen\n")

	files, err := Discover(context.Background(), dir, &Options{Exclude: []string{"fixtures/**"}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "src/a.js" {
		t.Errorf("files = %v, want [src/a.js]", got)
	}
}

func TestDiscoverRejectsBadGlob(t *testing.T) {
	_, err := Discover(context.Background(), t.TempDir(), &Options{Exclude: []string{"[unclosed"}})
	if err == nil {
		t.Fatal("expected error for malformed glob")
	}
}

func TestFilterMatchesDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, IgnoreFileName), "gen\n")
	f, err := NewFilter(dir, &Options{Exclude: []string{"fixtures/**"}})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	for rel, want := range map[string]bool{
		"src/a.js":               true,
		"src/b.tsx":              true,
		"package.json":           true,
		"packages/api/index.mjs": true,
		"src/a.min.js":           false,
		"node_modules/x/i.js":    false,
		"gen/out.js":             false,
		"fixtures/f.js":          false,
		"README.md":              false,
	} {
		if got := f.Source(rel); got != want {
			t.Errorf("Source(%q) = %v, want %v", rel, got, want)
		}
	}
	if !f.SkipDir("dist") || f.SkipDir("src") {
		t.Error("SkipDir disagrees with IGNORE_PATTERNS")
	}
}

func TestFindManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), "{}")
	writeFile(t, filepath.Join(dir, "packages", "api", "package.json"), "{}")
	writeFile(t, filepath.Join(dir, "node_modules", "x", "package.json"), "{}")

	got, err := FindManifests(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("FindManifests: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "package.json" || got[1] != "packages/api/package.json" {
		t.Errorf("manifests = %v", got)
	}
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.js")
	writeFile(t, p, "let a = 1;\n")

	h1, err := FileHash(p)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != HashBytes([]byte("let a = 1;\n")) {
		t.Error("FileHash and HashBytes disagree")
	}
	writeFile(t, p, "let a = 2;\n")
	h2, _ := FileHash(p)
	if h1 == h2 {
		t.Error("hash must change with content")
	}
	if _, err := FileHash(filepath.Join(dir, "missing.js")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDiscoverCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // pre-cancel

	_, err := Discover(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
