package discover

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/zeebo/xxh3"

	"github.com/Disentinel/grafema-sub012/internal/lang"
)

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".git": true, ".grafema": true, ".hg": true,
	".idea": true, ".next": true, ".npm": true, ".nuxt": true,
	".nyc_output": true, ".parcel-cache": true, ".pnpm-store": true,
	".svn": true, ".tmp": true, ".turbo": true, ".vs": true,
	".vscode": true, ".yarn": true, "bower_components": true,
	"build": true, "coverage": true, "dist": true, "node_modules": true,
	"out": true, "temp": true, "tmp": true, "vendor": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = map[string]bool{
	".tmp": true, "~": true, ".min.js": true, ".bundle.js": true,
	".map": true, ".d.ts": true,
}

// IgnoreFileName is the optional per-project ignore file, one glob per line.
const IgnoreFileName = ".grafemaignore"

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string // path to an ignore file (optional)
	// Exclude holds extra globs matched against slash-separated relative
	// paths and bare names.
	Exclude []string
}

type matcher struct {
	globs []glob.Glob
}

func newMatcher(patterns []string) (*matcher, error) {
	m := &matcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *matcher) match(name, rel string) bool {
	for _, g := range m.globs {
		if g.Match(name) || g.Match(rel) {
			return true
		}
	}
	return false
}

// shouldSkipDir returns true if the directory should be skipped during discovery.
func shouldSkipDir(name, rel string, m *matcher) bool {
	if IGNORE_PATTERNS[name] {
		return true
	}
	return m.match(name, rel)
}

func hasIgnoredSuffix(name string) bool {
	for suffix := range IGNORE_SUFFIXES {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func buildMatcher(repoPath string, opts *Options) (*matcher, error) {
	var patterns []string
	ignPath := filepath.Join(repoPath, IgnoreFileName)
	if opts != nil && opts.IgnoreFile != "" {
		ignPath = opts.IgnoreFile
	}
	fromFile, _ := loadIgnoreFile(ignPath)
	patterns = append(patterns, fromFile...)
	if opts != nil {
		patterns = append(patterns, opts.Exclude...)
	}
	return newMatcher(patterns)
}

// Filter applies the discovery ignore rules to single paths, for callers
// that learn about files one at a time.
type Filter struct {
	m *matcher
}

// NewFilter loads the ignore file and exclude globs for repoPath.
func NewFilter(repoPath string, opts *Options) (*Filter, error) {
	m, err := buildMatcher(repoPath, opts)
	if err != nil {
		return nil, err
	}
	return &Filter{m: m}, nil
}

// SkipDir reports whether the directory at rel (slash separated) is ignored.
func (f *Filter) SkipDir(rel string) bool {
	return shouldSkipDir(path.Base(rel), rel, f.m)
}

// Source reports whether Discover would return the file at rel, or whether
// it is a package manifest.
func (f *Filter) Source(rel string) bool {
	name := path.Base(rel)
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if f.SkipDir(dir) {
			return false
		}
	}
	if name == "package.json" {
		return true
	}
	if hasIgnoredSuffix(name) || f.m.match(name, rel) {
		return false
	}
	_, ok := lang.LanguageForExtension(filepath.Ext(name))
	return ok
}

// Discover walks a repository and returns all JavaScript and TypeScript
// source files.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	// Check cancellation before starting walk
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := buildMatcher(repoPath, opts)
	if err != nil {
		return nil, err
	}

	var files []FileInfo

	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(repoPath, path)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && shouldSkipDir(info.Name(), rel, m) {
				return filepath.SkipDir
			}
			return nil
		}

		if hasIgnoredSuffix(path) || m.match(info.Name(), rel) {
			return nil
		}

		l, ok := lang.LanguageForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			RelPath:  rel,
			Language: l,
		})
		return nil
	})

	return files, err
}

// FindManifests returns the slash-separated relative paths of every
// package.json under repoPath, honouring the same directory ignores as
// Discover.
func FindManifests(ctx context.Context, repoPath string, opts *Options) ([]string, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	m, err := buildMatcher(repoPath, opts)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(repoPath, path)
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if rel != "." && shouldSkipDir(info.Name(), rel, m) {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == "package.json" {
			out = append(out, rel)
		}
		return nil
	})
	return out, err
}

// FileHash returns the hex xxh3 digest of a file's contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex xxh3 digest of b.
func HashBytes(b []byte) string {
	h := xxh3.New()
	_, _ = h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
