package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, src := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIDParse(t *testing.T) {
	code, out, _ := run(t, "id", "parse", "src/app.js->handler->if#0->CALL->res.send#1")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{
		"file:  src/app.js",
		"scope: handler > if#0",
		"type:  CALL",
		"name:  res.send",
		"disc:  1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIDParseRejectsLegacyID(t *testing.T) {
	code, _, errOut := run(t, "id", "parse", "3f2a9c")
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(errOut, "not a semantic identifier") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestIDCompute(t *testing.T) {
	code, out, _ := run(t, "id", "compute", "--file", "a.js", "--scope", "outer", "--disc", "2", "FUNCTION", "f")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if got := strings.TrimSpace(out); got != "a.js->outer->FUNCTION->f#2" {
		t.Errorf("id = %q", got)
	}
}

func TestPluginsInPhaseOrder(t *testing.T) {
	code, out, _ := run(t, "plugins")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	order := []string{
		"discovery", "WorkspaceDiscovery",
		"indexing", "ModuleIndexer",
		"analysis", "JSASTAnalyzer", "ExpressRouteAnalyzer",
		"enrichment", "ImportResolver", "InheritanceResolver", "CallResolver",
		"validation", "EvalBanValidator",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		if i <= last {
			t.Fatalf("%q out of order in:\n%s", s, out)
		}
		last = i
	}
	if !strings.Contains(out, "covers=express") {
		t.Errorf("missing covers column:\n%s", out)
	}
}

func TestAnalyzeThenStats(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"package.json": `{"name": "demo"}`,
		"index.js":     "function main() { helper(); }\nfunction helper() {}\nmain();\n",
	})
	db := filepath.Join(t.TempDir(), "graph.db")

	code, out, errOut := run(t, "analyze", dir, "--db", db, "--workers", "1")
	if code != 0 {
		t.Fatalf("analyze exit %d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
	if !strings.Contains(out, "units: 1") || !strings.Contains(out, "OK") {
		t.Errorf("unexpected report:\n%s", out)
	}

	code, out, errOut = run(t, "stats", dir, "--db", db)
	if code != 0 {
		t.Fatalf("stats exit %d: %s", code, errOut)
	}
	for _, want := range []string{"legacy ids: 0", "node FUNCTION", "edge CALLS"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeStrictFailure(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"package.json": `{"name": "demo"}`,
		"index.js":     "eval('1 + 1');\n",
	})
	db := filepath.Join(t.TempDir(), "graph.db")

	code, out, _ := run(t, "analyze", dir, "--db", db)
	if code != 0 {
		t.Fatalf("non-strict exit %d:\n%s", code, out)
	}

	code, out, _ = run(t, "analyze", dir, "--db", db, "--strict")
	if code != 1 {
		t.Fatalf("strict exit %d, want 1:\n%s", code, out)
	}
	if !strings.Contains(out, "ERR_EVAL_BANNED") || !strings.Contains(out, "FAILED") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestStatsWithoutAnalysis(t *testing.T) {
	dir := writeFiles(t, map[string]string{"package.json": `{}`})
	code, _, errOut := run(t, "stats", dir, "--db", filepath.Join(dir, "missing.db"))
	if code != 1 || !strings.Contains(errOut, "grafema analyze") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}
