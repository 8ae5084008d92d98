package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchExecutor(t *testing.T) (*Executor, context.Context) {
	t.Helper()
	r := NewRegistry(nil)
	require.NoError(t, RegisterSearchTools(r))
	return NewExecutor(r, nil), context.Background()
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestGrep_FindsMatchingFiles(t *testing.T) {
	e, ctx := newSearchExecutor(t)
	dir := writeTree(t, map[string]string{
		"a.go":        "package a\nfunc HandleThing() {}\n",
		"b.go":        "package b\n",
		"sub/c.go":    "// HandleThing is wrapped here\n",
		".hidden.go":  "func HandleThing() {}\n",
		"notes.title": "HandleThing",
	})

	res := e.Run(ctx, "grep", map[string]any{"pattern": `Handle\w+`, "path": dir, "include": "*.go"})
	require.True(t, res.Success, res.Error)

	matches, ok := res.Result.([]map[string]any)
	require.True(t, ok)
	require.Len(t, matches, 2)

	var files []string
	for _, m := range matches {
		files = append(files, filepath.Base(m["file"].(string)))
	}
	assert.ElementsMatch(t, []string{"a.go", "c.go"}, files)
}

func TestGrep_LiteralTextEscapesMetacharacters(t *testing.T) {
	e, ctx := newSearchExecutor(t)
	dir := writeTree(t, map[string]string{
		"exact.txt": "call foo(1) now\n",
		"other.txt": "call fooX1Y now\n",
	})

	res := e.Run(ctx, "grep", map[string]any{"pattern": "foo(1)", "path": dir, "literal_text": true})
	require.True(t, res.Success, res.Error)

	matches := res.Result.([]map[string]any)
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(dir, "exact.txt"), matches[0]["file"])
	assert.Equal(t, 1, matches[0]["line"])
}

func TestGrep_InvalidPatternFails(t *testing.T) {
	e, ctx := newSearchExecutor(t)
	res := e.Run(ctx, "grep", map[string]any{"pattern": "(unclosed"})
	assert.False(t, res.Success)
}

func TestGlob_MatchesRecursivePatterns(t *testing.T) {
	e, ctx := newSearchExecutor(t)
	dir := writeTree(t, map[string]string{
		"main.go":          "package main\n",
		"pkg/util.go":      "package pkg\n",
		"pkg/util_test.go": "package pkg\n",
		"docs/readme.md":   "# hi\n",
		".env":             "SECRET=1\n",
	})

	res := e.Run(ctx, "glob", map[string]any{"pattern": "**/*.go", "path": dir})
	require.True(t, res.Success, res.Error)

	paths := res.Result.([]string)
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{"main.go", "util.go", "util_test.go"}, names)
}

func TestGlob_BraceAlternatives(t *testing.T) {
	e, ctx := newSearchExecutor(t)
	dir := writeTree(t, map[string]string{
		"app.ts":  "x\n",
		"app.tsx": "x\n",
		"app.js":  "x\n",
	})

	res := e.Run(ctx, "glob", map[string]any{"pattern": "*.{ts,tsx}", "path": dir})
	require.True(t, res.Success, res.Error)
	assert.Len(t, res.Result.([]string), 2)
}

func TestGlob_InvalidDirectoryFails(t *testing.T) {
	e, ctx := newSearchExecutor(t)
	res := e.Run(ctx, "glob", map[string]any{"pattern": "*", "path": filepath.Join(t.TempDir(), "nope")})
	assert.False(t, res.Success)
}

const greetingDiff = `--- a/greeting.txt
+++ b/greeting.txt
@@ -1,2 +1,2 @@
 hello
-world
+there
`

func TestApplyPatch_RewritesFile(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	e, ctx := newSearchExecutor(t)
	dir := writeTree(t, map[string]string{"greeting.txt": "hello\nworld\n"})

	res := e.Run(ctx, "apply_patch", map[string]any{"diff": greetingDiff, "path": dir})
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(filepath.Join(dir, "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nthere\n", string(data))
}

func TestApplyPatch_DryRunLeavesFileAlone(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	e, ctx := newSearchExecutor(t)
	dir := writeTree(t, map[string]string{"greeting.txt": "hello\nworld\n"})

	res := e.Run(ctx, "apply_patch", map[string]any{"diff": greetingDiff, "path": dir, "dry_run": true})
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(filepath.Join(dir, "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(data))
}

func TestApplyPatch_BadDiffFails(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	e, ctx := newSearchExecutor(t)
	res := e.Run(ctx, "apply_patch", map[string]any{"diff": "not a diff", "path": t.TempDir()})
	assert.False(t, res.Success)
}
