package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/luoxifan/agentgraph/types"
)

// maxSearchResults caps grep and glob output, newest files first.
const maxSearchResults = 100

// RegisterSearchTools adds the code search and patching tools to the
// registry.
func RegisterSearchTools(r *Registry) error {
	searchTools := []Tool{
		{
			Name:        "grep",
			Description: "Search file contents for a regex pattern, newest matches first",
			Tags:        []string{"search"},
			Func:        grepTool,
		},
		{
			Name:        "glob",
			Description: "Find files matching a glob pattern, newest first",
			Tags:        []string{"search"},
			Func:        globTool,
		},
		{
			Name:        "apply_patch",
			Description: "Apply a unified diff to files under a directory",
			Tags:        []string{"search", "edit"},
			Func:        applyPatchTool,
		},
	}
	for _, tool := range searchTools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// grepTool walks the tree under "path" (default ".") and reports the first
// line matching "pattern" per file. "include" filters file names with a glob,
// "literal_text" escapes the pattern. Hidden files are skipped.
func grepTool(ctx context.Context, args map[string]any) (any, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return nil, err
	}
	root := optionalStringArg(args, "path", ".")
	include := optionalStringArg(args, "include", "")
	if boolArg(args, "literal_text") {
		pattern = regexp.QuoteMeta(pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("invalid pattern: %v", err))
	}

	type match struct {
		file    string
		line    int
		text    string
		modTime int64
	}
	var matches []match

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if include != "" {
			ok, matchErr := doublestar.Match(include, d.Name())
			if matchErr != nil {
				return types.NewError(types.ErrToolValidation, fmt.Sprintf("invalid include pattern: %v", matchErr))
			}
			if !ok {
				return nil
			}
		}
		line, text, found := firstMatch(path, re)
		if !found {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		matches = append(matches, match{file: path, line: line, text: text, modTime: info.ModTime().UnixNano()})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })
	if len(matches) > maxSearchResults {
		matches = matches[:maxSearchResults]
	}

	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]any{"file": m.file, "line": m.line, "text": m.text})
	}
	return out, nil
}

// firstMatch scans one file and returns the first matching line. Unreadable
// files count as no match.
func firstMatch(path string, re *regexp.Regexp) (int, string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			return lineNum, strings.TrimRight(line, "\r\n"), true
		}
	}
	return 0, "", false
}

// globTool lists files under "path" (default ".") matching "pattern". The
// pattern supports **, ? and {a,b} alternatives. Hidden files are skipped and
// results come newest first.
func globTool(ctx context.Context, args map[string]any) (any, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return nil, err
	}
	root := optionalStringArg(args, "path", ".")

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("invalid directory %q", root))
	}

	rels, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("invalid pattern: %v", err))
	}

	type entry struct {
		path    string
		modTime int64
	}
	var files []entry
	for _, rel := range rels {
		if strings.HasPrefix(filepath.Base(rel), ".") {
			continue
		}
		full := filepath.Join(root, rel)
		stat, statErr := os.Stat(full)
		if statErr != nil || stat.IsDir() {
			continue
		}
		files = append(files, entry{path: full, modTime: stat.ModTime().UnixNano()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime > files[j].modTime })
	if len(files) > maxSearchResults {
		files = files[:maxSearchResults]
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.path)
	}
	return paths, nil
}

// applyPatchTool pipes the "diff" argument through git apply rooted at
// "path" (default "."). "strip" sets the -p level (default 1), "reverse"
// un-applies, and "dry_run" only validates.
func applyPatchTool(ctx context.Context, args map[string]any) (any, error) {
	diff, err := stringArg(args, "diff")
	if err != nil {
		return nil, err
	}
	root := optionalStringArg(args, "path", ".")
	strip := intArg(args, "strip", 1)

	if _, err := exec.LookPath("git"); err != nil {
		return nil, types.NewError(types.ErrToolValidation, "git is required to apply patches")
	}

	cmdArgs := []string{"apply", fmt.Sprintf("-p%d", strip)}
	if boolArg(args, "reverse") {
		cmdArgs = append(cmdArgs, "-R")
	}
	if boolArg(args, "dry_run") {
		cmdArgs = append(cmdArgs, "--check")
	}

	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	cmd.Dir = root
	cmd.Stdin = strings.NewReader(diff)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("apply patch: %s", msg))
	}
	return true, nil
}

// optionalStringArg returns the string under key, or fallback when absent or
// not a string.
func optionalStringArg(args map[string]any, key, fallback string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// boolArg returns the bool under key, false when absent.
func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// intArg returns the integer under key, tolerating JSON's float64 decoding.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
