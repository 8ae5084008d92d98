package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luoxifan/agentgraph/types"
)

// RegisterFileTools adds the filesystem tools to the registry. All paths are
// resolved relative to the process working directory.
func RegisterFileTools(r *Registry) error {
	fileTools := []Tool{
		{
			Name:        "read_file",
			Description: "Read a text file and return its content",
			Tags:        []string{"file", "io"},
			Func:        readFileTool,
		},
		{
			Name:        "write_file",
			Description: "Write content to a file, creating parent directories",
			Tags:        []string{"file", "io"},
			Func:        writeFileTool,
		},
		{
			Name:        "list_dir",
			Description: "List entries of a directory",
			Tags:        []string{"file", "directory"},
			Func:        listDirTool,
		},
		{
			Name:        "create_dir",
			Description: "Create a directory including parents",
			Tags:        []string{"file", "directory"},
			Func:        createDirTool,
		},
		{
			Name:        "file_exists",
			Description: "Report whether a path exists",
			Tags:        []string{"file"},
			Func:        fileExistsTool,
		},
	}
	for _, tool := range fileTools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func readFileTool(ctx context.Context, args map[string]any) (any, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeFileTool(ctx context.Context, args map[string]any) (any, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create parent dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func listDirTool(ctx context.Context, args map[string]any) (any, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func createDirTool(ctx context.Context, args map[string]any) (any, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", path, err)
	}
	return true, nil
}

func fileExistsTool(ctx context.Context, args map[string]any) (any, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(path)
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return nil, fmt.Errorf("stat %s: %w", path, statErr)
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", types.NewError(types.ErrToolValidation, fmt.Sprintf("missing required argument %q", key))
	}
	s, ok := raw.(string)
	if !ok {
		return "", types.NewError(types.ErrToolValidation, fmt.Sprintf("argument %q must be a string", key))
	}
	return s, nil
}
