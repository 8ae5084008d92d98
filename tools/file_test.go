package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTools_WriteReadList(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterFileTools(r))
	e := NewExecutor(r, nil)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "note.txt")

	write := e.Run(ctx, "write_file", map[string]any{"path": path, "content": "hello"})
	require.True(t, write.Success, write.Error)

	read := e.Run(ctx, "read_file", map[string]any{"path": path})
	require.True(t, read.Success, read.Error)
	assert.Equal(t, "hello", read.Result)

	list := e.Run(ctx, "list_dir", map[string]any{"path": dir})
	require.True(t, list.Success, list.Error)
	assert.Equal(t, []string{"sub/"}, list.Result)
}

func TestFileTools_Exists(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterFileTools(r))
	e := NewExecutor(r, nil)
	ctx := context.Background()

	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.txt")

	exists := e.Run(ctx, "file_exists", map[string]any{"path": missing})
	require.True(t, exists.Success)
	assert.Equal(t, false, exists.Result)

	created := e.Run(ctx, "create_dir", map[string]any{"path": filepath.Join(dir, "a", "b")})
	require.True(t, created.Success)

	exists = e.Run(ctx, "file_exists", map[string]any{"path": filepath.Join(dir, "a", "b")})
	require.True(t, exists.Success)
	assert.Equal(t, true, exists.Result)
}

func TestFileTools_ReadMissingFails(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterFileTools(r))
	e := NewExecutor(r, nil)

	result := e.Run(context.Background(), "read_file", map[string]any{"path": filepath.Join(t.TempDir(), "nope")})
	assert.False(t, result.Success)
}
