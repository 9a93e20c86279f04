package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSFixture(t *testing.T) (*FSTools, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep.txt"), []byte("deep"), 0o644))

	fs, err := NewFSTools(FSConfig{Root: root, MaxFileBytes: 64})
	require.NoError(t, err)
	return fs, root
}

func TestListDirectory(t *testing.T) {
	fs, _ := newFSFixture(t)

	out, err := fs.listDirectory(context.Background(), map[string]any{"path": "."})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, []string{"notes.txt", "sub/"}, result["entries"])
}

func TestListDirectoryNotFound(t *testing.T) {
	fs, _ := newFSFixture(t)

	_, err := fs.listDirectory(context.Background(), map[string]any{"path": "missing"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindNotFound, fail.Kind)
}

func TestReadFile(t *testing.T) {
	fs, _ := newFSFixture(t)

	out, err := fs.readFile(context.Background(), map[string]any{"path": "sub/deep.txt"})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "deep", result["content"])
	assert.Equal(t, int64(4), result["size"])
}

func TestReadFileNotFound(t *testing.T) {
	fs, _ := newFSFixture(t)

	_, err := fs.readFile(context.Background(), map[string]any{"path": "nope.txt"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindNotFound, fail.Kind)
}

func TestReadFileTooLarge(t *testing.T) {
	fs, root := newFSFixture(t)
	big := make([]byte, 65)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))

	_, err := fs.readFile(context.Background(), map[string]any{"path": "big.bin"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindTooLarge, fail.Kind)
}

func TestReadFileRejectsDirectory(t *testing.T) {
	fs, _ := newFSFixture(t)

	_, err := fs.readFile(context.Background(), map[string]any{"path": "sub"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindExecutionError, fail.Kind)
}

func TestResolveRejectsTraversal(t *testing.T) {
	fs, _ := newFSFixture(t)

	for _, path := range []string{
		"../../etc/passwd",
		"sub/../../outside",
		"/etc/passwd",
	} {
		_, fail := fs.resolve(path)
		require.NotNil(t, fail, "path %q should be rejected", path)
		assert.Equal(t, KindAccessDenied, fail.Kind, "path %q", path)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	fs, root := newFSFixture(t)

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	_, err := fs.readFile(context.Background(), map[string]any{"path": "escape/secret.txt"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindAccessDenied, fail.Kind)
}

func TestResolveAllowsRootItself(t *testing.T) {
	fs, _ := newFSFixture(t)

	_, fail := fs.resolve(".")
	assert.Nil(t, fail)
}

func TestRegisterAll(t *testing.T) {
	fs, _ := newFSFixture(t)
	reg := NewRegistry(silentLog())
	require.NoError(t, fs.RegisterAll(reg))

	_, ok := reg.Get("list_directory")
	assert.True(t, ok)
	_, ok = reg.Get("read_file")
	assert.True(t, ok)
}
