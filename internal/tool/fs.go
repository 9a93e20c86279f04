package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSConfig configures the filesystem tools.
type FSConfig struct {
	// Root is the directory the tools are confined to. Paths in tool
	// arguments are resolved relative to it and may never escape it.
	Root string

	// MaxFileBytes is the read_file size ceiling. Zero means 1 MiB.
	MaxFileBytes int64
}

const defaultMaxFileBytes = 1 << 20

// FSTools exposes sandboxed directory listing and file reading.
type FSTools struct {
	root     string
	maxBytes int64
}

// NewFSTools creates filesystem tools rooted at cfg.Root.
func NewFSTools(cfg FSConfig) (*FSTools, error) {
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	return &FSTools{root: resolved, maxBytes: maxBytes}, nil
}

// RegisterAll adds the filesystem tools to a registry.
func (t *FSTools) RegisterAll(reg *Registry) error {
	defs := []Definition{
		NewDefinition("list_directory", "List the entries of a directory under the server root. Directories are suffixed with a trailing slash.",
			ObjectSchema(map[string]Property{
				"path": {Type: "string", Description: "Directory path, relative to the server root"},
			}, "path"),
			t.listDirectory),
		NewDefinition("read_file", "Read a text file under the server root and return its contents.",
			ObjectSchema(map[string]Property{
				"path": {Type: "string", Description: "File path, relative to the server root"},
			}, "path"),
			t.readFile),
	}
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// resolve canonicalizes a requested path and ensures it stays inside the root.
func (t *FSTools) resolve(path string) (string, *Failure) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", Failf(KindAccessDenied, "cannot resolve path: %s", path)
	}

	// Resolve symlinks on the longest existing prefix so a symlink inside
	// the root cannot point outside it.
	resolved, err := resolvePartialSymlinks(abs)
	if err != nil {
		return "", Failf(KindAccessDenied, "cannot resolve path: %s", path)
	}

	clean := filepath.Clean(resolved)
	if clean != t.root && !strings.HasPrefix(clean, t.root+string(filepath.Separator)) {
		return "", Failf(KindAccessDenied, "path is outside the server root: %s", path)
	}
	return clean, nil
}

// resolvePartialSymlinks resolves symlinks for the longest existing prefix of
// absPath, then rejoins the non-existent remainder.
func resolvePartialSymlinks(absPath string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved, nil
	}
	dir := absPath
	var rest []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return absPath, nil
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
	}
}

func (t *FSTools) listDirectory(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	full, fail := t.resolve(path)
	if fail != nil {
		return nil, fail
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Failf(KindNotFound, "directory not found: %s", path)
		}
		return nil, Failf(KindExecutionError, "list directory: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return map[string]any{"path": path, "entries": names}, nil
}

func (t *FSTools) readFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	full, fail := t.resolve(path)
	if fail != nil {
		return nil, fail
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Failf(KindNotFound, "file not found: %s", path)
		}
		return nil, Failf(KindExecutionError, "stat file: %v", err)
	}
	if info.IsDir() {
		return nil, Failf(KindExecutionError, "not a file: %s", path)
	}
	if info.Size() > t.maxBytes {
		return nil, Failf(KindTooLarge, "file %s is %d bytes, limit is %d", path, info.Size(), t.maxBytes)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return nil, Failf(KindExecutionError, "read file: %v", err)
	}
	return map[string]any{"path": path, "size": info.Size(), "content": string(content)}, nil
}
