package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// skipDirs are directory names never descended into when listing.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"vendor":       true,
}

// RegisterFoundational adds the base capabilities every role shares:
// readFile, writeFile, executeCommand, listDirectory. Paths are resolved
// against root and must stay inside it.
func RegisterFoundational(r *Registry, runner CommandRunner, root string) {
	r.Register(Tool{
		Name:     "readFile",
		Params:   []string{"path"},
		Required: []string{"path"},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			full, err := resolve(root, args["path"])
			if err != nil {
				return "", &ExecutionError{Tool: "readFile", Err: err}
			}
			b, err := os.ReadFile(full)
			if errors.Is(err, os.ErrNotExist) {
				return "", &ExecutionError{Tool: "readFile", Err: &FileNotFoundError{Path: args["path"]}}
			}
			if err != nil {
				return "", &ExecutionError{Tool: "readFile", Err: err}
			}
			return string(b), nil
		},
	})

	r.Register(Tool{
		Name:     "writeFile",
		Params:   []string{"path", "content"},
		Required: []string{"path", "content"},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			full, err := resolve(root, args["path"])
			if err != nil {
				return "", &ExecutionError{Tool: "writeFile", Err: err}
			}
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return "", &ExecutionError{Tool: "writeFile", Err: err}
			}
			if err := os.WriteFile(full, []byte(args["content"]), 0o644); err != nil {
				return "", &ExecutionError{Tool: "writeFile", Err: err}
			}
			return "wrote " + args["path"], nil
		},
	})

	r.Register(Tool{
		Name:     "executeCommand",
		Params:   []string{"command", "dir"},
		Required: []string{"command"},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			argv := strings.Fields(args["command"])
			if len(argv) == 0 {
				return "", &ExecutionError{Tool: "executeCommand", Err: errors.New("empty command")}
			}
			dir := root
			if d := args["dir"]; d != "" {
				var err error
				dir, err = resolve(root, d)
				if err != nil {
					return "", &ExecutionError{Tool: "executeCommand", Err: err}
				}
			}
			out, code, err := runCapture(ctx, runner, dir, argv)
			if err != nil || code != 0 {
				return "", &ExecutionError{
					Tool: "executeCommand",
					Err:  fmt.Errorf("exit %d: %v: %s", code, err, strings.TrimSpace(out)),
				}
			}
			return out, nil
		},
	})

	r.Register(Tool{
		Name:     "listDirectory",
		Params:   []string{"path"},
		Required: []string{},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			start := root
			if p := args["path"]; p != "" {
				var err error
				start, err = resolve(root, p)
				if err != nil {
					return "", &ExecutionError{Tool: "listDirectory", Err: err}
				}
			}
			listing, err := listTree(start)
			if errors.Is(err, os.ErrNotExist) {
				return "", &ExecutionError{Tool: "listDirectory", Err: &FileNotFoundError{Path: args["path"]}}
			}
			if err != nil {
				return "", &ExecutionError{Tool: "listDirectory", Err: err}
			}
			return listing, nil
		},
	})
}

// resolve joins rel onto root and rejects escapes.
func resolve(root, rel string) (string, error) {
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("path escapes root: %q", rel)
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full != root && !strings.HasPrefix(full, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes root: %q", rel)
	}
	return full, nil
}

func listTree(start string) (string, error) {
	var b strings.Builder
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		rel, rerr := filepath.Rel(start, path)
		if rerr != nil || rel == "." {
			return nil
		}
		b.WriteString(filepath.ToSlash(rel))
		if d.IsDir() {
			b.WriteString("/")
		}
		b.WriteString("\n")
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
