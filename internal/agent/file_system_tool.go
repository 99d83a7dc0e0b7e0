package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"normcode.dev/core/internal/element"
)

// ErrPathEscapesSandbox is returned when a file_system tool call would
// read or write outside its configured root.
var ErrPathEscapesSandbox = errors.New("path escapes sandbox root")

// FileSystemTool is the "file_system" Body tool, sandboxed to a root
// directory. Invoke expects args[0] = operation ("read"|"write"),
// args[1] = relative path, and for "write" args[2] = content.
type FileSystemTool struct {
	root string
}

// NewFileSystemTool builds a tool sandboxed to root.
func NewFileSystemTool(root string) *FileSystemTool {
	return &FileSystemTool{root: root}
}

func (t *FileSystemTool) Name() string { return "file_system" }

func (t *FileSystemTool) resolve(rel string) (string, error) {
	full := filepath.Join(t.root, rel)
	cleanRoot := filepath.Clean(t.root)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("file_system tool: %q: %w", rel, ErrPathEscapesSandbox)
	}
	return full, nil
}

func (t *FileSystemTool) Invoke(_ context.Context, args element.List) (element.Element, error) {
	if len(args) < 2 {
		return element.Element{}, fmt.Errorf("file_system tool: expected (operation, path, ...), got %d args", len(args))
	}
	op, _ := args[0].Primitive.(string)
	rel, _ := args[1].Primitive.(string)
	full, err := t.resolve(rel)
	if err != nil {
		return element.Element{}, err
	}

	switch op {
	case "read":
		data, err := os.ReadFile(full)
		if err != nil {
			return element.Element{}, fmt.Errorf("file_system tool: reading %q: %w", rel, err)
		}
		return element.NewPrimitive(string(data)), nil
	case "write":
		if len(args) < 3 {
			return element.Element{}, fmt.Errorf("file_system tool: write requires content argument")
		}
		content, _ := args[2].Primitive.(string)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return element.Element{}, fmt.Errorf("file_system tool: preparing directory for %q: %w", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return element.Element{}, fmt.Errorf("file_system tool: writing %q: %w", rel, err)
		}
		return element.NewPrimitive(true), nil
	default:
		return element.Element{}, fmt.Errorf("file_system tool: unknown operation %q", op)
	}
}
