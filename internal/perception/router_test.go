package perception

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/element"
)

func TestRouterUnknownNorm(t *testing.T) {
	r := NewRouter()
	sign := &element.Sign{Norm: "mystery", ID: "x", Signifier: "y"}
	if _, err := r.Resolve(context.Background(), sign); !errors.Is(err, ErrUnknownPerceptionNorm) {
		t.Fatalf("expected ErrUnknownPerceptionNorm, got %v", err)
	}
}

func TestFileLocationNorm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRouter()
	r.RegisterNorm("file-location", FileLocationNorm{})
	sign := &element.Sign{Norm: "file-location", ID: "d1", Signifier: path}
	e, err := r.Resolve(context.Background(), sign)
	if err != nil {
		t.Fatal(err)
	}
	if e.Primitive.(string) != "hello" {
		t.Fatalf("got %v, want hello", e.Primitive)
	}
}

func TestLiteralNorm(t *testing.T) {
	r := NewRouter()
	r.RegisterNorm("literal", LiteralNorm{})
	sign := &element.Sign{Norm: "literal", ID: "l1", Signifier: "plain value"}
	e, err := r.Resolve(context.Background(), sign)
	if err != nil {
		t.Fatal(err)
	}
	if e.Primitive.(string) != "plain value" {
		t.Fatalf("got %v, want %q", e.Primitive, "plain value")
	}
}

func TestScriptLocationNormMissingFile(t *testing.T) {
	r := NewRouter()
	r.RegisterNorm("script-location", ScriptLocationNorm{})
	sign := &element.Sign{Norm: "script-location", ID: "s1", Signifier: "/no/such/script.go"}
	if _, err := r.Resolve(context.Background(), sign); err == nil {
		t.Fatal("expected error for missing script file")
	}
}
