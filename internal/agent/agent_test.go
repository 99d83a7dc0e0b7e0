package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/element"
)

func TestBodyUnknownTool(t *testing.T) {
	b := NewBody()
	if _, err := b.Tool("llm"); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestFileSystemToolReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tool := NewFileSystemTool(dir)
	ctx := context.Background()

	_, err := tool.Invoke(ctx, element.List{
		element.NewPrimitive("write"),
		element.NewPrimitive("notes/a.txt"),
		element.NewPrimitive("hello"),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := tool.Invoke(ctx, element.List{
		element.NewPrimitive("read"),
		element.NewPrimitive("notes/a.txt"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Primitive.(string) != "hello" {
		t.Fatalf("got %v, want hello", got.Primitive)
	}
}

func TestFileSystemToolRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	tool := NewFileSystemTool(dir)
	_, err := tool.Invoke(context.Background(), element.List{
		element.NewPrimitive("read"),
		element.NewPrimitive("../../etc/passwd"),
	})
	if !errors.Is(err, ErrPathEscapesSandbox) {
		t.Fatalf("expected ErrPathEscapesSandbox, got %v", err)
	}
}

func TestPromptToolFillsTemplate(t *testing.T) {
	tool := NewPromptTool()
	got, err := tool.Invoke(context.Background(), element.List{
		element.NewPrimitive("hello {{name}}"),
		element.NewPrimitive(element.Map{"name": element.NewPrimitive("world")}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Primitive.(string) != "hello world" {
		t.Fatalf("got %q, want %q", got.Primitive, "hello world")
	}
}

func TestUserInputToolBlocksUntilDelivered(t *testing.T) {
	ch := make(chan element.Element, 1)
	ch <- element.NewPrimitive("yes")
	tool := NewUserInputTool(ch)
	got, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Primitive.(string) != "yes" {
		t.Fatalf("got %v, want yes", got.Primitive)
	}
}

func TestScriptExecutorToolRuns(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "double.go")
	src := `package main

func Run(args []any) (any, error) {
	n := args[0].(float64)
	return n * 2, nil
}
`
	if err := os.WriteFile(script, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewScriptExecutorTool()
	handle := element.NewPrimitive(element.Map{
		"script_path": element.NewPrimitive(script),
		"script_id":   element.NewPrimitive("double"),
	})
	got, err := tool.Invoke(context.Background(), element.List{handle, element.NewPrimitive(21.0)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Primitive.(float64) != 42 {
		t.Fatalf("got %v, want 42", got.Primitive)
	}
}

func TestFrameDefaultsToComposition(t *testing.T) {
	f := NewFrame("")
	if f.ParadigmMode() != ModeComposition {
		t.Fatalf("expected default mode %q, got %q", ModeComposition, f.ParadigmMode())
	}
}

func TestAgentRegistry(t *testing.T) {
	a := NewAgent("researcher", NewBody(), nil)
	r := NewRegistry(a)
	got, ok := r.Get("researcher")
	if !ok || got != a {
		t.Fatal("expected registry to return the registered agent")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected missing agent lookup to fail")
	}
}
