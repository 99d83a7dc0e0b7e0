package mcpserver

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/httpapi"
)

func newTestService() *httpapi.Service {
	return httpapi.NewService(checkpoint.NewMemoryStore(), nil)
}

func TestNewRegistersWithoutPanicking(t *testing.T) {
	s := New(newTestService())
	if s.server == nil {
		t.Fatal("expected an underlying MCP server to be constructed")
	}
}

func TestJSONResultMarshalsPayload(t *testing.T) {
	res, err := jsonResult(map[string]string{"run_id": "run-1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %v", res.Content)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	if text.Text == "" {
		t.Fatal("expected non-empty JSON text")
	}
}
