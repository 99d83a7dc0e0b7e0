package perception

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"normcode.dev/core/internal/element"
)

// FileLocationNorm reads the file named by the signifier from disk and
// wraps its contents as a primitive string.
type FileLocationNorm struct{}

func (FileLocationNorm) Transmute(_ context.Context, sign *element.Sign) (element.Element, error) {
	data, err := os.ReadFile(sign.Signifier)
	if err != nil {
		return element.Element{}, fmt.Errorf("reading file %q: %w", sign.Signifier, err)
	}
	return element.NewPrimitive(string(data)), nil
}

// PromptLocationNorm reads a prompt template file from disk. It is
// identical to FileLocationNorm at the transmutation boundary; the
// distinction is semantic (paradigm vertical composition treats the
// result as a template, not opaque text).
type PromptLocationNorm struct{}

func (PromptLocationNorm) Transmute(_ context.Context, sign *element.Sign) (element.Element, error) {
	data, err := os.ReadFile(sign.Signifier)
	if err != nil {
		return element.Element{}, fmt.Errorf("reading prompt template %q: %w", sign.Signifier, err)
	}
	return element.NewPrimitive(string(data)), nil
}

// ScriptLocationNorm returns an opaque handle naming the script file;
// execution is deferred to the script_executor tool inside MFP.
type ScriptLocationNorm struct{}

func (ScriptLocationNorm) Transmute(_ context.Context, sign *element.Sign) (element.Element, error) {
	if _, err := os.Stat(sign.Signifier); err != nil {
		return element.Element{}, fmt.Errorf("script %q: %w", sign.Signifier, err)
	}
	return element.NewPrimitive(element.Map{
		"script_path": element.NewPrimitive(sign.Signifier),
		"script_id":   element.NewPrimitive(sign.ID),
	}), nil
}

// LiteralNorm returns the signifier verbatim.
type LiteralNorm struct{}

func (LiteralNorm) Transmute(_ context.Context, sign *element.Sign) (element.Element, error) {
	return element.NewPrimitive(sign.Signifier), nil
}

// MemorizedParameterNorm reads a previously persisted value from Redis,
// keyed by the sign's id. Values are written with Remember and survive
// process restarts; the runtime does not write inference outputs through
// Remember.
type MemorizedParameterNorm struct {
	Client *redis.Client
	Prefix string
}

func NewMemorizedParameterNorm(client *redis.Client, prefix string) *MemorizedParameterNorm {
	return &MemorizedParameterNorm{Client: client, Prefix: prefix}
}

func (m *MemorizedParameterNorm) key(id string) string {
	return fmt.Sprintf("%s:param:%s", m.Prefix, id)
}

func (m *MemorizedParameterNorm) Transmute(ctx context.Context, sign *element.Sign) (element.Element, error) {
	val, err := m.Client.Get(ctx, m.key(sign.ID)).Result()
	if err == redis.Nil {
		return element.Element{}, fmt.Errorf("memorized parameter %q not found", sign.ID)
	}
	if err != nil {
		return element.Element{}, fmt.Errorf("reading memorized parameter %q: %w", sign.ID, err)
	}
	return element.NewPrimitive(val), nil
}

// Remember persists a value under id for later memorized-parameter reads.
func (m *MemorizedParameterNorm) Remember(ctx context.Context, id, value string) error {
	if err := m.Client.Set(ctx, m.key(id), value, 0).Err(); err != nil {
		return fmt.Errorf("persisting memorized parameter %q: %w", id, err)
	}
	return nil
}

// NewDefaultRouter builds a Router with the required norms registered:
// file-location, prompt-location, script-location, literal, and
// memorized-parameter if redisClient is non-nil.
func NewDefaultRouter(redisClient *redis.Client, redisPrefix string) *Router {
	r := NewRouter()
	r.RegisterNorm("file-location", FileLocationNorm{})
	r.RegisterNorm("prompt-location", PromptLocationNorm{})
	r.RegisterNorm("script-location", ScriptLocationNorm{})
	r.RegisterNorm("literal", LiteralNorm{})
	if redisClient != nil {
		r.RegisterNorm("memorized-parameter", NewMemorizedParameterNorm(redisClient, redisPrefix))
	}
	return r
}
