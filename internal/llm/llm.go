package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when the generation backend is not configured.
var ErrUnavailable = errors.New("llm backend unavailable")

// GenerateRequest is one greedy-decoding generation call against the causal
// LM. MaxNewTokens bounds the newly generated tokens only; implementations
// never re-decode the prompt.
type GenerateRequest struct {
	System       string
	Prompt       string
	MaxNewTokens int
}

type GenerateResponse struct {
	Text         string
	OutputTokens int
}

// Generator is the causal LM contract. ReleaseCache frees whatever
// device-side cache the backend holds and logs memory residency; it must be
// safe to call after both successful and failed generation attempts.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ReleaseCache(ctx context.Context)
}

// Factory builds a Generator bound to a model name from provider-specific
// config.
type Factory func(model string, args interface{}) (Generator, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewGenerator(name, model string, args interface{}) (Generator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("llm.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported llm provider: %s", name)
	}
	return factory(model, args)
}

// IsOOM reports whether a generation failure looks like device memory
// exhaustion. Such failures are fatal to the current job, never retried.
func IsOOM(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "out of memory") || strings.Contains(msg, "oom")
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode provider config: %w", err)
	}
	return nil
}
