package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func init() {
	Register("ollama", createOllamaGenerator)
}

type ollamaConfig struct {
	// Endpoint overrides OLLAMA_HOST; empty means resolve from environment.
	Endpoint string `json:"endpoint"`
	// UnloadOnRelease evicts the model when the cache is released. Off by
	// default: reloading weights costs far more than the KV cache saves.
	UnloadOnRelease bool `json:"unload_on_release"`
}

// ollamaGenerator runs greedy decoding against a local ollama server. The
// server owns the KV cache, so ReleaseCache reduces to logging VRAM
// residency, plus an optional model eviction.
type ollamaGenerator struct {
	client          *api.Client
	model           string
	unloadOnRelease bool
}

func createOllamaGenerator(model string, args interface{}) (Generator, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, fmt.Errorf("llm.model is required")
	}

	var client *api.Client
	if cfg.Endpoint == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse ollama endpoint: %w", err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}
	return &ollamaGenerator{
		client:          client,
		model:           model,
		unloadOnRelease: cfg.UnloadOnRelease,
	}, nil
}

func (g *ollamaGenerator) Name() string {
	return "ollama"
}

func (g *ollamaGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	stream := false
	areq := &api.GenerateRequest{
		Model:  g.model,
		System: req.System,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.0,
			"num_predict": req.MaxNewTokens,
		},
	}

	var text strings.Builder
	outputTokens := 0
	err := g.client.Generate(ctx, areq, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.Done {
			outputTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	return &GenerateResponse{Text: text.String(), OutputTokens: outputTokens}, nil
}

func (g *ollamaGenerator) ReleaseCache(ctx context.Context) {
	logger := logutil.GetLogger(ctx)

	running, err := g.client.ListRunning(ctx)
	if err != nil {
		logger.Warn("query loaded models failed", zap.Error(err))
		return
	}
	var vram int64
	for _, m := range running.Models {
		vram += m.SizeVRAM
	}
	logger.Debug("llm cache state",
		zap.Int("loaded_models", len(running.Models)),
		zap.Int64("vram_bytes", vram),
	)

	if !g.unloadOnRelease {
		return
	}
	// KeepAlive of zero tells the server to evict the model now.
	stream := false
	unload := &api.GenerateRequest{
		Model:     g.model,
		KeepAlive: &api.Duration{Duration: 0},
		Stream:    &stream,
	}
	if err := g.client.Generate(ctx, unload, func(api.GenerateResponse) error { return nil }); err != nil {
		logger.Warn("model eviction failed", zap.Error(err))
	}
}
