package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"google.golang.org/genai"
)

func init() {
	Register("gemini", createGeminiGenerator)
}

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

// geminiGenerator offloads generation to the hosted Gemini API, for
// deployments without local GPU capacity. The remote service manages its own
// memory, so ReleaseCache is a no-op.
type geminiGenerator struct {
	apiKey string
	model  string
}

func createGeminiGenerator(model string, args interface{}) (Generator, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, fmt.Errorf("llm.model is required")
	}
	return &geminiGenerator{apiKey: cfg.APIKey, model: model}, nil
}

func (g *geminiGenerator) Name() string {
	return "gemini"
}

func (g *geminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if g.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: int32(req.MaxNewTokens),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &GenerateResponse{Text: strings.TrimSpace(resp.Text())}
	if resp.UsageMetadata != nil {
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (g *geminiGenerator) ReleaseCache(ctx context.Context) {
	logutil.GetLogger(ctx).Debug("remote llm backend, nothing to release")
}
