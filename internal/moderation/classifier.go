package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/readee-ai/docproc/internal/model"
)

// ErrUnavailable is returned when a classifier backend is not configured.
var ErrUnavailable = errors.New("moderation backend unavailable")

// Prediction is one classifier verdict. Confidence is in [0,1]; IsToxic is
// the classifier's own thresholded decision, independent of the pipeline's
// confidence thresholds.
type Prediction struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	IsToxic    bool    `json:"is_toxic"`
}

// Provider exposes the batch-predict contract of the two moderation models.
// Results are the same length and order as the input batch.
type Provider interface {
	Name() string
	PredictImages(ctx context.Context, images []model.DocImage) ([]Prediction, error)
	PredictTexts(ctx context.Context, texts []string) ([]Prediction, error)
}

// Factory builds a Provider from provider-specific config.
type Factory func(args interface{}) (Provider, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("moderation.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported moderation provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("provider config is required")
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
