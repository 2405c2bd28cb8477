package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/readee-ai/docproc/internal/model"
)

func init() {
	Register("http", createHTTPProvider)
}

type httpConfig struct {
	ImageEndpoint  string `json:"image_endpoint"`
	TextEndpoint   string `json:"text_endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// httpProvider calls the two moderation model servers over HTTP. The image
// server accepts a multipart batch of JPEG frames, the text server a JSON
// array of strings; both respond with a prediction array matching the input
// order.
type httpProvider struct {
	imageEndpoint string
	textEndpoint  string
	client        *http.Client
}

func createHTTPProvider(args interface{}) (Provider, error) {
	cfg := &httpConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpProvider{
		imageEndpoint: cfg.ImageEndpoint,
		textEndpoint:  cfg.TextEndpoint,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

func (p *httpProvider) Name() string {
	return "http"
}

type predictBatchResponse struct {
	Results []Prediction `json:"results"`
}

func (p *httpProvider) PredictImages(ctx context.Context, images []model.DocImage) ([]Prediction, error) {
	if p.imageEndpoint == "" {
		return nil, ErrUnavailable
	}
	if len(images) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for i, img := range images {
		part, err := writer.CreateFormFile("images", fmt.Sprintf("image_%d.jpg", i))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.imageEndpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return p.do(req, len(images))
}

func (p *httpProvider) PredictTexts(ctx context.Context, texts []string) ([]Prediction, error) {
	if p.textEndpoint == "" {
		return nil, ErrUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]interface{}{"texts": texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.textEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req, len(texts))
}

func (p *httpProvider) do(req *http.Request, want int) ([]Prediction, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("moderation service returned %d: %s", resp.StatusCode, string(data))
	}

	var out predictBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode moderation response: %w", err)
	}
	if len(out.Results) != want {
		return nil, fmt.Errorf("moderation batch mismatch: sent %d, got %d", want, len(out.Results))
	}
	return out.Results, nil
}
