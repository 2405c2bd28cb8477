package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Engine is the external OCR capability. Implementations must return a real
// error on failure, never silently empty text, so the merge policy can fall
// back to direct extraction per page.
type Engine interface {
	// Document runs OCR over the whole file.
	Document(ctx context.Context, path string) (string, error)
	// Page runs OCR over a single 1-indexed page.
	Page(ctx context.Context, path string, page int) (string, error)
}

type httpEngine struct {
	endpoint string
	client   *http.Client
}

// NewHTTPEngine talks to a remote OCR service. The service accepts a
// multipart upload with an optional page field and responds with
// {"text": "..."}.
func NewHTTPEngine(endpoint string, timeout time.Duration) Engine {
	return &httpEngine{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type ocrResponse struct {
	Text string `json:"text"`
}

func (e *httpEngine) Document(ctx context.Context, path string) (string, error) {
	return e.request(ctx, path, 0)
}

func (e *httpEngine) Page(ctx context.Context, path string, page int) (string, error) {
	return e.request(ctx, path, page)
}

func (e *httpEngine) request(ctx context.Context, path string, page int) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if page > 0 {
		if err := writer.WriteField("page", strconv.Itoa(page)); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, string(data))
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return out.Text, nil
}
