package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/model"
)

const webhookTimeout = 30 * time.Second

// Notifier delivers job-completion webhooks. Delivery is strictly
// best-effort: one attempt, failures logged and never retried, so a broken
// consumer endpoint cannot stall the worker.
type Notifier struct {
	client *http.Client
	secret string
}

// NewNotifier builds a notifier. When secret is non-empty every delivery
// carries a short-lived HS256 bearer token so consumers can authenticate the
// callback.
func NewNotifier(secret string) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: webhookTimeout},
		secret: secret,
	}
}

type webhookPayload struct {
	JobID  string                 `json:"job_id"`
	Status model.JobStatus        `json:"status"`
	Result *model.PipelineVerdict `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func (n *Notifier) Notify(ctx context.Context, jobID, callbackURL string, result *model.PipelineVerdict, jobErr error) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job_id", jobID),
		zap.String("callback_url", callbackURL),
	)

	payload := webhookPayload{JobID: jobID}
	if jobErr != nil {
		payload.Status = model.JobFailed
		payload.Error = jobErr.Error()
	} else {
		payload.Status = model.JobCompleted
		payload.Result = result
	}

	if err := n.deliver(ctx, callbackURL, payload); err != nil {
		logger.Error("webhook delivery failed", zap.Error(err))
		return
	}
	logger.Info("webhook delivered")
}

func (n *Notifier) deliver(ctx context.Context, callbackURL string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		token, err := n.signToken(payload.JobID)
		if err != nil {
			return fmt.Errorf("sign webhook token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

func (n *Notifier) signToken(jobID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": jobID,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(n.secret))
}
