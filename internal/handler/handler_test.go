package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/readee-ai/docproc/internal/model"
	"github.com/readee-ai/docproc/internal/queue"
	"github.com/readee-ai/docproc/internal/spool"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	manager  *queue.Manager
	spoolDir string
}

func newTestEnv(t *testing.T, capacity int, maxUpload int64, apiKey string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := spool.New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	manager := queue.NewManager(capacity, nil, nil)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), RouterDeps{
		Documents: NewDocumentHandler(manager, nil, store, maxUpload),
		Jobs:      NewJobHandler(manager),
		APIKey:    apiKey,
	})
	return &testEnv{router: router, manager: manager, spoolDir: dir}
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func (e *testEnv) submit(t *testing.T, filename, content string, fields map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func spooledFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestSubmit_EnqueuesPendingJob(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	rec := env.submit(t, "report.pdf", "%PDF-1.7 body", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	info := env.manager.Info()
	require.Equal(t, 1, info.TotalJobs)
	require.Equal(t, 1, info.PendingJobs)
	require.Equal(t, 1, spooledFiles(t, env.spoolDir))

	jobs := env.manager.List(1)
	require.Len(t, jobs, 1)
	require.Equal(t, "report.pdf", jobs[0].Filename)
	require.Contains(t, rec.Body.String(), jobs[0].ID)
}

func TestSubmit_RejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	env.submit(t, "notes.txt", "plain text", nil, nil)
	require.Equal(t, 0, env.manager.Info().TotalJobs)
	require.Equal(t, 0, spooledFiles(t, env.spoolDir))
}

func TestSubmit_RejectsOversizedUpload(t *testing.T) {
	env := newTestEnv(t, 4, 8, "")

	env.submit(t, "big.pdf", "way more than eight bytes of content", nil, nil)
	require.Equal(t, 0, env.manager.Info().TotalJobs)
	require.Equal(t, 0, spooledFiles(t, env.spoolDir))
}

func TestSubmit_MissingFileField(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("speed=true"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, 0, env.manager.Info().TotalJobs)
}

func TestSubmit_FullQueueRemovesSpooledUpload(t *testing.T) {
	env := newTestEnv(t, 1, 0, "")

	env.submit(t, "a.pdf", "first", nil, nil)
	env.submit(t, "b.pdf", "second", nil, nil)

	require.Equal(t, 1, env.manager.Info().TotalJobs)
	require.Equal(t, 1, spooledFiles(t, env.spoolDir))
}

func TestSubmit_SpeedAndCallbackFields(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	env.submit(t, "a.pdf", "body", map[string]string{
		"speed":        "false",
		"callback_url": "http://consumer.local/hook",
	}, nil)

	jobs := env.manager.List(1)
	require.Len(t, jobs, 1)
	require.False(t, jobs[0].Speed)
	require.Equal(t, "http://consumer.local/hook", jobs[0].CallbackURL)
}

func TestSubmit_SpeedDefaultsToTrue(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	env.submit(t, "a.pdf", "body", nil, nil)
	jobs := env.manager.List(1)
	require.Len(t, jobs, 1)
	require.True(t, jobs[0].Speed)
}

func TestAPIKey_RequiredWhenConfigured(t *testing.T) {
	env := newTestEnv(t, 4, 0, "sekret")

	env.submit(t, "a.pdf", "body", nil, nil)
	require.Equal(t, 0, env.manager.Info().TotalJobs, "request without key must be rejected")

	env.submit(t, "a.pdf", "body", nil, map[string]string{"X-API-Key": "wrong"})
	require.Equal(t, 0, env.manager.Info().TotalJobs)

	env.submit(t, "a.pdf", "body", nil, map[string]string{"X-API-Key": "sekret"})
	require.Equal(t, 1, env.manager.Info().TotalJobs)
}

func TestJobStatus_ReflectsLifecycle(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	rec := env.getJSON(t, "/api/v1/jobs/no-such-id/status")
	require.Contains(t, rec.Body.String(), "job not found")

	env.submit(t, "a.pdf", "body", nil, nil)
	jobs := env.manager.List(1)
	require.Len(t, jobs, 1)

	rec = env.getJSON(t, "/api/v1/jobs/"+jobs[0].ID+"/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), jobs[0].ID)
	require.Contains(t, rec.Body.String(), string(model.JobPending))
}

func TestJobResult_NotFinished(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	env.submit(t, "a.pdf", "body", nil, nil)
	jobs := env.manager.List(1)
	require.Len(t, jobs, 1)

	rec := env.getJSON(t, "/api/v1/jobs/"+jobs[0].ID+"/result")
	require.Contains(t, rec.Body.String(), "job is still pending")
}

func TestJobResult_CompletedJobReturnsVerdict(t *testing.T) {
	dir := t.TempDir()
	store, err := spool.New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	manager := queue.NewManager(4, func(ctx context.Context, job *model.Job) (*model.PipelineVerdict, error) {
		return &model.PipelineVerdict{Status: model.VerdictPass, Violations: []model.Violation{}}, nil
	}, nil)
	manager.Start(context.Background())
	defer manager.Stop(context.Background())

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), RouterDeps{
		Documents: NewDocumentHandler(manager, nil, store, 0),
		Jobs:      NewJobHandler(manager),
	})
	env := &testEnv{router: router, manager: manager, spoolDir: dir}

	env.submit(t, "a.pdf", "body", nil, nil)
	jobs := manager.List(1)
	require.Len(t, jobs, 1)

	require.Eventually(t, func() bool {
		return manager.Info().CompletedJobs == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec := env.getJSON(t, "/api/v1/jobs/"+jobs[0].ID+"/result")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), string(model.VerdictPass))
}

func TestQueueEndpoint_ReportsCounts(t *testing.T) {
	env := newTestEnv(t, 4, 0, "")

	env.submit(t, "a.pdf", "body", nil, nil)
	rec := env.getJSON(t, "/api/v1/queue")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "total_jobs")
}

func (e *testEnv) getJSON(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
