package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/model"
)

// Processor runs one job to completion and returns its verdict.
type Processor func(ctx context.Context, job *model.Job) (*model.PipelineVerdict, error)

// Manager is a single-worker FIFO job queue. Exactly one job is processing
// at any time; everything else waits in submission order in a buffered
// channel. Job records live in memory only and are read and mutated under
// the manager's lock.
type Manager struct {
	process  Processor
	notifier *Notifier

	mu      sync.Mutex
	jobs    map[string]*model.Job
	current string

	ch   chan *model.Job
	done chan struct{}
}

func NewManager(capacity int, process Processor, notifier *Notifier) *Manager {
	if capacity <= 0 {
		capacity = 128
	}
	return &Manager{
		process:  process,
		notifier: notifier,
		jobs:     make(map[string]*model.Job),
		ch:       make(chan *model.Job, capacity),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (m *Manager) Start(ctx context.Context) {
	go m.loop(ctx)
}

// Stop sends the shutdown sentinel and waits for the worker to drain the
// current job, or for the context to expire.
func (m *Manager) Stop(ctx context.Context) error {
	select {
	case m.ch <- nil:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit registers a job and enqueues it. It never blocks: a full queue is
// reported to the caller instead of stalling the upload request.
func (m *Manager) Submit(ctx context.Context, filePath, filename, callbackURL string, speed bool) (string, error) {
	job := &model.Job{
		ID:          uuid.NewString(),
		FilePath:    filePath,
		Filename:    filename,
		CallbackURL: callbackURL,
		Speed:       speed,
		Status:      model.JobPending,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	select {
	case m.ch <- job:
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return "", fmt.Errorf("queue is full")
	}

	logutil.GetLogger(ctx).Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("filename", filename),
		zap.Int("queue_size", len(m.ch)),
	)
	return job.ID, nil
}

func (m *Manager) loop(ctx context.Context) {
	logger := logutil.GetLogger(ctx)
	logger.Info("queue worker started")
	defer close(m.done)

	for job := range m.ch {
		if job == nil {
			logger.Info("queue worker received stop signal")
			return
		}
		m.run(ctx, job)
	}
}

func (m *Manager) run(ctx context.Context, job *model.Job) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job_id", job.ID),
		zap.String("filename", job.Filename),
	)

	started := time.Now()
	m.mu.Lock()
	m.current = job.ID
	job.Status = model.JobProcessing
	job.StartedAt = &started
	m.mu.Unlock()

	logger.Info("job processing started")
	result, err := m.process(ctx, job)

	completed := time.Now()
	m.mu.Lock()
	job.CompletedAt = &completed
	if err != nil {
		job.Status = model.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = model.JobCompleted
		job.Result = result
		job.Progress = 1.0
	}
	m.current = ""
	m.mu.Unlock()

	if err != nil {
		logger.Error("job failed", zap.Error(err))
	} else {
		logger.Info("job completed",
			zap.Duration("elapsed", completed.Sub(started)),
		)
	}

	if job.CallbackURL != "" && m.notifier != nil {
		go m.notifier.Notify(ctx, job.ID, job.CallbackURL, result, err)
	}
}

// GetStatus returns a snapshot of one job, or false if it is unknown.
func (m *Manager) GetStatus(id string) (model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return *job, true
}

// GetResult returns the verdict of a completed job. The bool reports whether
// the job exists; a nil verdict with empty error means it is still in flight.
func (m *Manager) GetResult(id string) (*model.PipelineVerdict, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, "", false
	}
	switch job.Status {
	case model.JobCompleted:
		return job.Result, "", true
	case model.JobFailed:
		return nil, job.Error, true
	}
	return nil, "", true
}

// Info aggregates queue counters for the info endpoint.
func (m *Manager) Info() model.QueueInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := model.QueueInfo{
		QueueSize:    len(m.ch),
		CurrentJobID: m.current,
		TotalJobs:    len(m.jobs),
	}
	for _, job := range m.jobs {
		switch job.Status {
		case model.JobPending:
			info.PendingJobs++
		case model.JobProcessing:
			info.ProcessingJobs++
		case model.JobCompleted:
			info.CompletedJobs++
		case model.JobFailed:
			info.FailedJobs++
		}
	}
	return info
}

// List returns up to limit job snapshots, newest first.
func (m *Manager) List(limit int) []model.Job {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CleanupOld drops terminal jobs older than maxAge and returns how many were
// removed. Pending and processing jobs are never touched.
func (m *Manager) CleanupOld(ctx context.Context, maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, job := range m.jobs {
		if !job.Status.Terminal() {
			continue
		}
		ref := job.CreatedAt
		if job.CompletedAt != nil {
			ref = *job.CompletedAt
		}
		if now.Sub(ref) > maxAge {
			delete(m.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("cleaned up old jobs", zap.Int("removed", removed))
	}
	return removed
}
