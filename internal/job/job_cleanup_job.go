package job

import (
	"context"
	"time"

	"github.com/readee-ai/docproc/internal/queue"
)

// JobCleanupJob sweeps terminal queue entries past the retention window so
// the in-memory job table cannot grow without bound.
type JobCleanupJob struct {
	manager *queue.Manager
	maxAge  time.Duration
}

func NewJobCleanupJob(manager *queue.Manager, maxAge time.Duration) *JobCleanupJob {
	return &JobCleanupJob{manager: manager, maxAge: maxAge}
}

func (j *JobCleanupJob) Name() string {
	return "job_cleanup"
}

func (j *JobCleanupJob) Run(ctx context.Context) error {
	if j.manager == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	j.manager.CleanupOld(ctx, maxAge)
	return nil
}
