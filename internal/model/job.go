package model

import "time"

// JobStatus is the lifecycle state of a document job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is a queued document-processing request. It lives in process memory
// only and is owned by the queue: all mutation happens on the worker side
// under the queue's lock.
type Job struct {
	ID          string           `json:"job_id"`
	FilePath    string           `json:"-"`
	Filename    string           `json:"filename"`
	CallbackURL string           `json:"callback_url,omitempty"`
	Speed       bool             `json:"-"`
	Status      JobStatus        `json:"status"`
	Progress    float64          `json:"progress"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Result      *PipelineVerdict `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// QueueInfo is an aggregate snapshot of the queue for the info endpoint.
type QueueInfo struct {
	QueueSize      int    `json:"queue_size"`
	CurrentJobID   string `json:"current_job_id,omitempty"`
	TotalJobs      int    `json:"total_jobs"`
	PendingJobs    int    `json:"pending_jobs"`
	ProcessingJobs int    `json:"processing_jobs"`
	CompletedJobs  int    `json:"completed_jobs"`
	FailedJobs     int    `json:"failed_jobs"`
}
