package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readee-ai/docproc/internal/model"
	"github.com/readee-ai/docproc/internal/pkg/errcode"
	"github.com/readee-ai/docproc/internal/pkg/response"
	"github.com/readee-ai/docproc/internal/queue"
)

// JobHandler exposes job observability: per-job status and result, queue
// aggregates, and a debug listing.
type JobHandler struct {
	manager *queue.Manager
}

func NewJobHandler(manager *queue.Manager) *JobHandler {
	return &JobHandler{manager: manager}
}

func (h *JobHandler) Status(c *gin.Context) {
	job, ok := h.manager.GetStatus(c.Param("id"))
	if !ok {
		response.Error(c, errcode.ErrJobNotFound, "job not found")
		return
	}

	out := gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"filename":   job.Filename,
		"created_at": job.CreatedAt,
		"progress":   job.Progress,
	}
	if job.StartedAt != nil {
		out["started_at"] = job.StartedAt
		if job.Status == model.JobProcessing {
			out["elapsed_seconds"] = time.Since(*job.StartedAt).Seconds()
		}
	}
	if job.CompletedAt != nil {
		out["completed_at"] = job.CompletedAt
		if job.StartedAt != nil {
			out["processing_time_seconds"] = job.CompletedAt.Sub(*job.StartedAt).Seconds()
		}
	}
	if job.Status == model.JobCompleted && job.Result != nil {
		out["result"] = job.Result
	}
	if job.Status == model.JobFailed && job.Error != "" {
		out["error"] = job.Error
	}
	response.Success(c, out)
}

func (h *JobHandler) Result(c *gin.Context) {
	job, ok := h.manager.GetStatus(c.Param("id"))
	if !ok {
		response.Error(c, errcode.ErrJobNotFound, "job not found")
		return
	}
	switch job.Status {
	case model.JobCompleted:
		response.Success(c, job.Result)
	case model.JobFailed:
		response.Error(c, errcode.ErrPipelineFailed, job.Error)
	default:
		response.Error(c, errcode.ErrJobNotFinished, "job is still "+string(job.Status))
	}
}

func (h *JobHandler) Queue(c *gin.Context) {
	response.Success(c, h.manager.Info())
}

func (h *JobHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	response.Success(c, h.manager.List(limit))
}
