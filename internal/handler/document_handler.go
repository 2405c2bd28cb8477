package handler

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/pipeline"
	"github.com/readee-ai/docproc/internal/pkg/errcode"
	"github.com/readee-ai/docproc/internal/pkg/response"
	"github.com/readee-ai/docproc/internal/queue"
	"github.com/readee-ai/docproc/internal/spool"
)

// DocumentHandler accepts document uploads, either queued (Submit) or
// processed inline (ProcessSync). Both paths validate and spool the upload
// before any heavy work.
type DocumentHandler struct {
	manager        *queue.Manager
	orch           *pipeline.Orchestrator
	store          spool.Store
	maxUploadBytes int64
}

func NewDocumentHandler(manager *queue.Manager, orch *pipeline.Orchestrator, store spool.Store, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		manager:        manager,
		orch:           orch,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// Submit enqueues a document job and returns immediately with its id.
func (h *DocumentHandler) Submit(c *gin.Context) {
	key, filename, ok := h.spoolUpload(c)
	if !ok {
		return
	}

	callbackURL := c.PostForm("callback_url")
	speed := parseSpeed(c)

	jobID, err := h.manager.Submit(c.Request.Context(), key, filename, callbackURL, speed)
	if err != nil {
		if rerr := h.store.Remove(c.Request.Context(), key); rerr != nil {
			logutil.GetLogger(c.Request.Context()).Warn("remove spooled upload failed", zap.Error(rerr))
		}
		response.Error(c, errcode.ErrQueueFull, "queue is full, try again later")
		return
	}
	response.Success(c, gin.H{"job_id": jobID, "status": "pending"})
}

// ProcessSync runs the pipeline inline and returns the verdict. It bypasses
// the queue but not the GPU gate.
func (h *DocumentHandler) ProcessSync(c *gin.Context) {
	key, filename, ok := h.spoolUpload(c)
	if !ok {
		return
	}

	verdict, err := h.orch.Process(c.Request.Context(), key, filename, parseSpeed(c))
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("document processing failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		response.Error(c, errcode.ErrPipelineFailed, "document processing failed: "+err.Error())
		return
	}
	response.Success(c, verdict)
}

// spoolUpload validates the multipart upload and writes it to the spool
// store. On failure the error response has already been sent.
func (h *DocumentHandler) spoolUpload(c *gin.Context) (key, filename string, ok bool) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return "", "", false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" && ext != ".docx" {
		response.Error(c, errcode.ErrUnsupportedFormat, "file must be PDF or DOCX format")
		return "", "", false
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, errcode.ErrFileTooLarge, "file exceeds upload size limit")
		return "", "", false
	}

	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return "", "", false
	}
	defer opened.Close()

	key, err = h.store.Save(c.Request.Context(), file.Filename, opened, file.Size)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("spool upload failed", zap.Error(err))
		response.Error(c, errcode.ErrInternal, "failed to store upload")
		return "", "", false
	}
	return key, file.Filename, true
}

func parseSpeed(c *gin.Context) bool {
	speed, err := strconv.ParseBool(c.DefaultPostForm("speed", "true"))
	if err != nil {
		return true
	}
	return speed
}
