package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/delivery/http/middleware"
	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/usecase"
)

// JobHandler serves the batch job routes of both pipelines. The pipeline is
// taken from the :kind path segment.
type JobHandler struct {
	submitUC   *usecase.SubmitJobUsecase
	listUC     *usecase.ListJobsUsecase
	statusUC   *usecase.GetStatusUsecase
	downloadUC *usecase.DownloadArtifactUsecase
	deleteUC   *usecase.DeleteJobUsecase
	uploadDir  string
	logger     *zap.Logger
}

// NewJobHandler creates a new JobHandler. Uploads are stored under uploadDir.
func NewJobHandler(
	submitUC *usecase.SubmitJobUsecase,
	listUC *usecase.ListJobsUsecase,
	statusUC *usecase.GetStatusUsecase,
	downloadUC *usecase.DownloadArtifactUsecase,
	deleteUC *usecase.DeleteJobUsecase,
	uploadDir string,
	logger *zap.Logger,
) *JobHandler {
	return &JobHandler{
		submitUC:   submitUC,
		listUC:     listUC,
		statusUC:   statusUC,
		downloadUC: downloadUC,
		deleteUC:   deleteUC,
		uploadDir:  uploadDir,
		logger:     logger,
	}
}

// Upload handles POST /api/v1/:kind/upload
func (h *JobHandler) Upload(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "A spreadsheet must be uploaded in the 'file' field"})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("Failed to create upload dir", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	dst := filepath.Join(h.uploadDir, fmt.Sprintf("%s-%s", id, sanitizeFileName(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		if middleware.IsBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
			return
		}
		h.logger.Error("Failed to store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	resp, err := h.submitUC.Execute(c.Request.Context(), &domain.SubmitRequest{
		Kind:       kind,
		OwnerID:    middleware.Owner(c),
		FileName:   file.Filename,
		SourcePath: dst,
	})
	if err != nil {
		// A job that failed to enqueue keeps its source file until it is deleted.
		if !errors.Is(err, domain.ErrPublishFailed) {
			os.Remove(dst)
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// List handles GET /api/v1/:kind/jobs
func (h *JobHandler) List(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	jobs, err := h.listUC.Execute(c.Request.Context(), middleware.Owner(c), kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// Status handles GET /api/v1/:kind/status/:id
func (h *JobHandler) Status(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	view, err := h.statusUC.Execute(c.Request.Context(), middleware.Owner(c), kind, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Download handles GET /api/v1/:kind/download/:id
func (h *JobHandler) Download(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	art, err := h.downloadUC.Execute(c.Request.Context(), middleware.Owner(c), kind, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", art.ContentType)
	c.FileAttachment(art.Path, art.FileName)
}

// Delete handles DELETE /api/v1/:kind/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	deleted, err := h.deleteUC.Execute(c.Request.Context(), middleware.Owner(c), kind, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *JobHandler) kind(c *gin.Context) (domain.JobKind, bool) {
	kind, err := domain.ParseJobKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown pipeline"})
		return "", false
	}
	return kind, true
}

func (h *JobHandler) kindAndID(c *gin.Context) (domain.JobKind, int64, bool) {
	kind, ok := h.kind(c)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return "", 0, false
	}
	return kind, id, true
}

func (h *JobHandler) respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, gin.H{"error": msg})
}

// sanitizeFileName keeps the base name of an upload and replaces anything
// outside a conservative character set.
func sanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if clean == "" || clean == "." || clean == ".." {
		return "upload.xlsx"
	}
	return clean
}
