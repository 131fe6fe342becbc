package analyses

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/shared/util"
)

const defaultMaxUploadBytes = 25 << 20

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc            *Service
	UploadDir      string
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. Uploads are staged in uploadDir while analyzed.
func NewHandler(svc *Service, uploadDir string, maxUploadBytes int64) *Handler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, UploadDir: uploadDir, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.analyze)
	rg.GET("/analyses/:id", h.get)
	rg.GET("/analyses/:id/tasks", h.tasks)
}

type recordResponse struct {
	UploadID     string    `json:"upload_id"`
	FileHash     string    `json:"file_hash"`
	ChunksCount  int       `json:"source_document_chunks_count"`
	FailedChunks int       `json:"failed_chunks_count"`
	TasksCount   int       `json:"tasks_count"`
	Timestamp    time.Time `json:"timestamp"`
}

type tasksResponse struct {
	UploadID string `json:"upload_id"`
	Tasks    []Task `json:"tasks"`
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeValidation, "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", nil)
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeValidation, "file exceeds upload limit", nil)
		return
	}
	if !util.HasPDFExtension(fileHeader.Filename) {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "only PDF files are accepted", nil)
		return
	}
	name, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid file name", nil)
		return
	}

	staged, err := h.stage(c, fileHeader, name)
	if err != nil {
		telemetry.Error("upload staging failed", telemetry.WithContext(c.Request.Context(), map[string]any{"error": err}))
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to store upload", nil)
		return
	}
	defer func() {
		if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			telemetry.Warn("staged upload not removed", map[string]any{"path": staged, "error": err})
		}
	}()

	res, err := h.Svc.AnalyzeDocument(c.Request.Context(), staged)
	if err != nil {
		var extractErr *ExtractionError
		if errors.As(err, &extractErr) {
			respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeExtraction, "could not read text from document", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "analysis failed", nil)
		return
	}

	c.Set("uploadId", res.UploadID)
	c.Set("deduplicationHit", res.DeduplicationHit)
	if res.DeduplicationHit {
		respond.OK(c, res)
		return
	}
	respond.Created(c, res)
}

func (h *Handler) stage(c *gin.Context, fileHeader *multipart.FileHeader, name string) (string, error) {
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(h.UploadDir, uuid.NewString()+"-"+name)
	if err := c.SaveUploadedFile(fileHeader, path); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("uploadId", id)

	rec, err := h.Svc.GetRecord(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch analysis", nil)
		return
	}

	respond.OK(c, recordResponse{
		UploadID:     rec.UploadID,
		FileHash:     rec.FileHash,
		ChunksCount:  rec.SourceDocumentChunksCount,
		FailedChunks: rec.FailedChunksCount,
		TasksCount:   len(rec.AnalyzedTasks),
		Timestamp:    rec.Timestamp,
	})
}

func (h *Handler) tasks(c *gin.Context) {
	id := c.Param("id")
	c.Set("uploadId", id)

	tasks, err := h.Svc.GetTasks(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch tasks", nil)
		return
	}
	respond.OK(c, tasksResponse{UploadID: id, Tasks: tasks})
}
