package documents

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/extract"
	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/util"
)

const defaultMaxUploadBytes = 25 << 20

// Handler serves text previews of uploaded PDFs without analyzing them.
type Handler struct {
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/text", h.text)
}

type textResponse struct {
	FileName   string `json:"file_name"`
	Pages      int    `json:"pages"`
	Characters int    `json:"characters"`
	Text       string `json:"text"`
}

func (h *Handler) text(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if !util.HasPDFExtension(fileHeader.Filename) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only PDF files are accepted", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	pages, err := extract.ExtractPages(c.Request.Context(), data)
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_error", "could not read text from document", err.Error())
		return
	}

	text := extract.PlainText(pages)
	respond.OK(c, textResponse{
		FileName:   fileHeader.Filename,
		Pages:      len(pages),
		Characters: len([]rune(text)),
		Text:       text,
	})
}
