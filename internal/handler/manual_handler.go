package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lcodeee/manualqa/internal/model"
	"github.com/lcodeee/manualqa/internal/pkg/response"
	"github.com/lcodeee/manualqa/internal/repo"
	"github.com/lcodeee/manualqa/internal/service"
)

type ManualHandler struct {
	ingest        *service.IngestService
	segments      *repo.SegmentRepo
	maxUploadSize int64
}

func NewManualHandler(ingest *service.IngestService, segments *repo.SegmentRepo, maxUploadSize int64) *ManualHandler {
	return &ManualHandler{ingest: ingest, segments: segments, maxUploadSize: maxUploadSize}
}

// Upload accepts one manual as multipart form data and runs the full
// ingestion pipeline. A response with embedded_chunks < chunk_count means
// some chunks are stored but not yet searchable.
func (h *ManualHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "file is required")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit")
		return
	}
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = file.Filename
	}
	category := strings.TrimSpace(c.PostForm("category"))

	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "failed to read file")
		return
	}

	result, err := h.ingest.IngestManual(c.Request.Context(), title, category, file.Filename, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type manualListResponse struct {
	Segments []model.Segment `json:"segments"`
	Count    int             `json:"count"`
}

func (h *ManualHandler) ListByCategory(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		response.Error(c, http.StatusBadRequest, "invalid", "category is required")
		return
	}
	limit := parseIntDefault(c.Query("limit"), 20)
	offset := parseIntDefault(c.Query("offset"), 0)
	segments, err := h.segments.ListByCategory(c.Request.Context(), category, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, manualListResponse{Segments: segments, Count: len(segments)})
}

func (h *ManualHandler) ListByDateRange(c *gin.Context) {
	start, err := parseDay(c.Query("start"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "start must be YYYY-MM-DD")
		return
	}
	end, err := parseDay(c.Query("end"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "end must be YYYY-MM-DD")
		return
	}
	// end is inclusive, advance to the next day boundary
	end += int64(24 * time.Hour / time.Second)
	limit := parseIntDefault(c.Query("limit"), 20)
	segments, err := h.segments.ListByDateRange(c.Request.Context(), start, end, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, manualListResponse{Segments: segments, Count: len(segments)})
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}

func parseDay(raw string) (int64, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
