package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lcodeee/manualqa/internal/pkg/response"
	"github.com/lcodeee/manualqa/internal/service"
)

type DocumentHandler struct {
	ingest *service.IngestService
}

func NewDocumentHandler(ingest *service.IngestService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest}
}

type addDocumentRequest struct {
	Content  string `json:"content" binding:"required"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

type addDocumentResponse struct {
	SegmentID int64 `json:"segment_id"`
}

// Add stores one free-text document as a single searchable segment.
func (h *DocumentHandler) Add(c *gin.Context) {
	var req addDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "content is required")
		return
	}
	id, err := h.ingest.AddDocument(c.Request.Context(), req.Content, req.Title, req.Category, req.Type)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, addDocumentResponse{SegmentID: id})
}
