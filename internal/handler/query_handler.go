package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lcodeee/manualqa/internal/model"
	"github.com/lcodeee/manualqa/internal/pkg/response"
	"github.com/lcodeee/manualqa/internal/service"
)

type QueryHandler struct {
	query *service.QueryService
}

func NewQueryHandler(query *service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	Category string `json:"category_filter"`
	Limit    int    `json:"limit"`
}

// Ask answers a question grounded on the indexed manuals.
func (h *QueryHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "question is required")
		return
	}
	answer, err := h.query.Ask(c.Request.Context(), req.Question, req.Category, req.Limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

type searchRequest struct {
	Query    string `json:"query" binding:"required"`
	Category string `json:"category_filter"`
	Limit    int    `json:"limit"`
}

type searchResponse struct {
	Results []model.ScoredSegment `json:"results"`
	Count   int                   `json:"count"`
}

// Search returns raw ranked segments without answer generation.
func (h *QueryHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "query is required")
		return
	}
	results, err := h.query.Retrieve(c.Request.Context(), req.Query, req.Category, req.Limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if results == nil {
		results = []model.ScoredSegment{}
	}
	response.Success(c, searchResponse{Results: results, Count: len(results)})
}
