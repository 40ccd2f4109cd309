package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/lcodeee/manualqa/internal/pkg/errors"
	"github.com/lcodeee/manualqa/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("stage", appErr.StageOf(err)),
		zap.Error(err),
	)
	status, code, message := http.StatusInternalServerError, "internal", "internal error"
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "unauthorized", "unauthorized"
	case errors.Is(err, appErr.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, appErr.ErrInvalid):
		status, code, message = http.StatusBadRequest, "invalid", "invalid request"
	case errors.Is(err, appErr.ErrNoContent):
		status, code, message = http.StatusBadRequest, "empty_document", "no extractable content"
	case errors.Is(err, appErr.ErrProvider):
		status, code, message = http.StatusBadGateway, "provider_error", "upstream provider failed"
	}
	if stage := appErr.StageOf(err); stage != "" {
		response.StageError(c, status, code, message, stage)
		return
	}
	response.Error(c, status, code, message)
}
