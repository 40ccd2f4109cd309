package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lcodeee/manualqa/internal/middleware"
)

type RouterDeps struct {
	Manuals     *ManualHandler
	Documents   *DocumentHandler
	Query       *QueryHandler
	Files       *FileHandler
	JWTSecret   []byte
	AskInterval time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	askGroup := api.Group("")
	if deps.AskInterval > 0 {
		askGroup.Use(middleware.RateLimit(deps.AskInterval))
	}
	askGroup.POST("/ask", deps.Query.Ask)
	askGroup.POST("/search", deps.Query.Search)

	api.GET("/files/:key", deps.Files.Get)

	adminGroup := api.Group("")
	adminGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	adminGroup.POST("/manuals", deps.Manuals.Upload)
	adminGroup.POST("/documents", deps.Documents.Add)
	adminGroup.GET("/manuals/by-category", deps.Manuals.ListByCategory)
	adminGroup.GET("/manuals/by-date", deps.Manuals.ListByDateRange)
}
