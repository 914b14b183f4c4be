package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zer0-A1/emineon-search/internal/middleware"
)

type RouterDeps struct {
	Search *SearchHandler
	Admin  *AdminHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	searchGroup := api.Group("")
	searchGroup.Use(middleware.RateLimit(100 * time.Millisecond))
	searchGroup.POST("/search", deps.Search.Search)

	api.POST("/reindex", deps.Admin.Reindex)
	api.POST("/reindex/all", deps.Admin.ReindexAll)
	api.POST("/provision", deps.Admin.Provision)
	api.GET("/capability", deps.Admin.Capability)
	api.POST("/capability/reset", deps.Admin.CapabilityReset)
	api.GET("/jobs", deps.Admin.Jobs)
}
