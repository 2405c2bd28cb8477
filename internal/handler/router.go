package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/readee-ai/docproc/internal/middleware"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Jobs      *JobHandler
	APIKey    string
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(deps.APIKey))

	authed.POST("/documents", deps.Documents.Submit)
	authed.POST("/process-document", deps.Documents.ProcessSync)

	authed.GET("/jobs/:id/status", deps.Jobs.Status)
	authed.GET("/jobs/:id/result", deps.Jobs.Result)
	authed.GET("/jobs", deps.Jobs.List)
	authed.GET("/queue", deps.Jobs.Queue)
}
