package api

import (
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

func SetupRouter(h *Handler, logger hclog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware())

	r.GET("/health", h.handleHealth)

	r.POST("/search", h.handleSearch)

	// Progress subscriptions
	r.GET("/progress", h.handleProgress)
	r.GET("/ws/progress", h.handleProgressWS)

	// Jobs
	r.POST("/download", h.handleDownload)
	r.GET("/download-file/:name", h.handleDownloadFile)
	r.POST("/convert-audio", UploadLimitMiddleware(h.cfg.MaxUploadSize), h.handleConvertAudio)
	r.POST("/jobs", h.handleSubmitJob)
	r.GET("/jobs", h.handleListJobs)
	r.GET("/jobs/:id", h.handleGetJob)

	return r
}
