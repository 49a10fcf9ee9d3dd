package routes

import (
	"github.com/gin-gonic/gin"

	"smart-audio/internal/api/v1/handlers"
	"smart-audio/internal/api/v1/services"
	"smart-audio/internal/app/model"
)

// RegisterRoutes registers the file, pipeline, result and download routes
func RegisterRoutes(router gin.IRouter, container *ServiceContainer) {
	fileHandler := handlers.NewFileHandler(container.FileService)
	pipelineHandler := handlers.NewPipelineHandler(container.PipelineService)
	resultHandler := handlers.NewResultHandler(container.ResultService)
	downloadHandler := handlers.NewDownloadHandler(container.DownloadService, container.UploadRoot)

	files := router.Group("/files")
	{
		files.POST("/upload-file", fileHandler.Upload)
		files.GET("", fileHandler.List)
		files.GET("/:id", fileHandler.Get)
		files.DELETE("/:id", fileHandler.Delete)

		for _, stage := range model.PipelineOrder {
			files.PUT("/"+string(stage)+"/:id", pipelineHandler.Dispatch(stage))
		}
		files.PUT("/process/:id", pipelineHandler.Process)
		files.DELETE("/process/:id", pipelineHandler.Cancel)

		files.GET("/result/:id", resultHandler.Get)
		files.POST("/:id/publish", downloadHandler.Publish)
	}

	download := router.Group("/download")
	{
		download.GET("/:id", downloadHandler.Original)
		download.GET("/:id/:filename", downloadHandler.Export)
	}

	router.GET("/uploads/*path", downloadHandler.Uploads)
}

// ServiceContainer holds all services needed by handlers
type ServiceContainer struct {
	FileService     services.FileService
	PipelineService services.PipelineService
	ResultService   services.ResultService
	DownloadService services.DownloadService
	// UploadRoot is the folder served under /uploads
	UploadRoot string
}
