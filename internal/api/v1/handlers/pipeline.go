package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-audio/internal/api/middleware"
	"smart-audio/internal/api/v1/services"
	"smart-audio/internal/app/model"
)

// PipelineHandler handles stage dispatch endpoints
type PipelineHandler struct {
	service services.PipelineService
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(service services.PipelineService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

// Dispatch returns the handler for PUT /files/<stage>/:id
//
// @Summary Run a pipeline stage
// @Description Marks the job as running the stage and returns at once. Poll GET /files/{id} for the outcome.
// @Tags pipeline
// @Produce json
// @Param stage path string true "Stage" Enums(speaker-diarization,speaker-identification,speech-recognition,neural-translation,format-conversion)
// @Param id path string true "Job ID"
// @Success 200 {object} dto.FileResponse "In-progress record"
// @Failure 404 {object} errors.APIError "Job not found"
// @Failure 409 {object} errors.APIError "A stage is already running"
// @Failure 422 {object} errors.APIError "Upstream artifact missing"
// @Failure 503 {object} errors.APIError "Worker queue full"
// @Router /files/{stage}/{id} [put]
func (h *PipelineHandler) Dispatch(stage model.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		response, err := h.service.Dispatch(c.Request.Context(), c.Param("id"), stage)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

// Process handles PUT /files/process/:id
//
// @Summary Run the whole pipeline
// @Description Queues every stage as one background task. Poll GET /files/{id} for the outcome.
// @Tags pipeline
// @Produce json
// @Param id path string true "Job ID"
// @Success 202 {object} dto.FileResponse "In-progress record"
// @Failure 404 {object} errors.APIError "Job not found"
// @Failure 409 {object} errors.APIError "A stage is already running"
// @Failure 422 {object} errors.APIError "Original asset missing"
// @Failure 503 {object} errors.APIError "Worker queue full"
// @Router /files/process/{id} [put]
func (h *PipelineHandler) Process(c *gin.Context) {
	response, err := h.service.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response)
}

// Cancel handles DELETE /files/process/:id
//
// @Summary Cancel the running stage
// @Tags pipeline
// @Param id path string true "Job ID"
// @Success 202 "Cancellation requested"
// @Failure 404 {object} errors.APIError "No stage running"
// @Router /files/process/{id} [delete]
func (h *PipelineHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
