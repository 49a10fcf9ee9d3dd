package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-audio/internal/api/middleware"
	"smart-audio/internal/api/v1/services"
)

// ResultHandler serves assembled result documents
type ResultHandler struct {
	service services.ResultService
}

// NewResultHandler creates a new result handler
func NewResultHandler(service services.ResultService) *ResultHandler {
	return &ResultHandler{service: service}
}

// Get handles GET /files/result/:id
//
// @Summary Get the result document of a job
// @Description Returns the translation when present, otherwise the transcription
// @Tags results
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} dto.ResultResponse
// @Failure 404 {object} errors.APIError "Job or result not found"
// @Failure 500 {object} errors.APIError "Malformed result document"
// @Router /files/result/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	response, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
