package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smart-audio/internal/api/errors"
	"smart-audio/internal/api/middleware"
	"smart-audio/internal/api/v1/dto"
	"smart-audio/internal/api/v1/services"
)

// FileHandler handles upload intake and job record endpoints
type FileHandler struct {
	service services.FileService
}

// NewFileHandler creates a new file handler
func NewFileHandler(service services.FileService) *FileHandler {
	return &FileHandler{service: service}
}

// Upload handles POST /files/upload-file
//
// @Summary Upload an audio asset
// @Description Stores the asset in a new job folder and creates its record with status UPLOADED
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio or video file"
// @Param name formData string false "Display name"
// @Success 201 {object} dto.FileResponse "Record created"
// @Failure 400 {object} errors.APIError "Bad upload"
// @Failure 422 {object} errors.APIError "Validation error"
// @Failure 500 {object} errors.APIError "Internal server error"
// @Router /files/upload-file [post]
func (h *FileHandler) Upload(c *gin.Context) {
	var req dto.UploadRequest
	if err := middleware.ValidateForm(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		apiErr := errors.NewBadRequestError("No file uploaded")
		apiErr.Code = "BadUpload"
		middleware.HandleError(c, apiErr)
		return
	}
	defer file.Close()

	response, err := h.service.Upload(c.Request.Context(), req, header.Filename, file)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// List handles GET /files
//
// @Summary List job records
// @Tags files
// @Produce json
// @Param status query string false "Filter by status"
// @Param offset query int false "Offset" default(0) minimum(0)
// @Param limit query int false "Page size" default(100) minimum(1) maximum(500)
// @Success 200 {object} dto.ListFilesResponse
// @Failure 400 {object} errors.APIError "Invalid query parameters"
// @Failure 500 {object} errors.APIError "Internal server error"
// @Header 200 {string} X-Total-Count "Total number of matching records"
// @Router /files [get]
func (h *FileHandler) List(c *gin.Context) {
	var query dto.ListFilesQuery
	if err := middleware.ValidateQuery(c, &query); err != nil {
		middleware.HandleError(c, err)
		return
	}

	response, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.Itoa(response.Total))
	c.JSON(http.StatusOK, response)
}

// Get handles GET /files/:id
//
// @Summary Get a job record
// @Tags files
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} dto.FileResponse
// @Failure 404 {object} errors.APIError "Job not found"
// @Router /files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	response, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Delete handles DELETE /files/:id
//
// @Summary Delete a job
// @Description Removes the record and the job folder. Refused while a stage runs.
// @Tags files
// @Param id path string true "Job ID"
// @Success 204 "Job deleted"
// @Failure 404 {object} errors.APIError "Job not found"
// @Failure 409 {object} errors.APIError "A stage is running"
// @Router /files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
