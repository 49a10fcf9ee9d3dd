package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"smart-audio/internal/api/errors"
	"smart-audio/internal/api/middleware"
	"smart-audio/internal/api/v1/services"
	"smart-audio/internal/app/util/files"
)

// ArchiveName is the download name of the zipped exports
const ArchiveName = "converted.zip"

// DownloadHandler serves job artifacts
type DownloadHandler struct {
	service    services.DownloadService
	uploadRoot string
}

// NewDownloadHandler creates a new download handler. uploadRoot is served
// read-only under /uploads.
func NewDownloadHandler(service services.DownloadService, uploadRoot string) *DownloadHandler {
	return &DownloadHandler{service: service, uploadRoot: uploadRoot}
}

// Original handles GET /download/:id
//
// @Summary Download the original asset
// @Tags downloads
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Success 200 {file} file
// @Failure 404 {object} errors.APIError "Job or asset not found"
// @Router /download/{id} [get]
func (h *DownloadHandler) Original(c *gin.Context) {
	d, err := h.service.Original(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	serve(c, d)
}

// Export handles GET /download/:id/:filename
//
// @Summary Download a converted export
// @Description filename is one of sid.csv, sd.csv, lid.csv, asr.trn, nmt.txt, segments.xlsx or converted.zip
// @Tags downloads
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Param filename path string true "Export name"
// @Success 200 {file} file
// @Failure 404 {object} errors.APIError "Job or export not found"
// @Router /download/{id}/{filename} [get]
func (h *DownloadHandler) Export(c *gin.Context) {
	id, filename := c.Param("id"), c.Param("filename")
	if filename == ArchiveName {
		h.archive(c, id)
		return
	}

	d, err := h.service.Export(c.Request.Context(), id, filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	serve(c, d)
}

func (h *DownloadHandler) archive(c *gin.Context, id string) {
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"-"+ArchiveName))

	// Nothing is written before the service has checked the job, so errors
	// can still become a JSON response.
	w := &lazyWriter{c: c}
	if err := h.service.WriteArchive(c.Request.Context(), id, w); err != nil {
		if !w.started {
			c.Header("Content-Disposition", "")
			middleware.HandleError(c, err)
			return
		}
		_ = c.Error(err)
	}
}

// Publish handles POST /files/:id/publish
//
// @Summary Publish converted exports to object storage
// @Tags downloads
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} dto.PublishResponse
// @Failure 404 {object} errors.APIError "Job or exports not found"
// @Failure 503 {object} errors.APIError "Object storage not configured"
// @Router /files/{id}/publish [post]
func (h *DownloadHandler) Publish(c *gin.Context) {
	response, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Uploads handles GET /uploads/*path, serving files under the upload root
//
// @Summary Static access to the upload root
// @Tags downloads
// @Produce octet-stream
// @Param path path string true "Path below the upload root"
// @Success 200 {file} file
// @Failure 404 {object} errors.APIError "File not found"
// @Router /uploads/{path} [get]
func (h *DownloadHandler) Uploads(c *gin.Context) {
	resolved, err := files.SafeJoin(h.uploadRoot, c.Param("path"))
	if err != nil || !files.Exists(resolved) || isDir(resolved) {
		middleware.HandleError(c, errors.NewNotFoundError("file"))
		return
	}
	c.File(resolved)
}

func serve(c *gin.Context, d *services.Download) {
	c.Header("Content-Type", d.ContentType)
	c.FileAttachment(d.Path, filepath.Base(d.Name))
}

// lazyWriter records whether any byte reached the response
type lazyWriter struct {
	c       *gin.Context
	started bool
}

func (w *lazyWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Status(http.StatusOK)
	}
	return w.c.Writer.Write(p)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
