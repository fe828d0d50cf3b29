package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"furniture-erp/internal/service"

	"github.com/gin-gonic/gin"
)

const uploadField = "file"

// readUpload reads the multipart file field, bounded by the upload limit
func (h *Handler) readUpload(c *gin.Context) (service.Upload, bool) {
	if h.maxUpload > 0 {
		if c.Request.ContentLength > h.maxUpload {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "Invalid upload",
				"details": fmt.Sprintf("file exceeds %d bytes", h.maxUpload),
			})
			return service.Upload{}, false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"error":   "Invalid upload",
			"details": err.Error(),
		})
		return service.Upload{}, false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid upload",
			"details": err.Error(),
		})
		return service.Upload{}, false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid upload",
			"details": err.Error(),
		})
		return service.Upload{}, false
	}
	return service.Upload{Filename: fh.Filename, Content: content}, true
}

func (h *Handler) importTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="modelo_importacao.tsv"`)
	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", []byte(h.imports.Template()))
}

func (h *Handler) previewImport(c *gin.Context) {
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	preview, err := h.imports.Preview(c.Request.Context(), upload)
	if err != nil {
		h.respondError(c, "Failed to read import file", err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) executeImport(c *gin.Context) {
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.imports.Execute(c.Request.Context(), upload)
	if err != nil {
		h.respondError(c, fmt.Sprintf("Failed to import %s", upload.Filename), err)
		return
	}
	c.JSON(http.StatusOK, result)
}
