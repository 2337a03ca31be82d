package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/toonface/internal/storage"
)

// FilesHandler serves stored blobs so their public URLs resolve.
type FilesHandler struct {
	blobs *storage.MinIOStore
}

func NewFilesHandler(blobs *storage.MinIOStore) *FilesHandler {
	return &FilesHandler{blobs: blobs}
}

func (h *FilesHandler) Get(c *gin.Context) {
	category := c.Param("category")
	filename := c.Param("filename")

	if !storage.ValidCategory(category) {
		respondError(c, http.StatusNotFound, "Unknown upload category")
		return
	}
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		respondError(c, http.StatusBadRequest, "Invalid filename")
		return
	}

	data, err := h.blobs.Read(c.Request.Context(), storage.Category(category), filename)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			respondError(c, http.StatusNotFound, "File not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
