package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/media"
)

// ImageHandler serves original files and thumbnails from the library.
type ImageHandler struct {
	library *config.LibraryConfig
}

// NewImageHandler creates a new image handler.
// Parameters:
//   - library: library configuration (root and thumbnail paths).
// Returns:
//   - *ImageHandler: initialized handler.
func NewImageHandler(library *config.LibraryConfig) *ImageHandler {
	return &ImageHandler{library: library}
}

// cleanRelPath validates a wildcard path parameter. Rejects anything
// that escapes the library root or reaches into the state directory.
func cleanRelPath(raw string) (string, bool) {
	rel := strings.TrimPrefix(raw, "/")
	if rel == "" {
		return "", false
	}
	clean := filepath.ToSlash(filepath.Clean(rel))
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(clean) {
		return "", false
	}
	if strings.HasPrefix(clean, config.StateDirName) {
		return "", false
	}
	return clean, true
}

// Original handles GET /api/v1/images/original/*path.
func (h *ImageHandler) Original(c *gin.Context) {
	rel, ok := cleanRelPath(c.Param("path"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	}

	abs := filepath.Join(h.library.Root, filepath.FromSlash(rel))
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.File(abs)
}

// Thumbnail handles GET /api/v1/images/thumbnail/*path. A missing
// thumbnail is generated from the original on first request.
func (h *ImageHandler) Thumbnail(c *gin.Context) {
	rel, ok := cleanRelPath(c.Param("path"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	}

	thumb := filepath.Join(h.library.ThumbnailsDir(), filepath.FromSlash(rel))
	if _, err := os.Stat(thumb); err == nil {
		c.File(thumb)
		return
	}

	original := filepath.Join(h.library.Root, filepath.FromSlash(rel))
	data, err := os.ReadFile(original)
	if os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read original: " + err.Error()})
		return
	}

	img, err := media.Decode(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cannot decode image"})
		return
	}
	if err := media.SaveThumbnail(img, thumb, h.library.ThumbnailMaxSize); err != nil {
		logger.FromContext(c.Request.Context()).
			WithField(logger.FieldPath, rel).
			WithError(err).Warn("Failed to write thumbnail")
		// Serve the original rather than failing the request.
		c.File(original)
		return
	}
	c.File(thumb)
}
