package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadBytes = 8 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// upload stores a product image under a random name and returns its URL.
func (h *handlers) upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "image is required")
		return
	}
	if file.Size > maxUploadBytes {
		abortWithMessage(c, http.StatusRequestEntityTooLarge, "image exceeds 8MB")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		abortWithMessage(c, http.StatusBadRequest, "unsupported image type "+ext)
		return
	}

	if err := os.MkdirAll(h.deps.UploadDir, 0o755); err != nil {
		h.respondError(c, err)
		return
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.deps.UploadDir, name)); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Printf("http: uploaded image name=%s size=%d", name, file.Size)
	c.JSON(http.StatusCreated, gin.H{"image": path.Join("/uploads", name)})
}
