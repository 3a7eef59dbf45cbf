package http

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// CoversController serves cover thumbnails.
type CoversController struct {
	files  CoverFiles
	thumbs ThumbnailProvider
}

// NewCoversController creates a new CoversController.
func NewCoversController(files CoverFiles, thumbs ThumbnailProvider) *CoversController {
	return &CoversController{
		files:  files,
		thumbs: thumbs,
	}
}

// GetThumbnail serves the thumbnail of a stored cover. When a thumbnail
// cannot be generated the original image is served instead.
// GET /thumbs/:filename
func (cc *CoversController) GetThumbnail(c *gin.Context) {
	name := c.Param("filename")

	original, err := cc.files.Path(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	if _, err := os.Stat(original); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if cc.thumbs != nil {
		thumb, err := cc.thumbs.Thumbnail(name)
		if err == nil {
			c.File(thumb)
			return
		}
		log.Printf("Thumbnail for %s unavailable, serving original: %v", name, err)
	}

	c.File(original)
}
