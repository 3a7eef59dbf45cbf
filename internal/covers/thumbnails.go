package covers

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ThumbnailCache lazily generates downscaled copies of stored covers for the
// book list.
type ThumbnailCache struct {
	store *Store
	dir   string
	width int
}

// NewThumbnailCache creates a thumbnail cache at the specified directory.
func NewThumbnailCache(store *Store, dir string, width int) (*ThumbnailCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create thumbnails dir: %w", err)
	}
	if width <= 0 {
		return nil, fmt.Errorf("thumbnail width must be positive, got %d", width)
	}
	return &ThumbnailCache{store: store, dir: dir, width: width}, nil
}

// Thumbnail returns the path of the thumbnail for a stored cover, generating
// it on first use. Covers already narrower than the configured width are
// returned as is.
func (t *ThumbnailCache) Thumbnail(name string) (string, error) {
	srcPath, err := t.store.Path(name)
	if err != nil {
		return "", err
	}

	cachePath := filepath.Join(t.dir, name)
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	img, err := imaging.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("decode cover %s: %w", name, err)
	}
	if img.Bounds().Dx() <= t.width {
		return srcPath, nil
	}

	if err := t.writeThumbnail(img, name, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

func (t *ThumbnailCache) writeThumbnail(img image.Image, name, cachePath string) error {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return fmt.Errorf("thumbnail format for %s: %w", name, err)
	}

	thumb := imaging.Resize(img, t.width, 0, imaging.Lanczos)

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(t.dir, tmpPrefix)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if err := imaging.Encode(tmpFile, thumb, format); err != nil {
		return fmt.Errorf("encode thumbnail %s: %w", name, err)
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, cachePath)
}

// Invalidate removes the cached thumbnail for a cover.
func (t *ThumbnailCache) Invalidate(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(t.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir returns the cache directory path.
func (t *ThumbnailCache) Dir() string {
	return t.dir
}
