package covers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload rejection errors. Both wrap ErrUploadRejected.
var (
	ErrUploadRejected  = errors.New("upload rejected")
	ErrTooLarge        = fmt.Errorf("%w: file too large", ErrUploadRejected)
	ErrUnsupportedType = fmt.Errorf("%w: invalid file type. Only JPEG, PNG and GIF allowed", ErrUploadRejected)
	ErrInvalidName     = errors.New("invalid cover filename")
)

// allowedTypes maps accepted MIME types to the extension used when the
// uploaded name has no known image extension.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// knownExtensions are kept from the uploaded name; anything else is replaced
// by the extension of the detected type.
var knownExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// tmpPrefix marks partially written files.
const tmpPrefix = "cover_tmp_"

// Store keeps uploaded cover images in a single directory.
type Store struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewStore creates the directory if needed.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

// Dir returns the covers directory path.
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes returns the upload size limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save validates an uploaded file and stores it under a generated name,
// which is returned. Rejections wrap ErrUploadRejected.
func (s *Store) Save(header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	return s.save(header.Filename, src)
}

func (s *Store) save(originalName string, src io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect upload type: %w", err)
	}
	fallbackExt, ok := allowedTypes[mtype.String()]
	if !ok {
		return "", ErrUnsupportedType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := s.generateName(originalName, fallbackExt)

	tmpFile, err := os.CreateTemp(s.dir, tmpPrefix)
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	// One extra byte so that a body larger than the declared size is caught.
	written, err := io.Copy(tmpFile, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("write cover: %w", err)
	}
	if written > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("write cover: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store cover: %w", err)
	}
	return name, nil
}

// generateName builds "<unix millis>-<uuid><ext>". The extension comes from
// the uploaded name when it is a known image extension, otherwise from the
// detected type.
func (s *Store) generateName(originalName, fallbackExt string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !knownExtensions[ext] {
		ext = fallbackExt
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.New().String(), ext)
}

// Path resolves a stored cover name to its file path.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a stored cover. A missing file is not an error.
func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the names of every stored cover, skipping partial writes.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tmpPrefix) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}
