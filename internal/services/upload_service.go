package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize is the largest accepted attachment, in bytes.
const MaxUploadSize = 5 << 20

// UploadURLPrefix is the public path stored files are served under.
const UploadURLPrefix = "/uploads/"

var (
	// ErrFileTooLarge is returned for uploads over MaxUploadSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidFileType is returned when the declared or sniffed type is not allowed.
	ErrInvalidFileType = errors.New("invalid file type")
)

// allowedTypes maps accepted MIME types to the extension files are stored with.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// StoredFile describes a saved upload.
type StoredFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// UploadServiceProvider defines the interface for upload services.
type UploadServiceProvider interface {
	Save(originalName, declaredType string, r io.Reader) (StoredFile, error)
}

// UploadService writes attachments to a local directory.
type UploadService struct {
	dir string
}

// NewUploadService creates a new UploadService storing files in dir.
func NewUploadService(dir string) (*UploadService, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadService{dir: dir}, nil
}

// Dir returns the directory files are stored in.
func (s *UploadService) Dir() string {
	return s.dir
}

// Save validates the declared and sniffed content type, then stores the
// content under a generated unique name.
func (s *UploadService) Save(originalName, declaredType string, r io.Reader) (StoredFile, error) {
	declared, _, err := mime.ParseMediaType(declaredType)
	if err != nil {
		return StoredFile{}, ErrInvalidFileType
	}
	if _, ok := allowedTypes[declared]; !ok {
		return StoredFile{}, ErrInvalidFileType
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return StoredFile{}, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return StoredFile{}, ErrInvalidFileType
	}

	sniffed := mimetype.Detect(head).String()
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	ext, ok := allowedTypes[sniffed]
	if !ok {
		return StoredFile{}, ErrInvalidFileType
	}

	fileName := uuid.New().String() + ext
	path := filepath.Join(s.dir, fileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), MaxUploadSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to write file: %w", err)
	}
	if written > MaxUploadSize {
		os.Remove(path)
		return StoredFile{}, ErrFileTooLarge
	}

	return StoredFile{URL: UploadURLPrefix + fileName, Name: filepath.Base(originalName)}, nil
}
