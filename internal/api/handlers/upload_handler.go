package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/rs/zerolog/log"
)

// uploadFormField is the multipart field carrying the file.
const uploadFormField = "file"

// multipartOverhead leaves room for multipart boundaries and headers.
const multipartOverhead = 64 << 10

// UploadHandler handles attachment uploads.
type UploadHandler struct {
	service services.UploadServiceProvider
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service services.UploadServiceProvider) *UploadHandler {
	return &UploadHandler{service: service}
}

// Upload stores a single multipart file and returns its public URL.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(w, http.StatusBadRequest, "File too large")
			return
		}
		respond.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > services.MaxUploadSize {
		respond.Error(w, http.StatusBadRequest, "File too large")
		return
	}

	stored, err := h.service.Save(header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		respond.Error(w, http.StatusBadRequest, "File too large")
	case errors.Is(err, services.ErrInvalidFileType):
		respond.Error(w, http.StatusBadRequest, "Invalid file type")
	case err != nil:
		log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to store upload")
		respond.Error(w, http.StatusInternalServerError, "Upload failed")
	default:
		log.Info().Str("filename", header.Filename).Str("url", stored.URL).Msg("File uploaded")
		respond.JSON(w, http.StatusOK, stored)
	}
}
