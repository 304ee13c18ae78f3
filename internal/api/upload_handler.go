package api

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/service"
)

// Multipart limits for POST /api/upload.
const (
	MaxUploadBytes       = 512 << 20
	multipartMemoryBytes = 32 << 20
)

// UploadHandler accepts user media.
type UploadHandler struct {
	uploads service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads service.UploadService, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UploadHandler")
	}
	return &UploadHandler{
		uploads: uploads,
		logger:  logger.With(slog.String("component", "upload_handler")),
	}
}

// Presign handles POST /api/upload/presigned.
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if _, ok := requireUser(w, r, log); !ok {
		return
	}

	var req PresignRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	upload, err := h.uploads.Presign(r.Context(), req.Filename, req.FileType)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to prepare upload")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PresignResponse{
		URL:    upload.URL,
		Method: upload.Method,
		Fields: upload.Fields,
		Path:   upload.Path,
	})
}

// Upload handles POST /api/upload with a multipart "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if _, ok := requireUser(w, r, log); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		log.Warn("invalid multipart upload", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file: required field")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	stored, err := h.uploads.Upload(r.Context(), filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to store upload")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{Path: stored.Path, Filename: stored.Filename})
}
