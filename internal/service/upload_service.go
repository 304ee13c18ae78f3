package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/s3"
	"github.com/miyog/miyog-engine/internal/redact"
)

// StoredUpload is a file accepted into the uploads prefix.
type StoredUpload struct {
	Path     string
	Filename string
}

// UploadService places user media in object storage.
type UploadService interface {
	// Presign lets the browser upload directly to storage.
	Presign(ctx context.Context, filename, fileType string) (*s3.PresignedUpload, error)

	// Upload streams body into storage through the API.
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (*StoredUpload, error)
}

type uploadServiceImpl struct {
	storage s3.Storage
	logger  *slog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(storage s3.Storage, logger *slog.Logger) UploadService {
	return &uploadServiceImpl{
		storage: storage,
		logger:  logger.With("component", "upload_service"),
	}
}

// uploadContentType prefers the declared type and falls back to the
// filename extension.
func uploadContentType(filename, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if ct := mime.TypeByExtension(path.Ext(filename)); ct != "" {
		return ct
	}
	return s3.ContentTypeFor(filename)
}

func (s *uploadServiceImpl) Presign(ctx context.Context, filename, fileType string) (*s3.PresignedUpload, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	key := s3.UploadKey(filename)
	upload, err := s.storage.PresignUpload(ctx, key, uploadContentType(filename, fileType))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to presign upload",
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("upload", "presign", err)
	}
	return upload, nil
}

func (s *uploadServiceImpl) Upload(
	ctx context.Context,
	filename, contentType string,
	body io.Reader,
) (*StoredUpload, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	key, err := s.storage.Upload(ctx, s3.UploadKey(filename), body, uploadContentType(filename, contentType))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to store upload",
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("upload", "upload", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("upload stored", slog.String("key", key))
	return &StoredUpload{Path: key, Filename: filename}, nil
}
