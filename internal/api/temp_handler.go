package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/platform/logger"
)

// TempFileHandler streams intermediate render files from the runtime
// directory. The route is public: file names are unguessable UUIDs.
type TempFileHandler struct {
	dir    string
	logger *slog.Logger
}

// NewTempFileHandler creates a new TempFileHandler serving dir.
func NewTempFileHandler(dir string, logger *slog.Logger) *TempFileHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TempFileHandler")
	}
	return &TempFileHandler{
		dir:    dir,
		logger: logger.With(slog.String("component", "temp_file_handler")),
	}
}

// Serve handles GET /api/video/temp/{filename}.
func (h *TempFileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		log.Warn("rejected temp file name", slog.String("filename", name))
		shared.RespondWithError(w, r, http.StatusNotFound, MsgFileNotFound)
		return
	}

	f, err := os.Open(filepath.Join(h.dir, name)) //nolint:gosec
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, MsgFileNotFound)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		shared.RespondWithError(w, r, http.StatusNotFound, MsgFileNotFound)
		return
	}

	contentType := "video/mp4"
	if strings.EqualFold(filepath.Ext(name), ".wav") {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, info.ModTime(), f)
}
