package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/pixabay"
	"github.com/miyog/miyog-engine/internal/service"
)

// DefaultAssetQuery is searched when the client sends no query.
const DefaultAssetQuery = "backgrounds"

// AIHandler serves the on-demand generation tools of the editor.
type AIHandler struct {
	ai     service.AIService
	logger *slog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(ai service.AIService, logger *slog.Logger) *AIHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AIHandler")
	}
	return &AIHandler{
		ai:     ai,
		logger: logger.With(slog.String("component", "ai_handler")),
	}
}

// GenerateScript handles POST /api/ai/generate_script.
func (h *AIHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if _, ok := requireUser(w, r, log); !ok {
		return
	}

	var req GenerateScriptRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	script, err := h.ai.GenerateScript(r.Context(), req.Topic, req.Duration)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate script")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ScriptResponse{Script: script.Text, Hook: script.Hook})
}

// GenerateImage handles POST /api/ai/generate_image. It costs one credit.
func (h *AIHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req PromptRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	img, err := h.ai.GenerateImage(r.Context(), userID, req.Prompt)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientCredits) {
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, MsgImageCredits, err,
				shared.WithElevatedLogLevel())
			return
		}
		HandleAPIError(w, r, err, "Failed to generate image")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ImageResponse{URL: img.URL, RemainingCredits: img.RemainingCredits})
}

// GenerateVideo handles POST /api/ai/generate_video.
func (h *AIHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req PromptRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	media, err := h.ai.GenerateVideo(r.Context(), userID, req.Prompt, req.AspectRatio)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate video")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MediaResponse{URL: media.URL})
}

// GenerateVoice handles POST /api/ai/generate_voice.
func (h *AIHandler) GenerateVoice(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if _, ok := requireUser(w, r, log); !ok {
		return
	}

	var req GenerateVoiceRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	media, err := h.ai.GenerateVoice(r.Context(), req.Text, req.PromptURL)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate voice")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MediaResponse{Path: media.Key, URL: media.URL})
}

// ListVoices handles GET /api/audio/voices.
func (h *AIHandler) ListVoices(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.ai.Voices())
}

// SearchAssets handles GET /api/assets/search?q=&page=.
func (h *AIHandler) SearchAssets(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		query = DefaultAssetQuery
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	assets, err := h.ai.SearchAssets(r.Context(), query, page)
	if err != nil {
		HandleAPIError(w, r, err, "Asset search failed")
		return
	}
	if assets == nil {
		assets = []pixabay.Asset{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, assets)
}
