package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/logging"
)

// GenerationHandler submits prompts to the backend and tracks their
// progress through the polling tracker.
type GenerationHandler struct {
	Videos  VideoClient
	Tracker GenerationTracker
	Limiter RateLimiter
}

type createGenerationRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Model       string `json:"model,omitempty"`
}

// Create handles POST /api/v1/generations: it submits the prompt and
// starts a polling session for the new video.
func (h GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil || h.Tracker == nil {
		logger.Error("generation dependencies unavailable", "hasVideos", h.Videos != nil, "hasTracker", h.Tracker != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "generation service unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "generate") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many generation requests"})
		return
	}

	var req createGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid generation payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	video, err := h.Videos.CreateVideo(ctx, backend.CreateVideoRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Model:       req.Model,
	})
	if err != nil {
		logger.Error("video creation failed", "error", err)
		respondBackendError(ctx, w, err)
		return
	}

	h.Tracker.Track(video.ID)
	logger.Info("generation started", "videoId", video.ID)

	state, _ := h.Tracker.Get(video.ID)
	respondJSON(ctx, w, http.StatusAccepted, map[string]any{
		"video":      video,
		"generation": state,
	})
}

// Get handles GET /api/v1/generations/{id}.
func (h GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tracker == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "generation service unavailable"})
		return
	}

	state, ok := h.Tracker.Get(r.PathValue("id"))
	if !ok {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "generation not tracked"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, state)
}

// Cancel handles DELETE /api/v1/generations/{id}.
func (h GenerationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tracker == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "generation service unavailable"})
		return
	}

	id := r.PathValue("id")
	if !h.Tracker.Cancel(id) {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no active generation to cancel"})
		return
	}

	logging.FromContext(ctx).Info("generation canceled", "videoId", id)
	w.WriteHeader(http.StatusNoContent)
}
