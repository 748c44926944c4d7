package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promptreel/gateway/internal/logging"
	"github.com/promptreel/gateway/internal/models"
)

// VideoHandler relays video reactions to the backend and publishes
// share cards for completed videos.
type VideoHandler struct {
	Videos  VideoClient
	Shares  SharePublisher
	Limiter RateLimiter
	NowFunc func() time.Time
}

// Get handles GET /api/v1/videos/{id}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.Video(ctx, r.PathValue("id"))
	if err != nil {
		respondBackendError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, video)
}

// React handles POST /api/v1/videos/{id}/{action} where action is one
// of like, dislike, or view.
func (h VideoHandler) React(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	action := r.PathValue("action")

	if !allowRequest(h.Limiter, r, "react") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var err error
	switch action {
	case "like":
		err = h.Videos.Like(ctx, id)
	case "dislike":
		err = h.Videos.Dislike(ctx, id)
	case "view":
		err = h.Videos.View(ctx, id)
	default:
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "unknown video action"})
		return
	}

	if err != nil {
		logging.FromContext(ctx).Warn("video reaction failed", "videoId", id, "action", action, "error", err)
		respondBackendError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Recreate handles POST /api/v1/videos/{id}/recreate.
func (h VideoHandler) Recreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "recreate") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	video, err := h.Videos.Recreate(ctx, r.PathValue("id"))
	if err != nil {
		respondBackendError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusAccepted, video)
}

type shareCard struct {
	ShareID      string    `json:"shareId"`
	VideoID      string    `json:"videoId"`
	Prompt       string    `json:"prompt"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatorID    string    `json:"creatorId,omitempty"`
	SharedAt     time.Time `json:"sharedAt"`
}

// Share handles POST /api/v1/videos/{id}/share. It snapshots the video
// into a share card and uploads it to the object store so share links
// keep working even if the video is later edited or removed.
func (h VideoHandler) Share(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	id := r.PathValue("id")

	if h.Shares == nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "sharing is not configured"})
		return
	}

	if !allowRequest(h.Limiter, r, "share") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	video, err := h.Videos.Video(ctx, id)
	if err != nil {
		respondBackendError(ctx, w, err)
		return
	}
	if video.Status != models.StatusCompleted {
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "video is not ready to share"})
		return
	}

	card := shareCard{
		ShareID:      uuid.NewString(),
		VideoID:      video.ID,
		Prompt:       video.Prompt,
		VideoURL:     video.VideoURL,
		ThumbnailURL: video.ThumbnailURL,
		CreatorID:    video.CreatorID,
		SharedAt:     h.now().UTC(),
	}

	body, err := json.Marshal(card)
	if err != nil {
		logger.Error("encode share card", "videoId", id, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	key := fmt.Sprintf("shares/%s.json", card.ShareID)
	url, err := h.Shares.Put(ctx, key, "application/json", body)
	if err != nil {
		logger.Error("publish share card", "videoId", id, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "share upload failed"})
		return
	}

	logger.Info("share card published", "videoId", id, "shareId", card.ShareID)
	respondJSON(ctx, w, http.StatusCreated, map[string]string{
		"shareId":  card.ShareID,
		"shareUrl": url,
	})
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}
