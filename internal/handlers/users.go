package handlers

import (
	"net/http"
	"time"

	"github.com/promptreel/gateway/internal/logging"
	"github.com/promptreel/gateway/internal/ranking"
)

// UserHandler exposes creator-facing read endpoints.
type UserHandler struct {
	Profiles ProfileClient
	NowFunc  func() time.Time
}

// Score handles GET /api/v1/creators/{id}/score. The score is computed
// here rather than proxied so the weighting stays consistent with the
// feed ranking.
func (h UserHandler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	profile, err := h.Profiles.User(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Warn("creator profile fetch failed", "creatorId", id, "error", err)
		respondBackendError(ctx, w, err)
		return
	}

	now := time.Now()
	if h.NowFunc != nil {
		now = h.NowFunc()
	}

	score := ranking.CreatorScoreAt(profile.LastActiveAt, profile.VideosCreated, profile.TotalLikes, profile.TotalDislikes, now)
	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"creatorId": profile.ID,
		"score":     score,
	})
}
