package handlers

import (
	"net/http"
	"strconv"

	"github.com/promptreel/gateway/internal/logging"
)

// FeedHandler serves the composed, ranked feed.
type FeedHandler struct {
	Feed            FeedBuilder
	DefaultPageSize int
	MaxPageSize     int
}

// Get handles GET /api/v1/feed requests.
func (h FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Feed == nil {
		logger.Error("feed builder unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "feed unavailable"})
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limit := h.pageSize(r.URL.Query().Get("limit"))

	page, err := h.Feed.BuildPage(ctx, cursor, limit)
	if err != nil {
		logger.Error("feed build failed", "error", err, "cursor", cursor)
		respondBackendError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, page)
}

func (h FeedHandler) pageSize(raw string) int {
	size := h.DefaultPageSize
	if size <= 0 {
		size = 20
	}
	max := h.MaxPageSize
	if max <= 0 {
		max = 50
	}

	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			size = parsed
		}
	}
	if size > max {
		size = max
	}
	return size
}
