package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondBackendError translates the backend client's error taxonomy
// into a gateway HTTP response. Auth failures surface as 401 so the UI
// can trigger a re-login; rate limits keep their Retry-After hint;
// other upstream statuses pass through.
func respondBackendError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "session expired, please sign in again"})

	case backend.IsRateLimited(err):
		var rl *backend.RateLimitError
		_ = errors.As(err, &rl)
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
		}
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})

	case errors.Is(err, backend.ErrUnavailable):
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "backend unreachable"})

	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			message := apiErr.Message
			if message == "" {
				message = http.StatusText(apiErr.StatusCode)
			}
			respondJSON(ctx, w, apiErr.StatusCode, map[string]string{"error": message})
			return
		}
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
