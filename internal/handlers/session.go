package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/promptreel/gateway/internal/logging"
	"github.com/promptreel/gateway/internal/session"
)

// SessionHandler exchanges provider credentials for gateway sessions
// and rotates refresh tokens.
type SessionHandler struct {
	Sessions SessionManager
	Identity IdentityVerifier
	Limiter  RateLimiter
}

type exchangeRequest struct {
	UserID        string `json:"userId"`
	ProviderToken string `json:"providerToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Exchange handles POST /api/v1/session.
func (h SessionHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "session") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.ProviderToken) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId and providerToken are required"})
		return
	}

	if err := h.Identity.Verify(ctx, req.UserID, req.ProviderToken); err != nil {
		logger.Warn("identity verification failed", "userId", req.UserID, "error", err)
		respondBackendError(ctx, w, err)
		return
	}

	tokens, err := h.Sessions.Issue(ctx, req.UserID)
	if err != nil {
		logger.Error("session issue failed", "userId", req.UserID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "could not create session"})
		return
	}

	logger.Info("session issued", "userId", req.UserID)
	respondJSON(ctx, w, http.StatusCreated, tokens)
}

// Refresh handles POST /api/v1/session/refresh.
func (h SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "session") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refreshToken is required"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrRefreshTokenExpired):
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired refresh token"})
		default:
			logging.FromContext(ctx).Error("session refresh failed", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "could not refresh session"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, tokens)
}

// Revoke handles DELETE /api/v1/session.
func (h SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refreshToken is required"})
		return
	}

	h.Sessions.Revoke(ctx, req.RefreshToken)
	w.WriteHeader(http.StatusNoContent)
}
