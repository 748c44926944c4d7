package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/models"
)

type stubProfileClient struct {
	profile models.UserProfile
	err     error
}

func (s *stubProfileClient) User(context.Context, string) (models.UserProfile, error) {
	return s.profile, s.err
}

func TestUserScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	active := now.Add(-time.Hour)
	client := &stubProfileClient{profile: models.UserProfile{
		ID:            "u1",
		VideosCreated: 50,
		TotalLikes:    1000,
		TotalDislikes: 100,
		LastActiveAt:  &active,
	}}
	handler := UserHandler{Profiles: client, NowFunc: func() time.Time { return now }}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/creators/u1/score", nil)
	req.SetPathValue("id", "u1")
	rec := httptest.NewRecorder()

	handler.Score(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp struct {
		CreatorID string  `json:"creatorId"`
		Score     float64 `json:"score"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CreatorID != "u1" {
		t.Fatalf("unexpected creator %q", resp.CreatorID)
	}
	// A creator at every reference cap with only an hour of inactivity
	// sits just shy of the maximum.
	if resp.Score < 99.0 || resp.Score > 100.0 {
		t.Fatalf("score = %v, want near 100", resp.Score)
	}
}

func TestUserScoreBackendError(t *testing.T) {
	handler := UserHandler{Profiles: &stubProfileClient{err: &backend.APIError{StatusCode: http.StatusNotFound, Message: "no such user"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/creators/missing/score", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	handler.Score(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
}
