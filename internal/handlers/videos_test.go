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

type stubSharePublisher struct {
	keys     []string
	contents [][]byte
	url      string
	err      error
}

func (s *stubSharePublisher) Put(_ context.Context, key, _ string, content []byte) (string, error) {
	s.keys = append(s.keys, key)
	s.contents = append(s.contents, content)
	return s.url, s.err
}

func reactRequest(id, action string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/"+id+"/"+action, nil)
	req.SetPathValue("id", id)
	req.SetPathValue("action", action)
	return req
}

func TestVideoReactions(t *testing.T) {
	client := &stubVideoClient{}
	handler := VideoHandler{Videos: client}

	for _, action := range []string{"like", "dislike", "view"} {
		rec := httptest.NewRecorder()
		handler.React(rec, reactRequest("v1", action))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("action %s: expected status 204 got %d", action, rec.Code)
		}
	}

	if len(client.reactions) != 3 {
		t.Fatalf("expected 3 reactions, got %v", client.reactions)
	}
}

func TestVideoReactUnknownAction(t *testing.T) {
	client := &stubVideoClient{}
	handler := VideoHandler{Videos: client}

	rec := httptest.NewRecorder()
	handler.React(rec, reactRequest("v1", "boost"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
	if len(client.reactions) != 0 {
		t.Fatalf("no backend call expected, got %v", client.reactions)
	}
}

func TestVideoReactUnauthorized(t *testing.T) {
	client := &stubVideoClient{actionErr: backend.ErrUnauthorized}
	handler := VideoHandler{Videos: client}

	rec := httptest.NewRecorder()
	handler.React(rec, reactRequest("v1", "like"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
}

func TestVideoShare(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &stubVideoClient{video: models.Video{
		ID:        "v9",
		CreatorID: "u1",
		Prompt:    "sunset timelapse",
		VideoURL:  "https://cdn.example.com/v9.mp4",
		Status:    models.StatusCompleted,
	}}
	shares := &stubSharePublisher{url: "https://share.example.com/shares/card.json"}
	handler := VideoHandler{Videos: client, Shares: shares, NowFunc: func() time.Time { return now }}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/v9/share", nil)
	req.SetPathValue("id", "v9")
	rec := httptest.NewRecorder()

	handler.Share(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(shares.keys) != 1 {
		t.Fatalf("expected one upload, got %d", len(shares.keys))
	}

	var card shareCard
	if err := json.Unmarshal(shares.contents[0], &card); err != nil {
		t.Fatalf("decode uploaded card: %v", err)
	}
	if card.VideoID != "v9" || card.Prompt != "sunset timelapse" || !card.SharedAt.Equal(now) {
		t.Fatalf("unexpected card %+v", card)
	}
	if shares.keys[0] != "shares/"+card.ShareID+".json" {
		t.Fatalf("unexpected key %q for share %q", shares.keys[0], card.ShareID)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["shareUrl"] != shares.url || resp["shareId"] != card.ShareID {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestVideoShareRequiresCompletedVideo(t *testing.T) {
	client := &stubVideoClient{video: models.Video{ID: "v9", Status: models.StatusProcessing}}
	shares := &stubSharePublisher{}
	handler := VideoHandler{Videos: client, Shares: shares}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/v9/share", nil)
	req.SetPathValue("id", "v9")
	rec := httptest.NewRecorder()

	handler.Share(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 got %d", rec.Code)
	}
	if len(shares.keys) != 0 {
		t.Fatalf("no upload expected, got %v", shares.keys)
	}
}

func TestVideoShareUnconfigured(t *testing.T) {
	handler := VideoHandler{Videos: &stubVideoClient{}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/v9/share", nil)
	req.SetPathValue("id", "v9")
	rec := httptest.NewRecorder()

	handler.Share(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 got %d", rec.Code)
	}
}
