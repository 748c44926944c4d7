package handlers

import (
	"context"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/feed"
	"github.com/promptreel/gateway/internal/models"
	"github.com/promptreel/gateway/internal/poller"
)

// FeedBuilder assembles ranked feed pages for the browser.
type FeedBuilder interface {
	BuildPage(ctx context.Context, cursor string, limit int) (feed.Page, error)
}

// VideoClient captures the backend video operations the handlers call
// directly rather than through the signing proxy.
type VideoClient interface {
	Video(ctx context.Context, id string) (models.Video, error)
	CreateVideo(ctx context.Context, req backend.CreateVideoRequest) (models.Video, error)
	Like(ctx context.Context, id string) error
	Dislike(ctx context.Context, id string) error
	View(ctx context.Context, id string) error
	Recreate(ctx context.Context, id string) (models.Video, error)
}

// ProfileClient fetches creator profiles for score computation.
type ProfileClient interface {
	User(ctx context.Context, id string) (models.UserProfile, error)
}

// GenerationTracker owns polling sessions for in-flight generations.
type GenerationTracker interface {
	Track(videoID string) bool
	Get(videoID string) (poller.GenerationState, bool)
	Cancel(videoID string) bool
}

// SessionManager issues and rotates gateway session tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// IdentityVerifier checks a provider-issued token against the backend
// before the gateway issues its own session.
type IdentityVerifier interface {
	Verify(ctx context.Context, userID, providerToken string) error
}

// SharePublisher uploads share cards and returns their public URL.
type SharePublisher interface {
	Put(ctx context.Context, key, contentType string, content []byte) (string, error)
}
