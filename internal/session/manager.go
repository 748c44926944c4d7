package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/promptreel/gateway/internal/models"
)

var (
	// ErrSessionNotFound indicates the refresh token does not map to an
	// active gateway session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Session is one issued refresh token. Identity comes from the external
// auth provider; the gateway only tracks which user a token belongs to.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Store persists refresh tokens so sessions survive process restarts.
type Store interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

// Manager issues and rotates gateway session tokens backed by a Store.
// It replaces the old module-level token cache: every client binds its
// own token explicitly, so nothing is shared across requests.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration

	store   Store
	nowFunc func() time.Time
}

// NewManager constructs a Manager with the provided token TTLs.
func NewManager(accessTTL, refreshTTL time.Duration, store Store) *Manager {
	if store == nil {
		panic("session: store must not be nil")
	}
	return &Manager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new access/refresh token pair for the user.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.nowFunc()
	accessToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	if err := m.store.Save(ctx, Session{
		RefreshToken: refreshToken,
		UserID:       userID,
		ExpiresAt:    tokens.RefreshExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Refresh rotates a refresh token: the old token is invalidated and a
// fresh pair is issued for the same user.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if m.nowFunc().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, session.UserID)
}

// Revoke removes the refresh token from the active session store.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	_ = m.store.Delete(ctx, refreshToken)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
