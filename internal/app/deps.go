package app

import (
	"context"
	"net/http"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/config"
	"github.com/promptreel/gateway/internal/db"
	"github.com/promptreel/gateway/internal/feed"
	"github.com/promptreel/gateway/internal/handlers"
	"github.com/promptreel/gateway/internal/middleware"
	"github.com/promptreel/gateway/internal/poller"
	"github.com/promptreel/gateway/internal/proxy"
	"github.com/promptreel/gateway/internal/repositories"
	"github.com/promptreel/gateway/internal/session"
	"github.com/promptreel/gateway/internal/storage"
)

const maxFeedPageSize = 50

// buildDependencies wires together concrete implementations used by the
// HTTP handlers. The returned cleanup stops background pollers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	httpClient := &http.Client{Timeout: cfg.BackendTimeout}

	client := backend.New(cfg.BackendBaseURL, backend.WithHTTPClient(httpClient))

	tracker := poller.NewTracker(client, poller.Config{
		Interval: cfg.PollInterval,
		Timeout:  cfg.PollTimeout,
	})

	sessionStore := repositories.NewPostgresSessionStore(pool)

	forwarder := proxy.New(proxy.Config{
		BackendBaseURL:  cfg.BackendBaseURL,
		Prefix:          cfg.ProxyPrefix,
		Secret:          cfg.SigningSecret,
		SignatureHeader: cfg.SignatureHeader,
		TimestampHeader: cfg.TimestampHeader,
	}, httpClient)

	var shares handlers.SharePublisher
	if cfg.ObjectStore.Bucket != "" {
		store, err := storage.NewShareStore(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		shares = store
	}

	limiter := middleware.NewIPRateLimiter(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		cfg.RateLimitBurst,
		10*cfg.RateLimitWindow,
	)

	deps := handlers.Dependencies{
		Feed:     feed.NewBuilder(client, cfg.FeedAdInterval),
		Videos:   client,
		Profiles: client,
		Tracker:  tracker,
		Sessions: session.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore),
		Identity: backend.NewVerifier(cfg.BackendBaseURL, httpClient),
		Shares:   shares,
		Proxy:    forwarder,
		Limiter:  limiter,

		ProxyPrefix:     cfg.ProxyPrefix,
		DefaultPageSize: cfg.FeedPageSize,
		MaxPageSize:     maxFeedPageSize,
	}

	cleanup := func(context.Context) error {
		tracker.Shutdown()
		return nil
	}

	return deps, cleanup, nil
}
