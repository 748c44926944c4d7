package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Feed     FeedBuilder
	Videos   VideoClient
	Profiles ProfileClient
	Tracker  GenerationTracker
	Sessions SessionManager
	Identity IdentityVerifier
	Shares   SharePublisher
	Proxy    http.Handler
	Limiter  RateLimiter

	ProxyPrefix     string
	DefaultPageSize int
	MaxPageSize     int
	NowFunc         func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	feed := FeedHandler{Feed: deps.Feed, DefaultPageSize: deps.DefaultPageSize, MaxPageSize: deps.MaxPageSize}
	generations := GenerationHandler{Videos: deps.Videos, Tracker: deps.Tracker, Limiter: deps.Limiter}
	videos := VideoHandler{Videos: deps.Videos, Shares: deps.Shares, Limiter: deps.Limiter, NowFunc: deps.NowFunc}
	users := UserHandler{Profiles: deps.Profiles, NowFunc: deps.NowFunc}
	sessions := SessionHandler{Sessions: deps.Sessions, Identity: deps.Identity, Limiter: deps.Limiter}

	mux.HandleFunc("/healthz", health.Handle)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/feed", feed.Get)

	mux.HandleFunc("POST /api/v1/generations", generations.Create)
	mux.HandleFunc("GET /api/v1/generations/{id}", generations.Get)
	mux.HandleFunc("DELETE /api/v1/generations/{id}", generations.Cancel)

	mux.HandleFunc("GET /api/v1/videos/{id}", videos.Get)
	mux.HandleFunc("POST /api/v1/videos/{id}/recreate", videos.Recreate)
	mux.HandleFunc("POST /api/v1/videos/{id}/share", videos.Share)
	mux.HandleFunc("POST /api/v1/videos/{id}/{action}", videos.React)

	mux.HandleFunc("GET /api/v1/creators/{id}/score", users.Score)

	mux.HandleFunc("POST /api/v1/session", sessions.Exchange)
	mux.HandleFunc("POST /api/v1/session/refresh", sessions.Refresh)
	mux.HandleFunc("DELETE /api/v1/session", sessions.Revoke)

	if deps.Proxy != nil && deps.ProxyPrefix != "" {
		mux.Handle(deps.ProxyPrefix+"/", deps.Proxy)
	}
}
