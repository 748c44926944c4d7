package poller

import (
	"context"
	"errors"
	"time"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/logging"
	"github.com/promptreel/gateway/internal/metrics"
	"github.com/promptreel/gateway/internal/models"
)

var (
	// ErrTimeout indicates the generation did not reach a terminal
	// status within the polling budget.
	ErrTimeout = errors.New("poller: generation timed out")
	// ErrGenerationFailed indicates the backend reported a failed
	// generation. Result.FailureReason carries the backend's reason.
	ErrGenerationFailed = errors.New("poller: generation failed")
)

// StatusClient is the slice of the backend client the poller needs.
type StatusClient interface {
	SyncStatus(ctx context.Context, id string) (backend.StatusUpdate, error)
	Video(ctx context.Context, id string) (models.Video, error)
}

// Config bounds one polling session.
type Config struct {
	// Interval between status checks. Defaults to 5s.
	Interval time.Duration
	// Timeout is the wall-clock budget from the first poll. Defaults to 10m.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	return c
}

// Result is the single terminal outcome of watching one video.
type Result struct {
	VideoID       string
	Status        models.VideoStatus
	VideoURL      string
	ThumbnailURL  string
	FailureReason string
	// Err is non-nil when polling ended without a completed video:
	// ErrTimeout, ErrGenerationFailed, backend.ErrUnauthorized, a
	// *backend.RateLimitError, or a context error.
	Err error
}

// Watch polls the video's generation status until it reaches a terminal
// state, the budget expires, or ctx is canceled. It sends exactly one
// Result and closes the channel; requests never overlap because the
// loop is sequential.
func Watch(ctx context.Context, client StatusClient, videoID string, cfg Config) <-chan Result {
	cfg = cfg.withDefaults()
	out := make(chan Result, 1)

	go func() {
		defer close(out)
		out <- poll(ctx, client, videoID, cfg)
	}()

	return out
}

func poll(ctx context.Context, client StatusClient, videoID string, cfg Config) Result {
	logger := logging.FromContext(ctx).With("videoId", videoID)

	deadline := time.Now().Add(cfg.Timeout)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		update, err := client.SyncStatus(ctx, videoID)
		switch {
		case err == nil:
			metrics.PollResults.WithLabelValues("ok").Inc()
			if update.Status.Terminal() {
				return terminalResult(videoID, update)
			}

		case errors.Is(err, backend.ErrUnauthorized):
			// Surfaced distinctly so the caller can trigger a re-login
			// instead of silently retrying.
			metrics.PollResults.WithLabelValues("unauthorized").Inc()
			return Result{VideoID: videoID, Err: err}

		case backend.IsRateLimited(err):
			metrics.PollResults.WithLabelValues("rate_limited").Inc()
			return Result{VideoID: videoID, Err: err}

		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Result{VideoID: videoID, Err: ctx.Err()}

		default:
			// Generic failure: the status endpoint may be flaky while
			// the plain video read still works, so try that once before
			// giving up.
			metrics.PollResults.WithLabelValues("error").Inc()
			logger.Warn("status sync failed, falling back to video fetch", "error", err)

			video, fetchErr := client.Video(ctx, videoID)
			if fetchErr != nil {
				return Result{VideoID: videoID, Err: err}
			}
			if video.Status.Terminal() {
				return terminalResult(videoID, backend.StatusUpdate{
					Status:        video.Status,
					VideoURL:      video.VideoURL,
					ThumbnailURL:  video.ThumbnailURL,
					FailureReason: video.FailureReason,
				})
			}
		}

		if time.Now().After(deadline) {
			metrics.PollResults.WithLabelValues("timeout").Inc()
			return Result{VideoID: videoID, Status: models.StatusProcessing, Err: ErrTimeout}
		}

		select {
		case <-ctx.Done():
			return Result{VideoID: videoID, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func terminalResult(videoID string, update backend.StatusUpdate) Result {
	result := Result{
		VideoID:       videoID,
		Status:        update.Status,
		VideoURL:      update.VideoURL,
		ThumbnailURL:  update.ThumbnailURL,
		FailureReason: update.FailureReason,
	}

	if update.Status == models.StatusFailed {
		if result.FailureReason == "" {
			result.FailureReason = "video generation failed"
		}
		result.Err = ErrGenerationFailed
		metrics.GenerationOutcomes.WithLabelValues("failed").Inc()
		return result
	}

	metrics.GenerationOutcomes.WithLabelValues("completed").Inc()
	return result
}
