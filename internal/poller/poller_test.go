package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/promptreel/gateway/internal/backend"
	"github.com/promptreel/gateway/internal/models"
)

type scriptedClient struct {
	mu          sync.Mutex
	updates     []backend.StatusUpdate
	errs        []error
	calls       int
	hold        time.Duration
	videoResult models.Video
	videoErr    error
	videoCalls  int
}

func (c *scriptedClient) SyncStatus(ctx context.Context, id string) (backend.StatusUpdate, error) {
	if c.hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.hold):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.calls
	c.calls++

	if i < len(c.errs) && c.errs[i] != nil {
		return backend.StatusUpdate{}, c.errs[i]
	}
	if i < len(c.updates) {
		return c.updates[i], nil
	}
	// Past the script: keep reporting the last known update.
	if len(c.updates) > 0 {
		return c.updates[len(c.updates)-1], nil
	}
	return backend.StatusUpdate{Status: models.StatusProcessing}, nil
}

func (c *scriptedClient) Video(ctx context.Context, id string) (models.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videoCalls++
	return c.videoResult, c.videoErr
}

func (c *scriptedClient) syncCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func fastConfig() Config {
	return Config{Interval: time.Millisecond, Timeout: time.Second}
}

func TestWatchResolvesOnceOnCompletion(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{
			{Status: models.StatusPending},
			{Status: models.StatusProcessing},
			{Status: models.StatusCompleted, VideoURL: "https://cdn.example.com/v-1.mp4"},
		},
	}

	results := Watch(context.Background(), client, "v-1", fastConfig())

	result, ok := <-results
	if !ok {
		t.Fatal("expected a result")
	}
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Status != models.StatusCompleted || result.VideoURL == "" {
		t.Fatalf("result = %+v", result)
	}

	if _, open := <-results; open {
		t.Fatal("channel must close after the single terminal result")
	}

	polls := client.syncCalls()
	time.Sleep(10 * time.Millisecond)
	if client.syncCalls() != polls {
		t.Fatal("polling continued after terminal resolution")
	}
}

func TestWatchFailureSurfacesReason(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{
			{Status: models.StatusFailed, FailureReason: "content policy violation"},
		},
	}

	result := <-Watch(context.Background(), client, "v-1", fastConfig())

	if !errors.Is(result.Err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", result.Err)
	}
	if result.FailureReason != "content policy violation" {
		t.Fatalf("reason = %q", result.FailureReason)
	}
}

func TestWatchFailureFallsBackToGenericReason(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{{Status: models.StatusFailed}},
	}

	result := <-Watch(context.Background(), client, "v-1", fastConfig())

	if result.FailureReason == "" {
		t.Fatal("expected a generic failure reason")
	}
}

func TestWatchTimesOut(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{{Status: models.StatusProcessing}},
	}

	cfg := Config{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}
	result := <-Watch(context.Background(), client, "v-1", cfg)

	if !errors.Is(result.Err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", result.Err)
	}
}

func TestWatchStopsOnUnauthorized(t *testing.T) {
	client := &scriptedClient{errs: []error{backend.ErrUnauthorized}}

	result := <-Watch(context.Background(), client, "v-1", fastConfig())

	if !errors.Is(result.Err, backend.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", result.Err)
	}
	if client.syncCalls() != 1 {
		t.Fatalf("sync calls = %d, want 1", client.syncCalls())
	}
}

func TestWatchSurfacesRateLimitDistinctly(t *testing.T) {
	client := &scriptedClient{errs: []error{&backend.RateLimitError{RetryAfter: 3 * time.Second}}}

	result := <-Watch(context.Background(), client, "v-1", fastConfig())

	var rl *backend.RateLimitError
	if !errors.As(result.Err, &rl) {
		t.Fatalf("err = %v, want RateLimitError", result.Err)
	}
	if rl.RetryAfter != 3*time.Second {
		t.Fatalf("RetryAfter = %v", rl.RetryAfter)
	}
}

func TestWatchGenericErrorFallsBackToVideoFetch(t *testing.T) {
	client := &scriptedClient{
		errs: []error{errors.New("boom")},
		videoResult: models.Video{
			ID:       "v-1",
			Status:   models.StatusCompleted,
			VideoURL: "https://cdn.example.com/v-1.mp4",
		},
	}

	result := <-Watch(context.Background(), client, "v-1", fastConfig())

	if result.Err != nil {
		t.Fatalf("err = %v, want fallback success", result.Err)
	}
	if result.Status != models.StatusCompleted {
		t.Fatalf("status = %v", result.Status)
	}
	if client.videoCalls != 1 {
		t.Fatalf("video fetch calls = %d, want 1", client.videoCalls)
	}
}

func TestWatchGenericErrorGivesUpWhenFallbackFails(t *testing.T) {
	cause := errors.New("boom")
	client := &scriptedClient{
		errs:     []error{cause},
		videoErr: errors.New("also down"),
	}

	result := <-Watch(context.Background(), client, "v-1", fastConfig())

	if !errors.Is(result.Err, cause) {
		t.Fatalf("err = %v, want original cause", result.Err)
	}
}

func TestWatchCancellation(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{{Status: models.StatusProcessing}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	results := Watch(ctx, client, "v-1", Config{Interval: time.Hour, Timeout: time.Hour})

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case result := <-results:
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", result.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestTrackerSingleSessionPerVideo(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{{Status: models.StatusProcessing}},
	}
	tracker := NewTracker(client, Config{Interval: time.Hour, Timeout: time.Hour})
	defer tracker.Shutdown()

	if !tracker.Track("v-1") {
		t.Fatal("first Track should start a session")
	}
	if tracker.Track("v-1") {
		t.Fatal("second Track must not start a duplicate session")
	}

	state, ok := tracker.Get("v-1")
	if !ok || state.Done {
		t.Fatalf("state = %+v ok=%v", state, ok)
	}
}

func TestTrackerCancelIgnoresLateResult(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{
			{Status: models.StatusCompleted, VideoURL: "https://cdn.example.com/v-1.mp4"},
		},
		hold: 50 * time.Millisecond,
	}
	tracker := NewTracker(client, Config{Interval: time.Hour, Timeout: time.Hour})

	tracker.Track("v-1")
	if !tracker.Cancel("v-1") {
		t.Fatal("expected active session to cancel")
	}

	// Give any in-flight result time to land; it must not overwrite the
	// canceled state.
	time.Sleep(20 * time.Millisecond)

	state, ok := tracker.Get("v-1")
	if !ok {
		t.Fatal("state should remain readable after cancel")
	}
	if state.Error != "canceled" || state.VideoURL != "" {
		t.Fatalf("late result overwrote canceled state: %+v", state)
	}
}

func TestTrackerRecordsTerminalState(t *testing.T) {
	client := &scriptedClient{
		updates: []backend.StatusUpdate{
			{Status: models.StatusCompleted, VideoURL: "https://cdn.example.com/v-1.mp4"},
		},
	}
	tracker := NewTracker(client, fastConfig())
	defer tracker.Shutdown()

	tracker.Track("v-1")

	deadline := time.Now().Add(time.Second)
	for {
		state, ok := tracker.Get("v-1")
		if ok && state.Done {
			if state.Status != models.StatusCompleted || state.VideoURL == "" {
				t.Fatalf("state = %+v", state)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("tracker never recorded terminal state")
		}
		time.Sleep(time.Millisecond)
	}
}
