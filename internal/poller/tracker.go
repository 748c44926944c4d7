package poller

import (
	"context"
	"sync"
	"time"

	"github.com/promptreel/gateway/internal/models"
)

// GenerationState is a point-in-time snapshot of a tracked generation.
type GenerationState struct {
	VideoID       string             `json:"videoId"`
	Status        models.VideoStatus `json:"status"`
	VideoURL      string             `json:"videoUrl,omitempty"`
	ThumbnailURL  string             `json:"thumbnailUrl,omitempty"`
	FailureReason string             `json:"failureReason,omitempty"`
	Done          bool               `json:"done"`
	Error         string             `json:"error,omitempty"`
	StartedAt     time.Time          `json:"startedAt"`
}

type generation struct {
	cancel   context.CancelFunc
	canceled bool
	state    GenerationState
}

// Tracker owns the polling sessions for in-flight generations. Each
// video gets at most one session; state is readable while the session
// runs and after it resolves.
type Tracker struct {
	client StatusClient
	cfg    Config
	now    func() time.Time

	mu   sync.Mutex
	gens map[string]*generation
}

// NewTracker constructs a Tracker polling through the provided client.
func NewTracker(client StatusClient, cfg Config) *Tracker {
	return &Tracker{
		client: client,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		gens:   make(map[string]*generation),
	}
}

// Track begins polling the video unless a session already exists.
// It reports whether a new session was started.
func (t *Tracker) Track(videoID string) bool {
	t.mu.Lock()
	if existing, ok := t.gens[videoID]; ok && !existing.state.Done {
		t.mu.Unlock()
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	gen := &generation{
		cancel: cancel,
		state: GenerationState{
			VideoID:   videoID,
			Status:    models.StatusPending,
			StartedAt: t.now(),
		},
	}
	t.gens[videoID] = gen
	t.mu.Unlock()

	results := Watch(ctx, t.client, videoID, t.cfg)

	go func() {
		defer cancel()
		result, ok := <-results
		if !ok {
			return
		}

		t.mu.Lock()
		defer t.mu.Unlock()

		// A session canceled while the request was in flight must not
		// resurface as a late terminal state.
		if gen.canceled {
			return
		}

		gen.state.Done = true
		gen.state.Status = result.Status
		gen.state.VideoURL = result.VideoURL
		gen.state.ThumbnailURL = result.ThumbnailURL
		gen.state.FailureReason = result.FailureReason
		if result.Err != nil {
			gen.state.Error = result.Err.Error()
		}
	}()

	return true
}

// Get returns the current snapshot for a tracked video.
func (t *Tracker) Get(videoID string) (GenerationState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	gen, ok := t.gens[videoID]
	if !ok {
		return GenerationState{}, false
	}
	return gen.state, true
}

// Cancel stops the polling session for a video. It reports whether an
// active session was canceled.
func (t *Tracker) Cancel(videoID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	gen, ok := t.gens[videoID]
	if !ok || gen.state.Done || gen.canceled {
		return false
	}

	gen.canceled = true
	gen.state.Done = true
	gen.state.Error = "canceled"
	gen.cancel()
	return true
}

// Shutdown cancels every active session.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, gen := range t.gens {
		if !gen.canceled && !gen.state.Done {
			gen.canceled = true
			gen.state.Done = true
			gen.state.Error = "canceled"
		}
		gen.cancel()
	}
}
