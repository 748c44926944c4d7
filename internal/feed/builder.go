package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/promptreel/gateway/internal/logging"
	"github.com/promptreel/gateway/internal/metrics"
	"github.com/promptreel/gateway/internal/models"
	"github.com/promptreel/gateway/internal/ranking"
)

// Fetcher is the slice of the backend client the builder needs.
type Fetcher interface {
	Feed(ctx context.Context, cursor string, limit int) (models.FeedPage, error)
}

// Page is one assembled feed page: ranked videos interleaved with ad
// slots, plus the cursor to resume from.
type Page struct {
	Items      []models.FeedItem `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
	HasMore    bool              `json:"hasMore"`
}

// Builder fetches feed pages and splices ad slots in at a fixed cadence.
type Builder struct {
	fetcher Fetcher
	// adInterval inserts one ad after every adInterval videos. Zero or
	// negative disables ads.
	adInterval int
	nowFunc    func() time.Time
	newAdID    func() string
}

// NewBuilder constructs a Builder. adInterval <= 0 disables ad insertion.
func NewBuilder(fetcher Fetcher, adInterval int) *Builder {
	return &Builder{
		fetcher:    fetcher,
		adInterval: adInterval,
		nowFunc:    time.Now,
		newAdID:    uuid.NewString,
	}
}

// BuildPage fetches one page and returns it as a tagged item stream.
// Videos the backend did not score get a client-side ranking score so
// the UI can order mixed pages consistently.
func (b *Builder) BuildPage(ctx context.Context, cursor string, limit int) (Page, error) {
	start := time.Now()
	ctx, span := logging.StartSpan(ctx, "feed.build_page")
	defer span.End()

	page, err := b.fetcher.Feed(ctx, cursor, limit)
	if err != nil {
		return Page{}, fmt.Errorf("fetch feed page: %w", err)
	}

	now := b.nowFunc()
	items := make([]models.FeedItem, 0, len(page.Videos)+len(page.Videos)/maxInt(b.adInterval, 1))

	for i := range page.Videos {
		video := page.Videos[i]
		if video.RankingScore == nil {
			score := ranking.VideoScoreAt(video.Likes, video.Dislikes, video.Views, video.CreatedAt, now)
			video.RankingScore = &score
		}
		items = append(items, models.FeedItem{Kind: models.FeedItemVideo, Video: &video})

		if b.adInterval > 0 && (i+1)%b.adInterval == 0 && i != len(page.Videos)-1 {
			items = append(items, models.FeedItem{
				Kind: models.FeedItemAd,
				Ad:   &models.Ad{ID: b.newAdID(), Placement: "feed"},
			})
		}
	}

	metrics.FeedBuildDuration.Observe(time.Since(start).Seconds())

	return Page{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
