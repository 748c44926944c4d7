package models

import "time"

// VideoStatus tracks a generation job through the backend pipeline.
type VideoStatus string

const (
	StatusPending    VideoStatus = "pending"
	StatusProcessing VideoStatus = "processing"
	StatusCompleted  VideoStatus = "completed"
	StatusFailed     VideoStatus = "failed"
)

// Terminal reports whether the status will never change again.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Video is a generated clip as the backend reports it.
type Video struct {
	ID            string      `json:"id"`
	CreatorID     string      `json:"creatorId"`
	Prompt        string      `json:"prompt"`
	VideoURL      string      `json:"videoUrl,omitempty"`
	ThumbnailURL  string      `json:"thumbnailUrl,omitempty"`
	Likes         int64       `json:"likesCount"`
	Dislikes      int64       `json:"dislikesCount"`
	Views         int64       `json:"viewsCount"`
	Status        VideoStatus `json:"status"`
	FailureReason string      `json:"failureReason,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	RankingScore  *float64    `json:"rankingScore,omitempty"`
}

// UserProfile aggregates a creator's public stats.
type UserProfile struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email,omitempty"`
	VideosCreated int64      `json:"videosCreated"`
	TotalLikes    int64      `json:"totalLikes"`
	TotalDislikes int64      `json:"totalDislikes"`
	LastActiveAt  *time.Time `json:"lastActiveAt,omitempty"`
}

// FeedPage is one page of the ranked feed plus the cursor to resume from.
type FeedPage struct {
	Videos     []Video `json:"videos"`
	NextCursor string  `json:"nextCursor,omitempty"`
	HasMore    bool    `json:"hasMore"`
}

// FeedItemKind discriminates the feed item union.
type FeedItemKind string

const (
	FeedItemVideo FeedItemKind = "video"
	FeedItemAd    FeedItemKind = "ad"
)

// Ad is a client-side ad slot spliced into the feed.
type Ad struct {
	ID        string `json:"id"`
	Placement string `json:"placement"`
}

// FeedItem is a tagged union: exactly one of Video or Ad is set,
// selected by Kind.
type FeedItem struct {
	Kind  FeedItemKind `json:"kind"`
	Video *Video       `json:"video,omitempty"`
	Ad    *Ad          `json:"ad,omitempty"`
}

// SessionTokens groups the bearer credentials handed to the browser.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
