package ranking

import (
	"math"
	"time"
)

// Component weights for the creator score.
const (
	recencyWeight    = 0.4
	videoCountWeight = 0.3
	likesWeight      = 0.2
	dislikesWeight   = 0.1

	inactiveHorizonHours = 24.0 * 30.0
	videoCountReference  = 50.0
	likesReference       = 1000.0
	dislikesReference    = 100.0
)

// VideoScore combines engagement and recency into a single feed-ordering
// value. Higher is more relevant.
//
// The engagement term is net likes scaled by log10 of the view count, so
// views grow the score without dominating it. The recency term starts at
// 100 for a brand-new video and decays exponentially with a 24-hour
// constant. Net likes are deliberately not clamped: a heavily disliked
// video with few views scores below zero, which downstream ordering
// relies on.
func VideoScore(likes, dislikes, views int64, ageHours float64) float64 {
	if views < 1 {
		views = 1
	}
	engagement := float64(likes-dislikes) * math.Log10(float64(views)+1)
	recency := 100.0 * math.Exp(-ageHours/24.0)
	return engagement + recency
}

// VideoScoreAt computes VideoScore for a video created at createdAt as
// observed at now. Fractional hours are preserved.
func VideoScoreAt(likes, dislikes, views int64, createdAt, now time.Time) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return VideoScore(likes, dislikes, views, ageHours)
}

// CreatorScore produces a weighted composite of a creator's activity,
// output volume, and engagement, rounded to one decimal place.
//
// Dislikes count toward the score rather than against it: any reaction
// is treated as engagement.
func CreatorScore(hoursSinceActive float64, videos, likes, dislikes int64) float64 {
	if hoursSinceActive < 0 {
		hoursSinceActive = 0
	}

	recency := math.Max(0, 100.0-(hoursSinceActive/inactiveHorizonHours)*100.0)
	videoCount := math.Min(100.0, (float64(videos)/videoCountReference)*100.0)
	likeScore := math.Min(100.0, log10OrZero(float64(likes)+1)/math.Log10(likesReference+1)*100.0)
	dislikeScore := math.Min(100.0, (float64(dislikes)/dislikesReference)*100.0)

	composite := recency*recencyWeight +
		videoCount*videoCountWeight +
		likeScore*likesWeight +
		dislikeScore*dislikesWeight

	return roundTenthHalfUp(composite)
}

// CreatorScoreAt computes CreatorScore from a last-active timestamp. A
// nil timestamp is treated as a full inactivity horizon (30 days), which
// zeroes the recency component.
func CreatorScoreAt(lastActive *time.Time, videos, likes, dislikes int64, now time.Time) float64 {
	hours := inactiveHorizonHours
	if lastActive != nil {
		hours = now.Sub(*lastActive).Hours()
	}
	return CreatorScore(hours, videos, likes, dislikes)
}

func log10OrZero(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log10(v)
}

// roundTenthHalfUp rounds to one decimal with ties going up. Inputs here
// are non-negative, but the half-up contract is kept explicit rather
// than leaning on math.Round's ties-away-from-zero behavior.
func roundTenthHalfUp(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
