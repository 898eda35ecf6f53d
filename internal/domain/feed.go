package domain

import "time"

// Feed is the append-only post log owned by one profile or club profile
type Feed struct {
	ID        string    `json:"id"`
	Owner     Owner     `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedPosition is a point in reverse-chronological order.
// A post sorts before another when it is newer, ties broken by the larger id.
type FeedPosition struct {
	CreatedAt time.Time `json:"ts"`
	ID        string    `json:"id"`
}

// IsZero reports whether the position is the head of the log
func (p FeedPosition) IsZero() bool {
	return p.CreatedAt.IsZero() && p.ID == ""
}

// Before reports whether p comes strictly after q when reading newest first,
// meaning p is older than q.
func (p FeedPosition) Before(q FeedPosition) bool {
	if !p.CreatedAt.Equal(q.CreatedAt) {
		return p.CreatedAt.Before(q.CreatedAt)
	}
	return p.ID < q.ID
}

// PositionOf returns the feed position of a post
func PositionOf(p *Post) FeedPosition {
	return FeedPosition{CreatedAt: p.CreatedAt, ID: p.ID}
}
