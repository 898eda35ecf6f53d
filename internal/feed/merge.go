package feed

import (
	"context"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
)

// source reads one feed log newest first in bounded batches
type source struct {
	feedID    string
	posts     repository.PostRepository
	batch     int
	buf       []*domain.Post
	pos       int
	before    domain.FeedPosition
	exhausted bool
}

// fill loads the next batch strictly older than everything read so far
func (s *source) fill(ctx context.Context) error {
	posts, err := s.posts.ListByFeed(ctx, s.feedID, s.before, s.batch)
	if err != nil {
		return err
	}
	s.buf, s.pos = posts, 0
	if len(posts) < s.batch {
		s.exhausted = true
	}
	if len(posts) > 0 {
		s.before = domain.PositionOf(posts[len(posts)-1])
	}
	return nil
}

func (s *source) head() *domain.Post {
	if s.pos < len(s.buf) {
		return s.buf[s.pos]
	}
	return nil
}

// advance drops the head, fetching the next batch once the buffer is drained
func (s *source) advance(ctx context.Context) error {
	s.pos++
	if s.pos < len(s.buf) || s.exhausted {
		return nil
	}
	return s.fill(ctx)
}

// sourceHeap is a max-heap on the head post's (created_at, id)
type sourceHeap []*source

func (h sourceHeap) Len() int { return len(h) }

func (h sourceHeap) Less(i, j int) bool {
	return domain.PositionOf(h[j].head()).Before(domain.PositionOf(h[i].head()))
}

func (h sourceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *sourceHeap) Push(x any) { *h = append(*h, x.(*source)) }

func (h *sourceHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return s
}
