// Package feed assembles a profile's home feed by merging the post logs of
// every owner it follows, newest first, at read time.
package feed

import (
	"container/heap"
	"context"
	"iter"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config tunes paging and source fetching
type Config struct {
	DefaultPageSize  int
	MaxPageSize      int
	FetchConcurrency int
	SourceBatchSize  int
}

func (c Config) withDefaults() Config {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize < c.DefaultPageSize {
		c.MaxPageSize = c.DefaultPageSize
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 8
	}
	if c.SourceBatchSize <= 0 {
		c.SourceBatchSize = c.DefaultPageSize
	}
	return c
}

// Page is one slice of a feed plus the token for the next one
type Page struct {
	Posts      []*domain.Post `json:"posts"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Engine merges followed feeds on read. It keeps no per-follower copies.
type Engine struct {
	store   *repository.Store
	cfg     Config
	metrics *telemetry.Metrics
}

func NewEngine(store *repository.Store, cfg Config, metrics *telemetry.Metrics) *Engine {
	return &Engine{store: store, cfg: cfg.withDefaults(), metrics: metrics}
}

// ReadPage returns up to size posts strictly older than the cursor. size 0
// selects the default page size; larger sizes are capped.
func (e *Engine) ReadPage(ctx context.Context, profileID, cursor string, size int) (page *Page, err error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.read_page", trace.WithAttributes(telemetry.ProfileIDAttr(profileID)))
	start := time.Now()
	defer func() {
		e.metrics.FeedPageLatency.Since(ctx, start)
		telemetry.EndSpan(span, err)
	}()

	switch {
	case size < 0:
		return nil, domain.Validation("limit", "page size must not be negative")
	case size == 0:
		size = e.cfg.DefaultPageSize
	case size > e.cfg.MaxPageSize:
		size = e.cfg.MaxPageSize
	}
	before, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	page = &Page{Posts: make([]*domain.Post, 0, size)}
	more := false
	for post, err := range e.Stream(ctx, profileID, before) {
		if err != nil {
			return nil, err
		}
		if len(page.Posts) == size {
			more = true
			break
		}
		page.Posts = append(page.Posts, post)
	}
	if more {
		if page.NextCursor, err = EncodeCursor(domain.PositionOf(page.Posts[len(page.Posts)-1])); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// Stream yields the merged feed lazily, newest first, strictly after before
// in reading order. A zero position starts at the newest post.
func (e *Engine) Stream(ctx context.Context, profileID string, before domain.FeedPosition) iter.Seq2[*domain.Post, error] {
	return func(yield func(*domain.Post, error) bool) {
		feedIDs, err := e.sourceFeeds(ctx, profileID)
		if err != nil {
			yield(nil, err)
			return
		}
		h, err := e.openSources(ctx, feedIDs, before)
		if err != nil {
			yield(nil, err)
			return
		}

		for h.Len() > 0 {
			top := (*h)[0]
			if !yield(top.head(), nil) {
				return
			}
			if err := top.advance(ctx); err != nil {
				yield(nil, err)
				return
			}
			if top.head() == nil {
				heap.Pop(h)
			} else {
				heap.Fix(h, 0)
			}
		}
	}
}

// sourceFeeds lists the profile's own feed followed by every followed owner's feed
func (e *Engine) sourceFeeds(ctx context.Context, profileID string) ([]string, error) {
	profile, err := e.store.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.NotFound("profile", "profile_id", profileID)
	}

	seen := map[string]bool{profile.FeedID: true}
	feedIDs := []string{profile.FeedID}
	var after domain.Owner
	for {
		edges, err := e.store.Follows.ListFollowing(ctx, profileID, after, e.cfg.SourceBatchSize)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			after = edge.Target
			f, err := e.store.Feeds.GetByOwner(ctx, edge.Target)
			if err != nil {
				return nil, err
			}
			if f == nil {
				logger.WarnCtx(ctx, "followed owner has no feed", zap.String("target", edge.Target.String()))
				continue
			}
			if !seen[f.ID] {
				seen[f.ID] = true
				feedIDs = append(feedIDs, f.ID)
			}
		}
		if len(edges) < e.cfg.SourceBatchSize {
			return feedIDs, nil
		}
	}
}

// openSources fetches the first batch of every feed concurrently and heaps the non-empty ones
func (e *Engine) openSources(ctx context.Context, feedIDs []string, before domain.FeedPosition) (*sourceHeap, error) {
	sources := make([]*source, len(feedIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FetchConcurrency)
	for i, id := range feedIDs {
		src := &source{feedID: id, posts: e.store.Posts, batch: e.cfg.SourceBatchSize, before: before}
		sources[i] = src
		g.Go(func() error {
			return src.fill(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := make(sourceHeap, 0, len(sources))
	for _, src := range sources {
		if src.head() != nil {
			h = append(h, src)
		}
	}
	heap.Init(&h)
	return &h, nil
}
