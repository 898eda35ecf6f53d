package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)

type world struct {
	t      *testing.T
	store  *repository.Store
	engine *Engine
}

func newWorld(t *testing.T, cfg Config) *world {
	t.Helper()
	metrics, err := telemetry.NewMetrics()
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	return &world{t: t, store: store, engine: NewEngine(store, cfg, metrics)}
}

func (w *world) profile() *domain.Profile {
	w.t.Helper()
	id := uuid.New().String()
	feed := &domain.Feed{ID: uuid.New().String(), Owner: domain.UserOwner(id), CreatedAt: base}
	p := &domain.Profile{ID: id, UserID: "u-" + id, Username: "guest", Role: domain.RoleCustomer, FeedID: feed.ID, CreatedAt: base, UpdatedAt: base}
	require.NoError(w.t, w.store.Profiles.CreateWithFeed(context.Background(), p, feed))
	return p
}

func (w *world) club(name string) *domain.ClubProfile {
	w.t.Helper()
	club := &domain.Club{ID: uuid.New().String(), Name: name, CreatedBy: "owner-" + name, CreatedAt: base, UpdatedAt: base}
	cp := &domain.ClubProfile{ID: uuid.New().String(), ClubID: club.ID, FeedID: uuid.New().String(), CreatedAt: base, UpdatedAt: base}
	club.ProfileID = cp.ID
	feed := &domain.Feed{ID: cp.FeedID, Owner: domain.ClubOwner(cp.ID), CreatedAt: base}
	require.NoError(w.t, w.store.Clubs.CreateWithProfile(context.Background(), club, cp, feed))
	return cp
}

func (w *world) follow(followerID string, target domain.Owner) {
	w.t.Helper()
	require.NoError(w.t, w.store.Follows.Create(context.Background(), &domain.FollowEdge{FollowerID: followerID, Target: target, CreatedAt: base}))
}

func (w *world) post(feedID string, owner domain.Owner, text string, at time.Time) *domain.Post {
	w.t.Helper()
	p := &domain.Post{ID: uuid.New().String(), FeedID: feedID, Owner: owner, ContentType: domain.ContentText, Text: text, CreatedAt: at}
	require.NoError(w.t, w.store.Posts.Create(context.Background(), p))
	return p
}

func texts(posts []*domain.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Text
	}
	return out
}

// readAll walks every page of the feed
func (w *world) readAll(profileID string, size int) [][]string {
	w.t.Helper()
	var pages [][]string
	cursor := ""
	for i := 0; i < 100; i++ {
		page, err := w.engine.ReadPage(context.Background(), profileID, cursor, size)
		require.NoError(w.t, err)
		pages = append(pages, texts(page.Posts))
		if page.NextCursor == "" {
			return pages
		}
		cursor = page.NextCursor
	}
	w.t.Fatal("feed did not terminate")
	return nil
}

func TestReadPage_FollowedClubNewestFirst(t *testing.T) {
	w := newWorld(t, Config{})
	a := w.profile()
	b := w.club("B")
	w.follow(a.ID, domain.ClubOwner(b.ID))

	w.post(b.FeedID, domain.ClubOwner(b.ID), "P1", base.Add(time.Minute))
	w.post(b.FeedID, domain.ClubOwner(b.ID), "P2", base.Add(2*time.Minute))

	assert.Equal(t, [][]string{{"P2"}, {"P1"}}, w.readAll(a.ID, 1))
}

func TestReadPage_SameCursorSamePage(t *testing.T) {
	w := newWorld(t, Config{})
	a := w.profile()
	b := w.club("B")
	w.follow(a.ID, domain.ClubOwner(b.ID))
	for i := 0; i < 5; i++ {
		w.post(b.FeedID, domain.ClubOwner(b.ID), fmt.Sprintf("P%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	ctx := context.Background()
	first, err := w.engine.ReadPage(ctx, a.ID, "", 2)
	require.NoError(t, err)
	require.NotEmpty(t, first.NextCursor)

	again, err := w.engine.ReadPage(ctx, a.ID, first.NextCursor, 2)
	require.NoError(t, err)
	once, err := w.engine.ReadPage(ctx, a.ID, first.NextCursor, 2)
	require.NoError(t, err)

	assert.Equal(t, texts(again.Posts), texts(once.Posts))
	assert.Equal(t, again.NextCursor, once.NextCursor)
	assert.Equal(t, []string{"P2", "P1"}, texts(again.Posts))
}

func TestReadPage_MergesOwnAndFollowedFeeds(t *testing.T) {
	for _, batch := range []int{1, 2, 50} {
		t.Run(fmt.Sprintf("batch=%d", batch), func(t *testing.T) {
			w := newWorld(t, Config{DefaultPageSize: 3, MaxPageSize: 10, SourceBatchSize: batch, FetchConcurrency: 2})
			a := w.profile()
			friend := w.profile()
			club := w.club("Neon")
			stranger := w.profile()
			w.follow(a.ID, domain.UserOwner(friend.ID))
			w.follow(a.ID, domain.ClubOwner(club.ID))

			w.post(a.FeedID, domain.UserOwner(a.ID), "own-1", base.Add(1*time.Minute))
			w.post(club.FeedID, domain.ClubOwner(club.ID), "club-1", base.Add(2*time.Minute))
			w.post(friend.FeedID, domain.UserOwner(friend.ID), "friend-1", base.Add(3*time.Minute))
			w.post(stranger.FeedID, domain.UserOwner(stranger.ID), "stranger-1", base.Add(4*time.Minute))
			w.post(club.FeedID, domain.ClubOwner(club.ID), "club-2", base.Add(5*time.Minute))
			w.post(a.FeedID, domain.UserOwner(a.ID), "own-2", base.Add(6*time.Minute))
			w.post(friend.FeedID, domain.UserOwner(friend.ID), "friend-2", base.Add(7*time.Minute))

			assert.Equal(t, [][]string{
				{"friend-2", "own-2", "club-2"},
				{"friend-1", "club-1", "own-1"},
			}, w.readAll(a.ID, 0))
		})
	}
}

func TestReadPage_EqualTimestampsBreakTiesOnID(t *testing.T) {
	w := newWorld(t, Config{SourceBatchSize: 1})
	a := w.profile()
	b := w.club("B")
	w.follow(a.ID, domain.ClubOwner(b.ID))

	p1 := w.post(a.FeedID, domain.UserOwner(a.ID), "x", base)
	p2 := w.post(b.FeedID, domain.ClubOwner(b.ID), "y", base)
	want := []string{p1.ID, p2.ID}
	if p1.ID < p2.ID {
		want = []string{p2.ID, p1.ID}
	}

	var got []string
	cursor := ""
	for {
		page, err := w.engine.ReadPage(context.Background(), a.ID, cursor, 1)
		require.NoError(t, err)
		for _, p := range page.Posts {
			got = append(got, p.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, want, got)
}

func TestReadPage_UnfollowedFeedDisappears(t *testing.T) {
	w := newWorld(t, Config{})
	a := w.profile()
	b := w.club("B")
	target := domain.ClubOwner(b.ID)
	w.follow(a.ID, target)
	w.post(b.FeedID, target, "P1", base)

	page, err := w.engine.ReadPage(context.Background(), a.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)

	require.NoError(t, w.store.Follows.Delete(context.Background(), a.ID, target))
	page, err = w.engine.ReadPage(context.Background(), a.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Empty(t, page.NextCursor)
}

func TestReadPage_Errors(t *testing.T) {
	w := newWorld(t, Config{MaxPageSize: 5})
	a := w.profile()
	ctx := context.Background()

	_, err := w.engine.ReadPage(ctx, "missing", "", 1)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = w.engine.ReadPage(ctx, a.ID, "%%%", 1)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = w.engine.ReadPage(ctx, a.ID, "", -1)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestReadPage_CapsPageSize(t *testing.T) {
	w := newWorld(t, Config{DefaultPageSize: 2, MaxPageSize: 3})
	a := w.profile()
	for i := 0; i < 6; i++ {
		w.post(a.FeedID, domain.UserOwner(a.ID), fmt.Sprintf("P%d", i), base.Add(time.Duration(i)*time.Second))
	}

	page, err := w.engine.ReadPage(context.Background(), a.ID, "", 100)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)
	assert.NotEmpty(t, page.NextCursor)
}

func TestStream_StopsWhenConsumerBreaks(t *testing.T) {
	w := newWorld(t, Config{SourceBatchSize: 2})
	a := w.profile()
	for i := 0; i < 10; i++ {
		w.post(a.FeedID, domain.UserOwner(a.ID), fmt.Sprintf("P%d", i), base.Add(time.Duration(i)*time.Second))
	}

	var seen []string
	for p, err := range w.engine.Stream(context.Background(), a.ID, domain.FeedPosition{}) {
		require.NoError(t, err)
		seen = append(seen, p.Text)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"P9", "P8", "P7"}, seen)
}
