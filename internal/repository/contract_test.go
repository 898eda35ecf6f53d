package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture seeds the rows most contract cases need
type fixture struct {
	store   *Store
	profile *domain.Profile
	club    *domain.Club
	clubFP  *domain.ClubProfile
	event   *domain.Event
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newID() string { return uuid.New().String() }

func seedProfile(t *testing.T, s *Store) *domain.Profile {
	t.Helper()
	ts := now()
	feed := &domain.Feed{ID: newID(), CreatedAt: ts}
	p := &domain.Profile{
		ID:        newID(),
		UserID:    "user-" + newID(),
		Username:  "guest",
		Role:      domain.RoleCustomer,
		FeedID:    feed.ID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	feed.Owner = domain.UserOwner(p.ID)
	require.NoError(t, s.Profiles.CreateWithFeed(context.Background(), p, feed))
	return p
}

func seedClub(t *testing.T, s *Store, creator string) (*domain.Club, *domain.ClubProfile) {
	t.Helper()
	ts := now()
	club := &domain.Club{ID: newID(), Name: "Club " + newID(), CreatedBy: creator, CreatedAt: ts, UpdatedAt: ts}
	cp := &domain.ClubProfile{ID: newID(), ClubID: club.ID, FeedID: newID(), CreatedAt: ts, UpdatedAt: ts}
	club.ProfileID = cp.ID
	feed := &domain.Feed{ID: cp.FeedID, Owner: domain.ClubOwner(cp.ID), CreatedAt: ts}
	require.NoError(t, s.Clubs.CreateWithProfile(context.Background(), club, cp, feed))
	return club, cp
}

func seedEvent(t *testing.T, s *Store, clubID string, total int) *domain.Event {
	t.Helper()
	ts := now()
	ev := &domain.Event{
		ID:               newID(),
		ClubID:           clubID,
		Name:             "Opening night",
		StartsAt:         ts.Add(48 * time.Hour),
		Price:            decimal.RequireFromString("25.00"),
		TotalTickets:     total,
		AvailableTickets: total,
		CreatedBy:        "owner",
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	require.NoError(t, s.Events.Create(context.Background(), ev))
	return ev
}

func newFixture(t *testing.T, s *Store, capacity int) *fixture {
	t.Helper()
	p := seedProfile(t, s)
	club, cp := seedClub(t, s, p.UserID)
	return &fixture{store: s, profile: p, club: club, clubFP: cp, event: seedEvent(t, s, club.ID, capacity)}
}

func newTicket(ev *domain.Event, profileID string) *domain.Ticket {
	return &domain.Ticket{
		ID:          newID(),
		EventID:     ev.ID,
		ClubID:      ev.ClubID,
		ProfileID:   profileID,
		Code:        newID(),
		PricePaid:   ev.Price,
		PurchasedAt: now(),
		ValidUntil:  ev.StartsAt.Add(12 * time.Hour),
	}
}

func newPost(feedID string, owner domain.Owner, at time.Time) *domain.Post {
	return &domain.Post{ID: newID(), FeedID: feedID, Owner: owner, ContentType: domain.ContentText, Text: "hello", CreatedAt: at}
}

// runContract exercises the behaviour both backends must share
func runContract(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Run("profile uniqueness per identity", func(t *testing.T) {
		s := newStore(t)
		p := seedProfile(t, s)

		feed := &domain.Feed{ID: newID(), CreatedAt: now()}
		dup := *p
		dup.ID, dup.FeedID = newID(), feed.ID
		feed.Owner = domain.UserOwner(dup.ID)

		err := s.Profiles.CreateWithFeed(context.Background(), &dup, feed)
		assert.ErrorIs(t, err, domain.ErrProfileExists)

		got, err := s.Feeds.GetByOwner(context.Background(), feed.Owner)
		require.NoError(t, err)
		assert.Nil(t, got, "feed of the rejected profile must not survive")
	})

	t.Run("club name is unique case-insensitively and creator is admin", func(t *testing.T) {
		s := newStore(t)
		p := seedProfile(t, s)
		club, cp := seedClub(t, s, p.UserID)

		ok, err := s.Clubs.IsAdmin(context.Background(), club.ID, p.UserID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Clubs.GetByID(context.Background(), club.ID)
		require.NoError(t, err)
		assert.Equal(t, cp.ID, got.ProfileID)

		ts := now()
		twin := &domain.Club{ID: newID(), Name: strings.ToUpper(club.Name), CreatedBy: p.UserID, CreatedAt: ts, UpdatedAt: ts}
		twinCP := &domain.ClubProfile{ID: newID(), ClubID: twin.ID, FeedID: newID(), CreatedAt: ts, UpdatedAt: ts}
		twinFeed := &domain.Feed{ID: twinCP.FeedID, Owner: domain.ClubOwner(twinCP.ID), CreatedAt: ts}
		err = s.Clubs.CreateWithProfile(context.Background(), twin, twinCP, twinFeed)
		assert.ErrorIs(t, err, domain.ErrClubNameTaken)
	})

	t.Run("follow unfollow refollow", func(t *testing.T) {
		s := newStore(t)
		a, b := seedProfile(t, s), seedProfile(t, s)
		ctx := context.Background()
		edge := &domain.FollowEdge{FollowerID: a.ID, Target: domain.UserOwner(b.ID), CreatedAt: now()}

		require.NoError(t, s.Follows.Create(ctx, edge))
		assert.ErrorIs(t, s.Follows.Create(ctx, edge), domain.ErrDuplicateEdge)
		require.NoError(t, s.Follows.Delete(ctx, a.ID, edge.Target))
		assert.True(t, domain.IsKind(s.Follows.Delete(ctx, a.ID, edge.Target), domain.KindNotFound))
		require.NoError(t, s.Follows.Create(ctx, edge))

		followers, err := s.Follows.ListFollowers(ctx, edge.Target, "", 10)
		require.NoError(t, err)
		require.Len(t, followers, 1)
		assert.Equal(t, a.ID, followers[0].FollowerID)
	})

	t.Run("follower keyset paging", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		target := seedProfile(t, s)
		for i := 0; i < 5; i++ {
			f := seedProfile(t, s)
			require.NoError(t, s.Follows.Create(ctx, &domain.FollowEdge{FollowerID: f.ID, Target: domain.UserOwner(target.ID), CreatedAt: now()}))
		}

		var seen []string
		after := ""
		for {
			page, err := s.Follows.ListFollowers(ctx, domain.UserOwner(target.ID), after, 2)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			for _, e := range page {
				seen = append(seen, e.FollowerID)
			}
			after = page[len(page)-1].FollowerID
		}
		assert.Len(t, seen, 5)
		assert.IsIncreasing(t, seen)
	})

	t.Run("feed log is newest first and strictly before the cursor", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := seedProfile(t, s)
		owner := domain.UserOwner(p.ID)
		base := now()

		var posts []*domain.Post
		for i := 0; i < 4; i++ {
			post := newPost(p.FeedID, owner, base.Add(time.Duration(i)*time.Second))
			require.NoError(t, s.Posts.Create(ctx, post))
			posts = append(posts, post)
		}

		head, err := s.Posts.ListByFeed(ctx, p.FeedID, domain.FeedPosition{}, 2)
		require.NoError(t, err)
		require.Len(t, head, 2)
		assert.Equal(t, posts[3].ID, head[0].ID)
		assert.Equal(t, posts[2].ID, head[1].ID)

		rest, err := s.Posts.ListByFeed(ctx, p.FeedID, domain.PositionOf(head[1]), 10)
		require.NoError(t, err)
		require.Len(t, rest, 2)
		assert.Equal(t, posts[1].ID, rest[0].ID)
		assert.Equal(t, posts[0].ID, rest[1].ID)
	})

	t.Run("post delete cascades likes comments and tags", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := seedProfile(t, s)
		post := newPost(p.FeedID, domain.UserOwner(p.ID), now())
		require.NoError(t, s.Posts.Create(ctx, post))

		require.NoError(t, s.Engagement.CreateLike(ctx, &domain.Like{ProfileID: p.ID, PostID: post.ID, CreatedAt: now()}))
		assert.ErrorIs(t, s.Engagement.CreateLike(ctx, &domain.Like{ProfileID: p.ID, PostID: post.ID, CreatedAt: now()}), domain.ErrDuplicateLike)

		tag, err := s.Posts.AttachTag(ctx, post.ID, "techno")
		require.NoError(t, err)
		assert.Equal(t, "techno", tag.Name)
		_, err = s.Posts.AttachTag(ctx, post.ID, "techno")
		assert.ErrorIs(t, err, domain.ErrTagExists)

		c := &domain.Comment{ID: newID(), PostID: post.ID, ProfileID: p.ID, Text: "nice", CreatedAt: now()}
		require.NoError(t, s.Engagement.CreateComment(ctx, c))

		got, err := s.Posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"techno"}, got.Tags)

		require.NoError(t, s.Posts.Delete(ctx, post.ID))

		n, err := s.Engagement.CountLikes(ctx, post.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		comments, err := s.Engagement.ListComments(ctx, post.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("post and its tag links are written together", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := seedProfile(t, s)
		owner := domain.UserOwner(p.ID)

		tagged := newPost(p.FeedID, owner, now())
		tagged.Tags = []string{"techno", "berlin"}
		require.NoError(t, s.Posts.Create(ctx, tagged))
		got, err := s.Posts.GetByID(ctx, tagged.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"techno", "berlin"}, got.Tags)

		broken := newPost(p.FeedID, owner, now().Add(time.Second))
		broken.Tags = []string{"house", "NotNormalized"}
		err = s.Posts.Create(ctx, broken)
		assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)

		got, err = s.Posts.GetByID(ctx, broken.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
		log, err := s.Posts.ListByFeed(ctx, p.FeedID, domain.FeedPosition{}, 10)
		require.NoError(t, err)
		require.Len(t, log, 1)
		assert.Equal(t, tagged.ID, log[0].ID)
	})

	t.Run("comment parent must belong to the same post", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := seedProfile(t, s)
		owner := domain.UserOwner(p.ID)
		first, second := newPost(p.FeedID, owner, now()), newPost(p.FeedID, owner, now().Add(time.Second))
		require.NoError(t, s.Posts.Create(ctx, first))
		require.NoError(t, s.Posts.Create(ctx, second))

		parent := &domain.Comment{ID: newID(), PostID: first.ID, ProfileID: p.ID, Text: "root", CreatedAt: now()}
		require.NoError(t, s.Engagement.CreateComment(ctx, parent))

		stray := &domain.Comment{ID: newID(), PostID: second.ID, ProfileID: p.ID, Text: "reply", ParentID: &parent.ID, CreatedAt: now()}
		assert.ErrorIs(t, s.Engagement.CreateComment(ctx, stray), domain.ErrInvalidParent)
	})

	t.Run("purchase exhausts capacity then reports sold out", func(t *testing.T) {
		s := newStore(t)
		f := newFixture(t, s, 1)
		ctx := context.Background()

		require.NoError(t, s.Tickets.Purchase(ctx, newTicket(f.event, f.profile.ID)))
		assert.ErrorIs(t, s.Tickets.Purchase(ctx, newTicket(f.event, f.profile.ID)), domain.ErrSoldOut)

		ev, err := s.Events.GetByID(ctx, f.event.ID)
		require.NoError(t, err)
		assert.Zero(t, ev.AvailableTickets)
	})

	t.Run("code collision and idempotency replay leave capacity unchanged", func(t *testing.T) {
		s := newStore(t)
		f := newFixture(t, s, 5)
		ctx := context.Background()

		key := "order-1"
		first := newTicket(f.event, f.profile.ID)
		first.IdempotencyKey = &key
		require.NoError(t, s.Tickets.Purchase(ctx, first))

		clash := newTicket(f.event, f.profile.ID)
		clash.Code = first.Code
		assert.ErrorIs(t, s.Tickets.Purchase(ctx, clash), ErrCodeCollision)

		replay := newTicket(f.event, f.profile.ID)
		replay.IdempotencyKey = &key
		assert.ErrorIs(t, s.Tickets.Purchase(ctx, replay), ErrIdempotencyReplay)

		ev, err := s.Events.GetByID(ctx, f.event.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, ev.AvailableTickets)

		got, err := s.Tickets.GetByIdempotencyKey(ctx, f.profile.ID, key)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("redeem once", func(t *testing.T) {
		s := newStore(t)
		f := newFixture(t, s, 1)
		ctx := context.Background()
		ticket := newTicket(f.event, f.profile.ID)
		require.NoError(t, s.Tickets.Purchase(ctx, ticket))

		require.NoError(t, s.Tickets.MarkRedeemed(ctx, ticket.ID, now()))
		assert.ErrorIs(t, s.Tickets.MarkRedeemed(ctx, ticket.ID, now()), domain.ErrAlreadyRedeemed)
	})

	t.Run("reservation status compare-and-set", func(t *testing.T) {
		s := newStore(t)
		f := newFixture(t, s, 1)
		ctx := context.Background()
		ts := now()
		res := &domain.Reservation{
			ID: newID(), EventID: f.event.ID, ClubID: f.club.ID, ProfileID: f.profile.ID,
			TableNumber: 3, GroupSize: 4, Status: domain.ReservationPending, CreatedAt: ts, UpdatedAt: ts,
		}
		require.NoError(t, s.Reservations.Create(ctx, res))

		approve := &domain.StatusTransition{ID: newID(), ReservationID: res.ID, From: domain.ReservationPending, To: domain.ReservationApproved, ActorID: "admin", At: ts}
		approved := *res
		approved.Status = domain.ReservationApproved
		require.NoError(t, s.Reservations.UpdateStatus(ctx, &approved, approve))

		reject := &domain.StatusTransition{ID: newID(), ReservationID: res.ID, From: domain.ReservationPending, To: domain.ReservationRejected, ActorID: "admin", At: ts}
		rejected := *res
		rejected.Status = domain.ReservationRejected
		err := s.Reservations.UpdateStatus(ctx, &rejected, reject)
		assert.True(t, domain.IsKind(err, domain.KindInvalidTransition), "got %v", err)

		history, err := s.Reservations.ListTransitions(ctx, res.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, domain.ReservationApproved, history[0].To)
	})

	t.Run("malformed ids behave as missing rows", func(t *testing.T) {
		s := newStore(t)
		f := newFixture(t, s, 1)
		ctx := context.Background()

		lookups := []struct {
			name string
			get  func(id string) (any, error)
		}{
			{"event", func(id string) (any, error) { return s.Events.GetByID(ctx, id) }},
			{"post", func(id string) (any, error) { return s.Posts.GetByID(ctx, id) }},
			{"profile", func(id string) (any, error) { return s.Profiles.GetByID(ctx, id) }},
			{"club", func(id string) (any, error) { return s.Clubs.GetByID(ctx, id) }},
			{"reservation", func(id string) (any, error) { return s.Reservations.GetByID(ctx, id) }},
			{"ticket by key", func(id string) (any, error) { return s.Tickets.GetByIdempotencyKey(ctx, id, "k") }},
		}
		for _, l := range lookups {
			t.Run(l.name, func(t *testing.T) {
				got, err := l.get("abc")
				require.NoError(t, err)
				assert.Nil(t, got)
			})
		}

		post := newPost(f.profile.FeedID, domain.UserOwner(f.profile.ID), now())
		require.NoError(t, s.Posts.Create(ctx, post))
		parent := "foo"
		stray := &domain.Comment{ID: newID(), PostID: post.ID, ProfileID: f.profile.ID, Text: "reply", ParentID: &parent, CreatedAt: now()}
		assert.ErrorIs(t, s.Engagement.CreateComment(ctx, stray), domain.ErrInvalidParent)
	})

	t.Run("club and profile listings page by id", func(t *testing.T) {
		s := newStore(t)
		f := newFixture(t, s, 5)
		ctx := context.Background()
		other := seedProfile(t, s)
		seedEvent(t, s, f.club.ID, 5)
		seedEvent(t, s, f.club.ID, 5)
		otherClub, _ := seedClub(t, s, other.UserID)
		seedEvent(t, s, otherClub.ID, 5)

		events, err := s.Events.ListByClub(ctx, f.club.ID, "", 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Less(t, events[0].ID, events[1].ID)
		rest, err := s.Events.ListByClub(ctx, f.club.ID, events[1].ID, 10)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Less(t, events[1].ID, rest[0].ID)
		assert.Equal(t, 5, rest[0].AvailableTickets)

		for range 2 {
			require.NoError(t, s.Tickets.Purchase(ctx, newTicket(f.event, f.profile.ID)))
		}
		require.NoError(t, s.Tickets.Purchase(ctx, newTicket(f.event, other.ID)))
		tickets, err := s.Tickets.ListByProfile(ctx, f.profile.ID, "", 10)
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		for _, ticket := range tickets {
			assert.Equal(t, f.profile.ID, ticket.ProfileID)
		}
		tail, err := s.Tickets.ListByProfile(ctx, f.profile.ID, tickets[0].ID, 10)
		require.NoError(t, err)
		assert.Len(t, tail, 1)

		ts := now()
		for table := 1; table <= 3; table++ {
			require.NoError(t, s.Reservations.Create(ctx, &domain.Reservation{
				ID: newID(), EventID: f.event.ID, ClubID: f.club.ID, ProfileID: other.ID,
				TableNumber: table, GroupSize: 2, Status: domain.ReservationPending, CreatedAt: ts, UpdatedAt: ts,
			}))
		}
		all, err := s.Reservations.ListByClub(ctx, f.club.ID, "", "", 10)
		require.NoError(t, err)
		require.Len(t, all, 3)

		decided := *all[0]
		decided.Status = domain.ReservationRejected
		require.NoError(t, s.Reservations.UpdateStatus(ctx, &decided, &domain.StatusTransition{
			ID: newID(), ReservationID: decided.ID, From: domain.ReservationPending, To: domain.ReservationRejected, ActorID: "admin", At: ts,
		}))
		pending, err := s.Reservations.ListByClub(ctx, f.club.ID, domain.ReservationPending, "", 10)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
		rejected, err := s.Reservations.ListByClub(ctx, f.club.ID, domain.ReservationRejected, "", 10)
		require.NoError(t, err)
		require.Len(t, rejected, 1)
		assert.Equal(t, decided.ID, rejected[0].ID)
	})
}

// runConcurrentPurchases fires buyers purchases at an event with capacity and
// checks the exact split between tickets and sold-out rejections
func runConcurrentPurchases(t *testing.T, s *Store, capacity, buyers int) {
	t.Helper()
	f := newFixture(t, s, capacity)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		sold    atomic.Int64
		soldOut atomic.Int64
		other   atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// one attempt per buyer: contention alone must never surface as a conflict
			err := s.Tickets.Purchase(ctx, newTicket(f.event, f.profile.ID))
			switch {
			case err == nil:
				sold.Add(1)
			case errors.Is(err, domain.ErrSoldOut):
				soldOut.Add(1)
			default:
				t.Errorf("unexpected purchase error: %v", err)
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), sold.Load())
	assert.Equal(t, int64(buyers-capacity), soldOut.Load())
	assert.Zero(t, other.Load())

	ev, err := s.Events.GetByID(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Zero(t, ev.AvailableTickets)
	assert.True(t, ev.CheckCapacity())
}
