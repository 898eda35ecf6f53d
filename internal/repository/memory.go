package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/google/uuid"
)

type followKey struct {
	follower string
	target   domain.Owner
}

type likeKey struct {
	profile string
	post    string
}

type idempotencyKey struct {
	profile string
	key     string
}

// memEvent keeps capacity atomic so reads skip the lock; writes hold mu
type memEvent struct {
	event     domain.Event
	available atomic.Int64
}

// memoryDB is the shared state behind the in-memory repositories
type memoryDB struct {
	mu sync.RWMutex

	profiles      map[string]*domain.Profile
	profileByUser map[string]string
	vip           []*domain.VIPSubscription

	feeds       map[string]*domain.Feed
	feedByOwner map[domain.Owner]string
	// feedLogs keeps each feed's posts sorted oldest first
	feedLogs map[string][]*domain.Post

	clubs        map[string]*domain.Club
	clubNames    map[string]string
	clubProfiles map[string]*domain.ClubProfile
	admins       map[string]map[string]*domain.ClubAdmin

	follows map[followKey]*domain.FollowEdge

	posts    map[string]*domain.Post
	tags     map[string]*domain.Tag
	postTags map[string]map[string]bool

	likes          map[likeKey]*domain.Like
	comments       map[string]*domain.Comment
	commentsByPost map[string][]string

	events      map[string]*memEvent
	tickets     map[string]*domain.Ticket
	ticketCodes map[string]string
	ticketKeys  map[idempotencyKey]string

	reservations map[string]*domain.Reservation
	transitions  map[string][]*domain.StatusTransition
}

// NewMemoryStore returns a Store backed by process memory with the same
// uniqueness and capacity guarantees as the Postgres schema
func NewMemoryStore() *Store {
	db := &memoryDB{
		profiles:       make(map[string]*domain.Profile),
		profileByUser:  make(map[string]string),
		feeds:          make(map[string]*domain.Feed),
		feedByOwner:    make(map[domain.Owner]string),
		feedLogs:       make(map[string][]*domain.Post),
		clubs:          make(map[string]*domain.Club),
		clubNames:      make(map[string]string),
		clubProfiles:   make(map[string]*domain.ClubProfile),
		admins:         make(map[string]map[string]*domain.ClubAdmin),
		follows:        make(map[followKey]*domain.FollowEdge),
		posts:          make(map[string]*domain.Post),
		tags:           make(map[string]*domain.Tag),
		postTags:       make(map[string]map[string]bool),
		likes:          make(map[likeKey]*domain.Like),
		comments:       make(map[string]*domain.Comment),
		commentsByPost: make(map[string][]string),
		events:         make(map[string]*memEvent),
		tickets:        make(map[string]*domain.Ticket),
		ticketCodes:    make(map[string]string),
		ticketKeys:     make(map[idempotencyKey]string),
		reservations:   make(map[string]*domain.Reservation),
		transitions:    make(map[string][]*domain.StatusTransition),
	}
	return &Store{
		Profiles:     &memoryProfiles{db},
		Clubs:        &memoryClubs{db},
		Feeds:        &memoryFeeds{db},
		Follows:      &memoryFollows{db},
		Posts:        &memoryPosts{db},
		Engagement:   &memoryEngagement{db},
		Events:       &memoryEvents{db},
		Tickets:      &memoryTickets{db},
		Reservations: &memoryReservations{db},
	}
}

// --- profiles ---

type memoryProfiles struct{ db *memoryDB }

func (r *memoryProfiles) CreateWithFeed(ctx context.Context, profile *domain.Profile, feed *domain.Feed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.profileByUser[profile.UserID]; ok {
		return domain.ErrProfileExists
	}
	if _, ok := r.db.feedByOwner[feed.Owner]; ok {
		return domain.Conflict("feed", "feed already exists for %s", feed.Owner)
	}
	f := *feed
	r.db.feeds[f.ID] = &f
	r.db.feedByOwner[f.Owner] = f.ID
	r.db.profiles[profile.ID] = cloneProfile(profile)
	r.db.profileByUser[profile.UserID] = profile.ID
	return nil
}

func (r *memoryProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if p, ok := r.db.profiles[id]; ok {
		return cloneProfile(p), nil
	}
	return nil, nil
}

func (r *memoryProfiles) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if id, ok := r.db.profileByUser[userID]; ok {
		return cloneProfile(r.db.profiles[id]), nil
	}
	return nil, nil
}

func (r *memoryProfiles) Update(_ context.Context, profile *domain.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.profiles[profile.ID]
	if !ok {
		return domain.NotFound("profile", "id", profile.ID)
	}
	next := cloneProfile(profile)
	next.UserID, next.FeedID, next.CreatedAt = cur.UserID, cur.FeedID, cur.CreatedAt
	r.db.profiles[profile.ID] = next
	return nil
}

func (r *memoryProfiles) AddVIPSubscription(_ context.Context, sub *domain.VIPSubscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[sub.ProfileID]
	if !ok {
		return domain.NotFound("profile", "profile_id", sub.ProfileID)
	}
	s := *sub
	r.db.vip = append(r.db.vip, &s)
	p.IsVIP = true
	return nil
}

// --- clubs ---

type memoryClubs struct{ db *memoryDB }

func (r *memoryClubs) CreateWithProfile(ctx context.Context, club *domain.Club, profile *domain.ClubProfile, feed *domain.Feed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := strings.ToLower(club.Name)
	if _, ok := r.db.clubNames[key]; ok {
		return domain.ErrClubNameTaken
	}
	c, cp, f := *club, *profile, *feed
	r.db.clubs[c.ID] = &c
	r.db.clubNames[key] = c.ID
	r.db.clubProfiles[cp.ID] = &cp
	r.db.feeds[f.ID] = &f
	r.db.feedByOwner[f.Owner] = f.ID
	r.db.admins[c.ID] = map[string]*domain.ClubAdmin{
		c.CreatedBy: {ClubID: c.ID, UserID: c.CreatedBy, CreatedAt: c.CreatedAt},
	}
	return nil
}

func (r *memoryClubs) GetByID(_ context.Context, id string) (*domain.Club, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if c, ok := r.db.clubs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryClubs) GetProfile(_ context.Context, clubProfileID string) (*domain.ClubProfile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if p, ok := r.db.clubProfiles[clubProfileID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryClubs) IsAdmin(_ context.Context, clubID, userID string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	_, ok := r.db.admins[clubID][userID]
	return ok, nil
}

func (r *memoryClubs) AddAdmin(_ context.Context, admin *domain.ClubAdmin) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	set, ok := r.db.admins[admin.ClubID]
	if !ok {
		return domain.NotFound("club", "club_id", admin.ClubID)
	}
	if _, exists := set[admin.UserID]; exists {
		return domain.ErrAdminExists
	}
	a := *admin
	set[a.UserID] = &a
	return nil
}

func (r *memoryClubs) RemoveAdmin(_ context.Context, clubID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.admins[clubID][userID]; !ok {
		return domain.NotFound("club admin", "user_id", userID)
	}
	delete(r.db.admins[clubID], userID)
	return nil
}

func (r *memoryClubs) ListAdmins(_ context.Context, clubID string) ([]*domain.ClubAdmin, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]*domain.ClubAdmin, 0, len(r.db.admins[clubID]))
	for _, a := range r.db.admins[clubID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// --- feeds ---

type memoryFeeds struct{ db *memoryDB }

func (r *memoryFeeds) GetByID(_ context.Context, id string) (*domain.Feed, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if f, ok := r.db.feeds[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryFeeds) GetByOwner(_ context.Context, owner domain.Owner) (*domain.Feed, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if id, ok := r.db.feedByOwner[owner]; ok {
		cp := *r.db.feeds[id]
		return &cp, nil
	}
	return nil, nil
}

// --- follows ---

type memoryFollows struct{ db *memoryDB }

func (r *memoryFollows) Create(_ context.Context, edge *domain.FollowEdge) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := followKey{follower: edge.FollowerID, target: edge.Target}
	if _, ok := r.db.follows[key]; ok {
		return domain.ErrDuplicateEdge
	}
	e := *edge
	r.db.follows[key] = &e
	return nil
}

func (r *memoryFollows) Delete(_ context.Context, followerID string, target domain.Owner) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := followKey{follower: followerID, target: target}
	if _, ok := r.db.follows[key]; !ok {
		return domain.NotFound("follow", "target", target.String())
	}
	delete(r.db.follows, key)
	return nil
}

func (r *memoryFollows) ListFollowers(_ context.Context, target domain.Owner, afterFollowerID string, limit int) ([]*domain.FollowEdge, error) {
	r.db.mu.RLock()
	var out []*domain.FollowEdge
	for k, e := range r.db.follows {
		if k.target == target && k.follower > afterFollowerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	r.db.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FollowerID < out[j].FollowerID })
	return truncate(out, limit), nil
}

func (r *memoryFollows) ListFollowing(_ context.Context, followerID string, after domain.Owner, limit int) ([]*domain.FollowEdge, error) {
	r.db.mu.RLock()
	var out []*domain.FollowEdge
	for k, e := range r.db.follows {
		if k.follower == followerID && ownerAfter(k.target, after) {
			cp := *e
			out = append(out, &cp)
		}
	}
	r.db.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return ownerAfter(out[j].Target, out[i].Target) })
	return truncate(out, limit), nil
}

// ownerAfter orders owners by (kind, id); every owner sorts after the zero owner
func ownerAfter(o, after domain.Owner) bool {
	if o.Kind != after.Kind {
		return o.Kind > after.Kind
	}
	return o.ID > after.ID
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// --- posts ---

type memoryPosts struct{ db *memoryDB }

func (r *memoryPosts) Create(ctx context.Context, post *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.feeds[post.FeedID]; !ok {
		return domain.NotFound("feed", "feed_id", post.FeedID)
	}
	if post.OriginalPostID != nil {
		if _, ok := r.db.posts[*post.OriginalPostID]; !ok {
			return domain.NotFound("post", "original_post_id", *post.OriginalPostID)
		}
	}
	for _, name := range post.Tags {
		if name != strings.ToLower(name) {
			return errTagNotNormalized
		}
	}
	p := clonePost(post)
	p.Tags = nil
	r.db.posts[p.ID] = p
	if len(post.Tags) > 0 {
		links := make(map[string]bool, len(post.Tags))
		for _, name := range post.Tags {
			if _, ok := r.db.tags[name]; !ok {
				r.db.tags[name] = &domain.Tag{ID: uuid.New().String(), Name: name}
			}
			links[name] = true
		}
		r.db.postTags[p.ID] = links
	}

	log := r.db.feedLogs[p.FeedID]
	pos := domain.PositionOf(p)
	i := sort.Search(len(log), func(i int) bool { return !domain.PositionOf(log[i]).Before(pos) })
	r.db.feedLogs[p.FeedID] = slices.Insert(log, i, p)
	return nil
}

func (r *memoryPosts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if p, ok := r.db.posts[id]; ok {
		return r.withTags(p), nil
	}
	return nil, nil
}

// withTags clones p and fills its tag names; caller holds the lock
func (r *memoryPosts) withTags(p *domain.Post) *domain.Post {
	out := clonePost(p)
	out.Tags = nil
	for name := range r.db.postTags[p.ID] {
		out.Tags = append(out.Tags, name)
	}
	sort.Strings(out.Tags)
	return out
}

func (r *memoryPosts) UpdateContent(_ context.Context, post *domain.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.posts[post.ID]
	if !ok {
		return domain.NotFound("post", "id", post.ID)
	}
	cur.Text = post.Text
	cur.Media = slices.Clone(post.Media)
	if post.EditedAt != nil {
		t := *post.EditedAt
		cur.EditedAt = &t
	}
	return nil
}

func (r *memoryPosts) AppendMedia(_ context.Context, postID, ref string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.posts[postID]
	if !ok {
		return domain.NotFound("post", "id", postID)
	}
	cur.Media = append(cur.Media, ref)
	return nil
}

func (r *memoryPosts) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return domain.NotFound("post", "id", id)
	}
	delete(r.db.posts, id)
	delete(r.db.postTags, id)
	r.db.feedLogs[p.FeedID] = slices.DeleteFunc(r.db.feedLogs[p.FeedID], func(q *domain.Post) bool { return q.ID == id })

	for k := range r.db.likes {
		if k.post == id {
			delete(r.db.likes, k)
		}
	}
	for _, cid := range r.db.commentsByPost[id] {
		delete(r.db.comments, cid)
	}
	delete(r.db.commentsByPost, id)

	for _, other := range r.db.posts {
		if other.OriginalPostID != nil && *other.OriginalPostID == id {
			other.OriginalPostID = nil
		}
	}
	return nil
}

func (r *memoryPosts) ListByFeed(ctx context.Context, feedID string, before domain.FeedPosition, limit int) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	log := r.db.feedLogs[feedID]
	end := len(log)
	if !before.IsZero() {
		end = sort.Search(len(log), func(i int) bool { return !domain.PositionOf(log[i]).Before(before) })
	}
	out := make([]*domain.Post, 0, min(limit, end))
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.withTags(log[i]))
	}
	return out, nil
}

func (r *memoryPosts) AttachTag(_ context.Context, postID, name string) (*domain.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[postID]; !ok {
		return nil, domain.NotFound("post", "id", postID)
	}
	tag, ok := r.db.tags[name]
	if !ok {
		tag = &domain.Tag{ID: uuid.New().String(), Name: name}
		r.db.tags[name] = tag
	}
	links := r.db.postTags[postID]
	if links == nil {
		links = make(map[string]bool)
		r.db.postTags[postID] = links
	}
	if links[name] {
		return nil, domain.ErrTagExists
	}
	links[name] = true
	cp := *tag
	return &cp, nil
}

func (r *memoryPosts) DetachTag(_ context.Context, postID, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if !r.db.postTags[postID][name] {
		return domain.NotFound("tag", "tag", name)
	}
	delete(r.db.postTags[postID], name)
	return nil
}

// --- likes & comments ---

type memoryEngagement struct{ db *memoryDB }

func (r *memoryEngagement) CreateLike(_ context.Context, like *domain.Like) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[like.PostID]; !ok {
		return domain.NotFound("post", "post_id", like.PostID)
	}
	key := likeKey{profile: like.ProfileID, post: like.PostID}
	if _, ok := r.db.likes[key]; ok {
		return domain.ErrDuplicateLike
	}
	l := *like
	r.db.likes[key] = &l
	return nil
}

func (r *memoryEngagement) DeleteLike(_ context.Context, profileID, postID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := likeKey{profile: profileID, post: postID}
	if _, ok := r.db.likes[key]; !ok {
		return domain.NotFound("like", "post_id", postID)
	}
	delete(r.db.likes, key)
	return nil
}

func (r *memoryEngagement) CountLikes(_ context.Context, postID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n := 0
	for k := range r.db.likes {
		if k.post == postID {
			n++
		}
	}
	return n, nil
}

func (r *memoryEngagement) CreateComment(_ context.Context, comment *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[comment.PostID]; !ok {
		return domain.NotFound("post", "post_id", comment.PostID)
	}
	if comment.ParentID != nil {
		parent, ok := r.db.comments[*comment.ParentID]
		if !ok || parent.PostID != comment.PostID {
			return domain.ErrInvalidParent
		}
	}
	c := cloneComment(comment)
	r.db.comments[c.ID] = c
	r.db.commentsByPost[c.PostID] = append(r.db.commentsByPost[c.PostID], c.ID)
	return nil
}

func (r *memoryEngagement) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if c, ok := r.db.comments[id]; ok {
		return cloneComment(c), nil
	}
	return nil, nil
}

func (r *memoryEngagement) ListComments(_ context.Context, postID string) ([]*domain.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ids := r.db.commentsByPost[postID]
	out := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneComment(r.db.comments[id]))
	}
	return out, nil
}

// --- events & tickets ---

type memoryEvents struct{ db *memoryDB }

func (r *memoryEvents) Create(_ context.Context, event *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.clubs[event.ClubID]; !ok {
		return domain.NotFound("club", "club_id", event.ClubID)
	}
	if !event.CheckCapacity() {
		return domain.Validation("available_tickets", "available tickets must be between 0 and total")
	}
	me := &memEvent{event: *event}
	me.available.Store(int64(event.AvailableTickets))
	r.db.events[event.ID] = me
	return nil
}

func (r *memoryEvents) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.db.mu.RLock()
	me, ok := r.db.events[id]
	r.db.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	ev := me.event
	ev.AvailableTickets = int(me.available.Load())
	return &ev, nil
}

func (r *memoryEvents) ListByClub(_ context.Context, clubID, afterID string, limit int) ([]*domain.Event, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*domain.Event
	for _, me := range r.db.events {
		if me.event.ClubID != clubID || me.event.ID <= afterID {
			continue
		}
		ev := me.event
		ev.AvailableTickets = int(me.available.Load())
		out = append(out, &ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return truncate(out, limit), nil
}

type memoryTickets struct{ db *memoryDB }

// Purchase checks every rejection under the write lock before touching
// capacity, so a refused attempt never holds a ticket another buyer could take
func (r *memoryTickets) Purchase(ctx context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	me, ok := r.db.events[ticket.EventID]
	if !ok {
		return domain.NotFound("event", "event_id", ticket.EventID)
	}
	if _, taken := r.db.ticketCodes[ticket.Code]; taken {
		return ErrCodeCollision
	}
	var key idempotencyKey
	if ticket.IdempotencyKey != nil {
		key = idempotencyKey{profile: ticket.ProfileID, key: *ticket.IdempotencyKey}
		if _, used := r.db.ticketKeys[key]; used {
			return ErrIdempotencyReplay
		}
	}
	if me.available.Load() <= 0 {
		return domain.ErrSoldOut
	}

	me.available.Add(-1)
	if ticket.IdempotencyKey != nil {
		r.db.ticketKeys[key] = ticket.ID
	}
	r.db.tickets[ticket.ID] = cloneTicket(ticket)
	r.db.ticketCodes[ticket.Code] = ticket.ID
	return nil
}

func (r *memoryTickets) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if id, ok := r.db.ticketCodes[code]; ok {
		return cloneTicket(r.db.tickets[id]), nil
	}
	return nil, nil
}

func (r *memoryTickets) GetByIdempotencyKey(_ context.Context, profileID, key string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if id, ok := r.db.ticketKeys[idempotencyKey{profile: profileID, key: key}]; ok {
		return cloneTicket(r.db.tickets[id]), nil
	}
	return nil, nil
}

func (r *memoryTickets) ListByProfile(_ context.Context, profileID, afterID string, limit int) ([]*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*domain.Ticket
	for _, t := range r.db.tickets {
		if t.ProfileID == profileID && t.ID > afterID {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return truncate(out, limit), nil
}

func (r *memoryTickets) MarkRedeemed(_ context.Context, ticketID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[ticketID]
	if !ok {
		return domain.NotFound("ticket", "id", ticketID)
	}
	if t.RedeemedAt != nil {
		return domain.ErrAlreadyRedeemed
	}
	t.RedeemedAt = &at
	return nil
}

// --- reservations ---

type memoryReservations struct{ db *memoryDB }

func (r *memoryReservations) Create(_ context.Context, res *domain.Reservation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[res.EventID]; !ok {
		return domain.NotFound("event", "event_id", res.EventID)
	}
	cp := *res
	r.db.reservations[cp.ID] = &cp
	return nil
}

func (r *memoryReservations) GetByID(_ context.Context, id string) (*domain.Reservation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if res, ok := r.db.reservations[id]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryReservations) ListByClub(_ context.Context, clubID string, status domain.ReservationStatus, afterID string, limit int) ([]*domain.Reservation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*domain.Reservation
	for _, res := range r.db.reservations {
		if res.ClubID != clubID || res.ID <= afterID || (status != "" && res.Status != status) {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return truncate(out, limit), nil
}

func (r *memoryReservations) UpdateStatus(_ context.Context, res *domain.Reservation, tr *domain.StatusTransition) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.reservations[res.ID]
	if !ok {
		return domain.NotFound("reservation", "id", res.ID)
	}
	if cur.Status != tr.From {
		return domain.InvalidTransition(string(cur.Status), string(tr.To))
	}
	cp := *res
	r.db.reservations[res.ID] = &cp
	t := *tr
	r.db.transitions[res.ID] = append(r.db.transitions[res.ID], &t)
	return nil
}

func (r *memoryReservations) ListTransitions(_ context.Context, reservationID string) ([]*domain.StatusTransition, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	src := r.db.transitions[reservationID]
	out := make([]*domain.StatusTransition, len(src))
	for i, t := range src {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

// --- copies ---

func cloneProfile(p *domain.Profile) *domain.Profile {
	cp := *p
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		cp.DateOfBirth = &dob
	}
	return &cp
}

func clonePost(p *domain.Post) *domain.Post {
	cp := *p
	cp.Media = slices.Clone(p.Media)
	cp.Tags = slices.Clone(p.Tags)
	if p.OriginalPostID != nil {
		id := *p.OriginalPostID
		cp.OriginalPostID = &id
	}
	if p.EditedAt != nil {
		t := *p.EditedAt
		cp.EditedAt = &t
	}
	return &cp
}

func cloneComment(c *domain.Comment) *domain.Comment {
	cp := *c
	cp.Replies = nil
	if c.ParentID != nil {
		id := *c.ParentID
		cp.ParentID = &id
	}
	return &cp
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	cp := *t
	if t.RedeemedAt != nil {
		at := *t.RedeemedAt
		cp.RedeemedAt = &at
	}
	if t.IdempotencyKey != nil {
		k := *t.IdempotencyKey
		cp.IdempotencyKey = &k
	}
	return &cp
}
