package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
)

// Store-level signals the services react to. They never reach the transport.
var (
	// ErrTxConflict means the transaction lost a serialization race and may be retried
	ErrTxConflict = errors.New("repository: transaction conflict")
	// ErrCodeCollision means a generated ticket code already exists
	ErrCodeCollision = errors.New("repository: ticket code collision")
	// ErrIdempotencyReplay means the (profile, idempotency key) pair already issued a ticket
	ErrIdempotencyReplay = errors.New("repository: idempotency key already used")
)

var errTagNotNormalized = domain.Validation("tag", "tag name must be normalized")

// Lookups return (nil, nil) when the row does not exist.

// ProfileRepository persists profiles together with their feed
type ProfileRepository interface {
	// CreateWithFeed stores the feed and the profile atomically
	CreateWithFeed(ctx context.Context, profile *domain.Profile, feed *domain.Feed) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	// AddVIPSubscription records the subscription and flags the profile VIP
	AddVIPSubscription(ctx context.Context, sub *domain.VIPSubscription) error
}

// ClubRepository persists clubs, their profile and admin set
type ClubRepository interface {
	// CreateWithProfile stores the club, its feed, its club profile and the
	// creator's admin membership atomically
	CreateWithProfile(ctx context.Context, club *domain.Club, profile *domain.ClubProfile, feed *domain.Feed) error
	GetByID(ctx context.Context, id string) (*domain.Club, error)
	GetProfile(ctx context.Context, clubProfileID string) (*domain.ClubProfile, error)
	IsAdmin(ctx context.Context, clubID, userID string) (bool, error)
	AddAdmin(ctx context.Context, admin *domain.ClubAdmin) error
	RemoveAdmin(ctx context.Context, clubID, userID string) error
	ListAdmins(ctx context.Context, clubID string) ([]*domain.ClubAdmin, error)
}

// FeedRepository resolves feeds by owner
type FeedRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Feed, error)
	GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Feed, error)
}

// FollowRepository persists follow edges
type FollowRepository interface {
	Create(ctx context.Context, edge *domain.FollowEdge) error
	Delete(ctx context.Context, followerID string, target domain.Owner) error
	// ListFollowers returns up to limit edges into target ordered by follower id, strictly after afterFollowerID
	ListFollowers(ctx context.Context, target domain.Owner, afterFollowerID string, limit int) ([]*domain.FollowEdge, error)
	// ListFollowing returns up to limit edges out of followerID ordered by (kind, id), strictly after the given target
	ListFollowing(ctx context.Context, followerID string, after domain.Owner, limit int) ([]*domain.FollowEdge, error)
}

// PostRepository persists posts and their tag links
type PostRepository interface {
	// Create stores the post together with links for post.Tags, or nothing at all.
	// Tag names must already be normalized.
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// UpdateContent rewrites text, media and edited_at; created_at is never touched
	UpdateContent(ctx context.Context, post *domain.Post) error
	AppendMedia(ctx context.Context, postID, ref string) error
	// Delete removes the post with its likes, comments and tag links
	Delete(ctx context.Context, id string) error
	// ListByFeed returns up to limit posts of feedID strictly older than before, newest first.
	// A zero position starts at the head of the log.
	ListByFeed(ctx context.Context, feedID string, before domain.FeedPosition, limit int) ([]*domain.Post, error)
	// AttachTag links the normalized tag name, creating the tag if needed
	AttachTag(ctx context.Context, postID, name string) (*domain.Tag, error)
	DetachTag(ctx context.Context, postID, name string) error
}

// EngagementRepository persists likes and comments
type EngagementRepository interface {
	CreateLike(ctx context.Context, like *domain.Like) error
	DeleteLike(ctx context.Context, profileID, postID string) error
	CountLikes(ctx context.Context, postID string) (int, error)
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	// ListComments returns the post's comments in creation order
	ListComments(ctx context.Context, postID string) ([]*domain.Comment, error)
}

// EventRepository persists events
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// ListByClub returns up to limit events of clubID ordered by id, strictly after afterID
	ListByClub(ctx context.Context, clubID, afterID string, limit int) ([]*domain.Event, error)
}

// TicketRepository persists tickets and owns the capacity decrement
type TicketRepository interface {
	// Purchase decrements the event's available tickets and inserts ticket in
	// one atomic unit. It returns domain.ErrSoldOut when no capacity is left,
	// ErrCodeCollision, ErrIdempotencyReplay or ErrTxConflict; on any error
	// capacity is unchanged.
	Purchase(ctx context.Context, ticket *domain.Ticket) error
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	GetByIdempotencyKey(ctx context.Context, profileID, key string) (*domain.Ticket, error)
	// ListByProfile returns up to limit tickets of profileID ordered by id, strictly after afterID
	ListByProfile(ctx context.Context, profileID, afterID string, limit int) ([]*domain.Ticket, error)
	// MarkRedeemed sets redeemed_at only if it is still unset, else domain.ErrAlreadyRedeemed
	MarkRedeemed(ctx context.Context, ticketID string, at time.Time) error
}

// ReservationRepository persists reservations and their status history
type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	// ListByClub returns up to limit reservations of clubID ordered by id, strictly
	// after afterID. An empty status matches every status.
	ListByClub(ctx context.Context, clubID string, status domain.ReservationStatus, afterID string, limit int) ([]*domain.Reservation, error)
	// UpdateStatus moves r from tr.From to tr.To only if the stored status is
	// still tr.From, appending tr to the history in the same unit
	UpdateStatus(ctx context.Context, r *domain.Reservation, tr *domain.StatusTransition) error
	ListTransitions(ctx context.Context, reservationID string) ([]*domain.StatusTransition, error)
}

// Store bundles every repository behind one backend
type Store struct {
	Profiles     ProfileRepository
	Clubs        ClubRepository
	Feeds        FeedRepository
	Follows      FollowRepository
	Posts        PostRepository
	Engagement   EngagementRepository
	Events       EventRepository
	Tickets      TicketRepository
	Reservations ReservationRepository
}
