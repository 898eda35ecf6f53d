package service

import (
	"context"
	"iter"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
)

// GraphService manages profiles, clubs and follow edges
type GraphService interface {
	CreateProfile(ctx context.Context, in CreateProfileInput) (*domain.Profile, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByUser(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.Profile, error)
	SubscribeVIP(ctx context.Context, userID string, until time.Time) (*domain.VIPSubscription, error)

	CreateClub(ctx context.Context, actorID string, in CreateClubInput) (*domain.Club, error)
	GetClub(ctx context.Context, id string) (*domain.Club, error)
	AddClubAdmin(ctx context.Context, actorID, clubID, userID string) (*domain.ClubAdmin, error)
	RemoveClubAdmin(ctx context.Context, actorID, clubID, userID string) error
	ListClubAdmins(ctx context.Context, actorID, clubID string) ([]*domain.ClubAdmin, error)

	Follow(ctx context.Context, followerID string, target domain.Owner) (*domain.FollowEdge, error)
	Unfollow(ctx context.Context, followerID string, target domain.Owner) error
	// ListFollowers yields follower profile ids in id order, strictly after the given id
	ListFollowers(ctx context.Context, target domain.Owner, after string) iter.Seq2[string, error]
	// ListFollowing yields followed owners in (kind, id) order, strictly after the given owner
	ListFollowing(ctx context.Context, followerID string, after domain.Owner) iter.Seq2[domain.Owner, error]
}

// ContentService manages posts and engagement
type ContentService interface {
	CreatePost(ctx context.Context, actorID string, in CreatePostInput) (*domain.Post, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	EditPost(ctx context.Context, actorID, postID string, in EditPostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, actorID, postID string) error
	AddTag(ctx context.Context, actorID, postID, name string) (*domain.Tag, error)
	RemoveTag(ctx context.Context, actorID, postID, name string) error
	AttachMedia(ctx context.Context, actorID, postID string, upload *domain.MediaUpload) (string, error)

	Like(ctx context.Context, profileID, postID string) (*domain.Like, error)
	Unlike(ctx context.Context, profileID, postID string) error
	CountLikes(ctx context.Context, postID string) (int, error)
	Comment(ctx context.Context, profileID, postID, text string, parentID *string) (*domain.Comment, error)
	// ListComments returns the post's comments nested under their parents
	ListComments(ctx context.Context, postID string) ([]*domain.Comment, error)
}

// TicketService manages events and ticket sales
type TicketService interface {
	CreateEvent(ctx context.Context, actorID, clubID string, in domain.NewEventInput) (*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	// ListEvents pages the club's events in id order
	ListEvents(ctx context.Context, clubID string, page PageRequest) ([]*domain.Event, error)
	PurchaseTicket(ctx context.Context, req domain.PurchaseRequest) (*domain.Ticket, error)
	RedeemTicket(ctx context.Context, actorID, code string) (*domain.Ticket, error)
	// ListTickets pages the profile's tickets in id order
	ListTickets(ctx context.Context, profileID string, page PageRequest) ([]*domain.Ticket, error)
}

// ReservationService manages table reservations
type ReservationService interface {
	CreateReservation(ctx context.Context, profileID, eventID string, req domain.ReservationRequest) (*domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	// ListReservations pages the club's reservations in id order for its admins.
	// An empty status lists every status.
	ListReservations(ctx context.Context, actorID, clubID string, status domain.ReservationStatus, page PageRequest) ([]*domain.Reservation, error)
	ApproveReservation(ctx context.Context, actorID, reservationID, reason string) (*domain.Reservation, error)
	RejectReservation(ctx context.Context, actorID, reservationID, reason string) (*domain.Reservation, error)
	History(ctx context.Context, reservationID string) ([]*domain.StatusTransition, error)
}

// MediaStorage stores upload bytes and returns a reference to them
type MediaStorage interface {
	Put(ctx context.Context, upload *domain.MediaUpload) (string, error)
}

// SoldOutCache short-circuits purchases for events known to be sold out
type SoldOutCache interface {
	IsSoldOut(ctx context.Context, eventID string) (bool, error)
	MarkSoldOut(ctx context.Context, eventID string) error
}

// PurchaseMemo remembers which ticket an idempotency key produced
type PurchaseMemo interface {
	Lookup(ctx context.Context, profileID, key string) (string, error)
	Remember(ctx context.Context, profileID, key, ticketID string) (string, error)
}

// PageRequest selects an id keyset page: at most Limit items strictly after After
type PageRequest struct {
	After string
	Limit int
}

// CreateProfileInput carries the fields of CreateProfile
type CreateProfileInput struct {
	UserID      string
	Username    string
	Role        domain.Role
	Bio         string
	DateOfBirth *time.Time
}

// UpdateProfileInput holds optional profile changes; nil fields are left alone
type UpdateProfileInput struct {
	Username      *string
	Bio           *string
	ProfilePicURL *string
	CoverPicURL   *string
	DateOfBirth   *time.Time
}

// CreateClubInput carries the fields of CreateClub
type CreateClubInput struct {
	Name          string
	MainLocation  string
	ContactNumber string
	Description   string
	ImageURL      string
	Address       string
}

// CreatePostInput carries the fields of CreatePost
type CreatePostInput struct {
	Owner       domain.Owner
	ContentType string
	Payload     domain.PostPayload
	Tags        []string
}

// EditPostInput replaces text and, when Media is non-nil, the media list
type EditPostInput struct {
	Text  *string
	Media []string
}
