package dto

import (
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// CreateProfileRequest represents the request to create the caller's profile
type CreateProfileRequest struct {
	Username    string `json:"username" binding:"required"`
	Role        string `json:"role"`
	Bio         string `json:"bio" binding:"max=2000"`
	DateOfBirth string `json:"date_of_birth"`
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	Username      *string `json:"username"`
	Bio           *string `json:"bio"`
	ProfilePicURL *string `json:"profile_pic_url"`
	CoverPicURL   *string `json:"cover_pic_url"`
	DateOfBirth   *string `json:"date_of_birth"`
}

// SubscribeVIPRequest represents a VIP subscription purchase
type SubscribeVIPRequest struct {
	Until string `json:"until" binding:"required"`
}

// ProfileResponse adds derived fields to a profile
type ProfileResponse struct {
	*domain.Profile
	ProfilePic  string `json:"profile_pic"`
	CoverPic    string `json:"cover_pic"`
	Age         *int   `json:"age,omitempty"`
	RoleDisplay string `json:"role_display"`
}

// NewProfileResponse derives picture defaults and age at now
func NewProfileResponse(p *domain.Profile, now time.Time) *ProfileResponse {
	return &ProfileResponse{
		Profile:     p,
		ProfilePic:  p.ProfilePic(),
		CoverPic:    p.CoverPic(),
		Age:         p.Age(now),
		RoleDisplay: p.Role.DisplayName(),
	}
}

// CreateClubRequest represents the request to create a club
type CreateClubRequest struct {
	Name          string `json:"name" binding:"required"`
	MainLocation  string `json:"main_location" binding:"required"`
	ContactNumber string `json:"contact_number" binding:"required"`
	Description   string `json:"description" binding:"max=2000"`
	ImageURL      string `json:"image_url"`
	Address       string `json:"address"`
}

// ClubAdminRequest names the user to add to a club's admin set
type ClubAdminRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// OwnerRequest identifies a user or club profile
type OwnerRequest struct {
	Kind string `json:"kind" form:"kind" binding:"required"`
	ID   string `json:"id" form:"id" binding:"required"`
}

// Owner converts the request into a domain owner
func (r *OwnerRequest) Owner() (domain.Owner, error) {
	kind, err := domain.ParseOwnerKind(r.Kind)
	if err != nil {
		return domain.Owner{}, err
	}
	return domain.Owner{Kind: kind, ID: r.ID}, nil
}

// FollowRequest represents a follow or unfollow of a target
type FollowRequest struct {
	Target OwnerRequest `json:"target" binding:"required"`
}

// CreatePostRequest represents the request to publish a post. Owner defaults
// to the caller's own profile.
type CreatePostRequest struct {
	Owner          *OwnerRequest `json:"owner"`
	ContentType    string        `json:"content_type" binding:"required"`
	Text           string        `json:"text"`
	Media          []string      `json:"media"`
	OriginalPostID *string       `json:"original_post_id"`
	Tags           []string      `json:"tags"`
}

// EditPostRequest represents a post edit
type EditPostRequest struct {
	Text  *string  `json:"text"`
	Media []string `json:"media"`
}

// TagRequest names a tag
type TagRequest struct {
	Name string `json:"name" binding:"required"`
}

// CommentRequest represents a new comment or reply
type CommentRequest struct {
	Text     string  `json:"text" binding:"required"`
	ParentID *string `json:"parent_id"`
}

// LikesResponse carries a post's like count
type LikesResponse struct {
	PostID string `json:"post_id"`
	Count  int    `json:"count"`
}

// MediaResponse carries the stored reference of an upload
type MediaResponse struct {
	PostID string `json:"post_id"`
	Ref    string `json:"ref"`
}

// CreateEventRequest represents the request to create a ticketed event
type CreateEventRequest struct {
	Name         string          `json:"name" binding:"required"`
	StartsAt     time.Time       `json:"starts_at" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	TotalTickets int             `json:"total_tickets" binding:"min=0"`
}

// PurchaseTicketRequest represents a ticket purchase. The price must match the
// event price; the key may also arrive in the Idempotency-Key header.
type PurchaseTicketRequest struct {
	Price          decimal.Decimal `json:"price"`
	IdempotencyKey string          `json:"idempotency_key" binding:"max=128"`
}

// RedeemTicketRequest carries the code presented at the door
type RedeemTicketRequest struct {
	Code string `json:"code" binding:"required"`
}

// ReservationRequest represents a table reservation request
type ReservationRequest struct {
	TableNumber     int    `json:"table_number"`
	GroupSize       int    `json:"group_size"`
	SpecialRequests string `json:"special_requests"`
}

// DecisionRequest carries the optional reason of an approval or rejection
type DecisionRequest struct {
	Reason string `json:"reason"`
}

// ReservationResponse is a reservation with its status history
type ReservationResponse struct {
	*domain.Reservation
	History []*domain.StatusTransition `json:"history"`
}

// ParseDate parses an optional calendar date, naming field in the error
func ParseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, domain.Validation(field, "%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}
