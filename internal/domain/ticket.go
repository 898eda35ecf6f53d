package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is an admission credential redeemable once by code
type Ticket struct {
	ID             string          `json:"id"`
	EventID        string          `json:"event_id"`
	ClubID         string          `json:"club_id"`
	ProfileID      string          `json:"profile_id"`
	Code           string          `json:"code"`
	PricePaid      decimal.Decimal `json:"price_paid"`
	PurchasedAt    time.Time       `json:"purchased_at"`
	ValidUntil     time.Time       `json:"valid_until"`
	RedeemedAt     *time.Time      `json:"redeemed_at,omitempty"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty"`
}

// IsRedeemed reports whether the ticket was used
func (t *Ticket) IsRedeemed() bool {
	return t.RedeemedAt != nil
}

// CheckRedeemable validates a redemption attempt at now
func (t *Ticket) CheckRedeemable(now time.Time) error {
	if t.IsRedeemed() {
		return ErrAlreadyRedeemed
	}
	if now.After(t.ValidUntil) {
		return ErrTicketNotValidNow
	}
	return nil
}

// PurchaseRequest is the input of PurchaseTicket
type PurchaseRequest struct {
	EventID        string
	ProfileID      string
	Price          decimal.Decimal
	IdempotencyKey string
}

// Validate checks the purchase fields against the event
func (r *PurchaseRequest) Validate(ev *Event) error {
	if r.ProfileID == "" {
		return Validation("profile_id", "profile id is required")
	}
	if len(r.IdempotencyKey) > 128 {
		return Validation("idempotency_key", "idempotency key must not exceed 128 characters")
	}
	if !r.Price.Equal(ev.Price) {
		return ErrPriceMismatch
	}
	return nil
}
