package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a dated club happening with a fixed ticket capacity
type Event struct {
	ID               string          `json:"id"`
	ClubID           string          `json:"club_id"`
	Name             string          `json:"name"`
	StartsAt         time.Time       `json:"starts_at"`
	Price            decimal.Decimal `json:"price"`
	TotalTickets     int             `json:"total_tickets"`
	AvailableTickets int             `json:"available_tickets"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsSoldOut reports whether no tickets remain
func (e *Event) IsSoldOut() bool {
	return e.AvailableTickets <= 0
}

// CheckCapacity reports whether 0 <= available <= total holds
func (e *Event) CheckCapacity() bool {
	return e.AvailableTickets >= 0 && e.AvailableTickets <= e.TotalTickets
}

// NewEventInput carries the fields of CreateEvent
type NewEventInput struct {
	Name         string
	StartsAt     time.Time
	Price        decimal.Decimal
	TotalTickets int
}

// Validate normalizes and checks the input
func (in *NewEventInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Validation("name", "event name is required")
	}
	if len(in.Name) > 255 {
		return Validation("name", "event name must not exceed 255 characters")
	}
	if in.StartsAt.IsZero() {
		return Validation("starts_at", "start time is required")
	}
	if in.Price.IsNegative() {
		return Validation("price", "price must not be negative")
	}
	if in.TotalTickets < 0 {
		return Validation("total_tickets", "total tickets must not be negative")
	}
	return nil
}
