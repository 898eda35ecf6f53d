package domain

import (
	"strings"
	"time"
)

// ReservationStatus represents the state of a table reservation
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "pending"
	ReservationApproved ReservationStatus = "approved"
	ReservationRejected ReservationStatus = "rejected"
)

// reservationTransitions defines allowed status transitions
// Key is current status, value is list of allowed next statuses
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:  {ReservationApproved, ReservationRejected},
	ReservationApproved: {}, // Terminal
	ReservationRejected: {}, // Terminal
}

// IsValid returns true for a known status
func (s ReservationStatus) IsValid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

// IsTerminal returns true once a decision has been made
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationApproved || s == ReservationRejected
}

// CanTransitionTo returns true if moving to target is allowed
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Reservation is a table booking for an event. It does not consume ticket capacity.
type Reservation struct {
	ID              string            `json:"id"`
	EventID         string            `json:"event_id"`
	ClubID          string            `json:"club_id"`
	ProfileID       string            `json:"profile_id"`
	TableNumber     int               `json:"table_number"`
	GroupSize       int               `json:"group_size"`
	SpecialRequests string            `json:"special_requests,omitempty"`
	Status          ReservationStatus `json:"status"`
	DecidedBy       *string           `json:"decided_by,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// StatusTransition is one append-only history record
type StatusTransition struct {
	ID            string            `json:"id"`
	ReservationID string            `json:"reservation_id"`
	From          ReservationStatus `json:"from"`
	To            ReservationStatus `json:"to"`
	ActorID       string            `json:"actor_id"`
	Reason        string            `json:"reason,omitempty"`
	At            time.Time         `json:"at"`
}

// Transition validates moving r to target. The caller persists the change with
// a compare-and-set on the current status.
func (r *Reservation) Transition(target ReservationStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return InvalidTransition(string(r.Status), string(target))
	}
	return nil
}

// ReservationRequest holds the guest supplied fields
type ReservationRequest struct {
	TableNumber     int
	GroupSize       int
	SpecialRequests string
}

// Validate checks the request ranges
func (r *ReservationRequest) Validate() error {
	if r.TableNumber < 1 {
		return Validation("table_number", "table number must be positive")
	}
	if r.GroupSize < 1 || r.GroupSize > 50 {
		return Validation("group_size", "group size must be between 1 and 50")
	}
	r.SpecialRequests = strings.TrimSpace(r.SpecialRequests)
	if len(r.SpecialRequests) > 1000 {
		return Validation("special_requests", "special requests must not exceed 1000 characters")
	}
	return nil
}
