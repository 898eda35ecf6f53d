package service

import (
	"context"
	"strings"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// reservationService implements the ReservationService interface
type reservationService struct {
	store     *repository.Store
	auth      authorizer
	publisher events.Publisher
}

// NewReservationService creates a new ReservationService
func NewReservationService(store *repository.Store, publisher events.Publisher) ReservationService {
	return &reservationService{
		store:     store,
		auth:      authorizer{store: store},
		publisher: publisher,
	}
}

// CreateReservation books a table. It never touches ticket capacity.
func (s *reservationService) CreateReservation(ctx context.Context, profileID, eventID string, req domain.ReservationRequest) (*domain.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.auth.profile(ctx, profileID, "profile_id"); err != nil {
		return nil, err
	}
	ev, err := s.store.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, domain.NotFound("event", "event_id", eventID)
	}

	ts := now()
	res := &domain.Reservation{
		ID:              uuid.New().String(),
		EventID:         ev.ID,
		ClubID:          ev.ClubID,
		ProfileID:       profileID,
		TableNumber:     req.TableNumber,
		GroupSize:       req.GroupSize,
		SpecialRequests: req.SpecialRequests,
		Status:          domain.ReservationPending,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := s.store.Reservations.Create(ctx, res); err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "reservation created", zap.String("reservation_id", res.ID), zap.String("event_id", ev.ID))
	return res, nil
}

// GetReservation retrieves a reservation by ID
func (s *reservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.store.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domain.NotFound("reservation", "id", id)
	}
	return res, nil
}

// ListReservations lets club admins find the reservations they must decide on
func (s *reservationService) ListReservations(ctx context.Context, actorID, clubID string, status domain.ReservationStatus, page PageRequest) ([]*domain.Reservation, error) {
	if status != "" && !status.IsValid() {
		return nil, domain.Validation("status", "unknown reservation status %q", status)
	}
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.auth.requireClubAdmin(ctx, clubID, actorID); err != nil {
		return nil, err
	}
	return s.store.Reservations.ListByClub(ctx, clubID, status, page.After, page.Limit)
}

func (s *reservationService) ApproveReservation(ctx context.Context, actorID, reservationID, reason string) (*domain.Reservation, error) {
	return s.decide(ctx, actorID, reservationID, domain.ReservationApproved, reason)
}

func (s *reservationService) RejectReservation(ctx context.Context, actorID, reservationID, reason string) (*domain.Reservation, error) {
	return s.decide(ctx, actorID, reservationID, domain.ReservationRejected, reason)
}

// decide moves a pending reservation to a terminal status. The store write is a
// compare-and-set on the status read here, so two admins deciding at once
// cannot both win.
func (s *reservationService) decide(ctx context.Context, actorID, reservationID string, target domain.ReservationStatus, reason string) (res *domain.Reservation, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.decide", trace.WithAttributes(
		telemetry.OutcomeAttr(string(target)),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	res, err = s.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.auth.requireClubAdmin(ctx, res.ClubID, actorID); err != nil {
		return nil, err
	}
	if err := res.Transition(target); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return nil, domain.Validation("reason", "reason must not exceed 500 characters")
	}

	ts := now()
	tr := &domain.StatusTransition{
		ID:            uuid.New().String(),
		ReservationID: res.ID,
		From:          res.Status,
		To:            target,
		ActorID:       actorID,
		Reason:        reason,
		At:            ts,
	}
	res.Status = target
	res.DecidedBy = &actorID
	res.UpdatedAt = ts
	if err := s.store.Reservations.UpdateStatus(ctx, res, tr); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, events.Event{
		Type:       events.TypeReservationDecided,
		Key:        res.EventID,
		OccurredAt: ts,
		Data: events.ReservationDecided{
			ReservationID: res.ID,
			EventID:       res.EventID,
			ClubID:        res.ClubID,
			Status:        target,
			ActorID:       actorID,
			Reason:        reason,
		},
	})
	logger.InfoCtx(ctx, "reservation decided",
		zap.String("reservation_id", res.ID),
		zap.String("status", string(target)),
		zap.String("actor_id", actorID),
	)
	return res, nil
}

// History returns the status transitions of a reservation, oldest first
func (s *reservationService) History(ctx context.Context, reservationID string) ([]*domain.StatusTransition, error) {
	if _, err := s.GetReservation(ctx, reservationID); err != nil {
		return nil, err
	}
	return s.store.Reservations.ListTransitions(ctx, reservationID)
}
