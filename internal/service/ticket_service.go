package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TicketServiceConfig tunes the purchase path
type TicketServiceConfig struct {
	MaxPurchaseRetries int
	RetryBackoff       time.Duration // first delay between attempts
	ValidityWindow     time.Duration // added to the event start to get valid_until
	CodeLength         int           // random bytes per redemption code
}

func (c TicketServiceConfig) withDefaults() TicketServiceConfig {
	if c.MaxPurchaseRetries < 1 {
		c.MaxPurchaseRetries = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 10 * time.Millisecond
	}
	if c.ValidityWindow <= 0 {
		c.ValidityWindow = 12 * time.Hour
	}
	if c.CodeLength < 4 {
		c.CodeLength = 8
	}
	return c
}

// ticketService implements the TicketService interface
type ticketService struct {
	store     *repository.Store
	auth      authorizer
	cfg       TicketServiceConfig
	soldOut   SoldOutCache
	memo      PurchaseMemo
	publisher events.Publisher
	metrics   *telemetry.Metrics
}

// NewTicketService creates a new TicketService. soldOut and memo are optional.
func NewTicketService(
	store *repository.Store,
	cfg TicketServiceConfig,
	soldOut SoldOutCache,
	memo PurchaseMemo,
	publisher events.Publisher,
	metrics *telemetry.Metrics,
) TicketService {
	return &ticketService{
		store:     store,
		auth:      authorizer{store: store},
		cfg:       cfg.withDefaults(),
		soldOut:   soldOut,
		memo:      memo,
		publisher: publisher,
		metrics:   metrics,
	}
}

// CreateEvent opens an event with available = total
func (s *ticketService) CreateEvent(ctx context.Context, actorID, clubID string, in domain.NewEventInput) (ev *domain.Event, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.create_event", trace.WithAttributes(telemetry.ClubIDAttr(clubID)))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.auth.requireClubAdmin(ctx, clubID, actorID); err != nil {
		return nil, err
	}

	ts := now()
	ev = &domain.Event{
		ID:               uuid.New().String(),
		ClubID:           clubID,
		Name:             in.Name,
		StartsAt:         in.StartsAt.UTC(),
		Price:            in.Price,
		TotalTickets:     in.TotalTickets,
		AvailableTickets: in.TotalTickets,
		CreatedBy:        actorID,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	if err := s.store.Events.Create(ctx, ev); err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "event created",
		zap.String("event_id", ev.ID),
		zap.String("club_id", clubID),
		zap.Int("total_tickets", ev.TotalTickets),
	)
	return ev, nil
}

// GetEvent retrieves an event by ID
func (s *ticketService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ev, err := s.store.Events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, domain.NotFound("event", "event_id", id)
	}
	return ev, nil
}

// ListEvents pages the events of an existing club
func (s *ticketService) ListEvents(ctx context.Context, clubID string, page PageRequest) ([]*domain.Event, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}
	club, err := s.store.Clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, domain.NotFound("club", "club_id", clubID)
	}
	return s.store.Events.ListByClub(ctx, clubID, page.After, page.Limit)
}

// ListTickets pages the tickets a profile bought
func (s *ticketService) ListTickets(ctx context.Context, profileID string, page PageRequest) ([]*domain.Ticket, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}
	return s.store.Tickets.ListByProfile(ctx, profileID, page.After, page.Limit)
}

// PurchaseTicket decrements capacity and issues a ticket in one store unit.
// Transaction conflicts and code collisions are retried with a fresh code
// after a jittered exponential delay.
func (s *ticketService) PurchaseTicket(ctx context.Context, req domain.PurchaseRequest) (ticket *domain.Ticket, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.purchase", trace.WithAttributes(
		telemetry.EventIDAttr(req.EventID),
		telemetry.ProfileIDAttr(req.ProfileID),
	))
	start := time.Now()
	defer func() {
		s.metrics.PurchaseLatency.Since(ctx, start, telemetry.OutcomeAttr(outcome(err)))
		telemetry.EndSpan(span, err)
	}()

	ev, err := s.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(ev); err != nil {
		return nil, err
	}
	if _, err := s.auth.profile(ctx, req.ProfileID, "profile_id"); err != nil {
		return nil, err
	}

	var key *string
	if req.IdempotencyKey != "" {
		k := req.IdempotencyKey
		key = &k
		if prior, err := s.replay(ctx, req.ProfileID, k); err != nil || prior != nil {
			return prior, err
		}
	}

	if s.flaggedSoldOut(ctx, ev.ID) {
		// the memo may have missed a ticket this key already produced
		if prior := s.issuedFor(ctx, req.ProfileID, key); prior != nil {
			return prior, nil
		}
		return nil, s.rejectSoldOut(ctx, ev.ID)
	}

	attempts := 0
	ticket, err = backoff.Retry(ctx, func() (*domain.Ticket, error) {
		attempts++
		t, err := s.attemptPurchase(ctx, ev, req.ProfileID, key)
		if retryable(err) {
			if attempts < s.cfg.MaxPurchaseRetries {
				s.metrics.PurchaseRetries.Inc(ctx, telemetry.EventIDAttr(ev.ID))
				logger.DebugCtx(ctx, "retrying ticket purchase", zap.String("event_id", ev.ID), zap.Int("attempt", attempts), zap.Error(err))
			}
			return nil, err
		}
		return t, backoff.Permanent(err)
	},
		backoff.WithBackOff(s.retryBackOff()),
		backoff.WithMaxTries(uint(s.cfg.MaxPurchaseRetries)),
	)
	if retryable(err) {
		logger.ErrorCtx(ctx, "ticket purchase retries exhausted",
			zap.String("event_id", ev.ID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, domain.Infrastructure("purchase ticket", fmt.Errorf("gave up after %d attempts: %w", attempts, err))
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// attemptPurchase runs one store purchase with a freshly generated code
func (s *ticketService) attemptPurchase(ctx context.Context, ev *domain.Event, profileID string, key *string) (*domain.Ticket, error) {
	ticket, err := s.newTicket(ev, profileID, key)
	if err != nil {
		return nil, domain.Infrastructure("generate ticket code", err)
	}

	err = s.store.Tickets.Purchase(ctx, ticket)
	switch {
	case err == nil:
		s.issued(ctx, ev, ticket)
		return ticket, nil

	case errors.Is(err, domain.ErrSoldOut):
		if s.soldOut != nil {
			if ferr := s.soldOut.MarkSoldOut(ctx, ev.ID); ferr != nil {
				logger.WarnCtx(ctx, "failed to set sold out flag", zap.String("event_id", ev.ID), zap.Error(ferr))
			}
		}
		if prior := s.issuedFor(ctx, profileID, key); prior != nil {
			return prior, nil
		}
		return nil, s.rejectSoldOut(ctx, ev.ID)

	case errors.Is(err, repository.ErrIdempotencyReplay):
		prior, lerr := s.store.Tickets.GetByIdempotencyKey(ctx, profileID, *key)
		if lerr != nil {
			return nil, lerr
		}
		if prior == nil {
			return nil, domain.Infrastructure("purchase ticket", err)
		}
		return prior, nil
	}
	return nil, err
}

func retryable(err error) bool {
	return errors.Is(err, repository.ErrTxConflict) || errors.Is(err, repository.ErrCodeCollision)
}

func (s *ticketService) retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryBackoff
	b.MaxInterval = 16 * s.cfg.RetryBackoff
	return b
}

// replay returns the ticket already issued for (profile, key), if any.
// A memo miss skips the store; the sold-out paths look again before rejecting.
func (s *ticketService) replay(ctx context.Context, profileID, key string) (*domain.Ticket, error) {
	if s.memo != nil {
		id, err := s.memo.Lookup(ctx, profileID, key)
		if err != nil {
			logger.WarnCtx(ctx, "purchase memo lookup failed", zap.Error(err))
		} else if id == "" {
			return nil, nil
		}
	}
	return s.store.Tickets.GetByIdempotencyKey(ctx, profileID, key)
}

// issuedFor looks up the ticket key already produced. Lookup failures count as none.
func (s *ticketService) issuedFor(ctx context.Context, profileID string, key *string) *domain.Ticket {
	if key == nil {
		return nil
	}
	prior, err := s.store.Tickets.GetByIdempotencyKey(ctx, profileID, *key)
	if err != nil {
		logger.WarnCtx(ctx, "idempotency lookup failed", zap.String("profile_id", profileID), zap.Error(err))
		return nil
	}
	return prior
}

func (s *ticketService) flaggedSoldOut(ctx context.Context, eventID string) bool {
	if s.soldOut == nil {
		return false
	}
	flagged, err := s.soldOut.IsSoldOut(ctx, eventID)
	if err != nil {
		logger.WarnCtx(ctx, "sold out flag check failed", zap.String("event_id", eventID), zap.Error(err))
		return false
	}
	return flagged
}

func (s *ticketService) rejectSoldOut(ctx context.Context, eventID string) error {
	s.metrics.SoldOutRejections.Inc(ctx, telemetry.EventIDAttr(eventID))
	logger.DebugCtx(ctx, "purchase rejected, event sold out", zap.String("event_id", eventID))
	return domain.ErrSoldOut
}

func (s *ticketService) newTicket(ev *domain.Event, profileID string, key *string) (*domain.Ticket, error) {
	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, err
	}
	return &domain.Ticket{
		ID:             uuid.New().String(),
		EventID:        ev.ID,
		ClubID:         ev.ClubID,
		ProfileID:      profileID,
		Code:           code,
		PricePaid:      ev.Price,
		PurchasedAt:    now(),
		ValidUntil:     ev.StartsAt.Add(s.cfg.ValidityWindow),
		IdempotencyKey: key,
	}, nil
}

func (s *ticketService) issued(ctx context.Context, ev *domain.Event, t *domain.Ticket) {
	s.metrics.TicketsPurchased.Inc(ctx, telemetry.EventIDAttr(ev.ID), telemetry.ClubIDAttr(ev.ClubID))
	if s.memo != nil && t.IdempotencyKey != nil {
		if _, err := s.memo.Remember(ctx, t.ProfileID, *t.IdempotencyKey, t.ID); err != nil {
			logger.WarnCtx(ctx, "failed to remember purchase key", zap.String("ticket_id", t.ID), zap.Error(err))
		}
	}
	publish(ctx, s.publisher, events.Event{
		Type:       events.TypeTicketPurchased,
		Key:        ev.ID,
		OccurredAt: t.PurchasedAt,
		Data: events.TicketPurchased{
			TicketID:  t.ID,
			EventID:   t.EventID,
			ClubID:    t.ClubID,
			ProfileID: t.ProfileID,
			PricePaid: t.PricePaid.StringFixed(2),
		},
	})
	logger.InfoCtx(ctx, "ticket issued", zap.String("ticket_id", t.ID), zap.String("event_id", ev.ID))
}

// RedeemTicket marks a ticket used. Only admins of the issuing club may redeem.
func (s *ticketService) RedeemTicket(ctx context.Context, actorID, code string) (t *domain.Ticket, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.redeem")
	defer func() { telemetry.EndSpan(span, err) }()

	if code == "" {
		return nil, domain.Validation("code", "ticket code is required")
	}
	t, err = s.store.Tickets.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NotFound("ticket", "code", code)
	}
	if _, err := s.auth.requireClubAdmin(ctx, t.ClubID, actorID); err != nil {
		return nil, err
	}
	at := now()
	if err := t.CheckRedeemable(at); err != nil {
		return nil, err
	}
	if err := s.store.Tickets.MarkRedeemed(ctx, t.ID, at); err != nil {
		return nil, err
	}
	t.RedeemedAt = &at
	logger.InfoCtx(ctx, "ticket redeemed", zap.String("ticket_id", t.ID), zap.String("actor_id", actorID))
	return t, nil
}

// outcome labels a purchase result for metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return "issued"
	case errors.Is(err, domain.ErrSoldOut):
		return "sold_out"
	default:
		return domain.KindOf(err).String()
	}
}
