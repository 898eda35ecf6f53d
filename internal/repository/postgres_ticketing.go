package repository

import (
	"context"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, club_id, name, starts_at, price, total_tickets, available_tickets,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID,
		event.ClubID,
		event.Name,
		event.StartsAt,
		event.Price,
		event.TotalTickets,
		event.AvailableTickets,
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return storeError("create event", err)
}

const eventColumns = `id, club_id, name, starts_at, price, total_tickets, available_tickets,
	created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID,
		&e.ClubID,
		&e.Name,
		&e.StartsAt,
		&e.Price,
		&e.TotalTickets,
		&e.AvailableTickets,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan event", err)
	}
	return e, nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (r *PostgresEventRepository) ListByClub(ctx context.Context, clubID, afterID string, limit int) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE club_id = $1 AND ($2::uuid IS NULL OR id > $2::uuid)
		ORDER BY id
		LIMIT $3`,
		clubID, nullable(afterID), limit,
	)
	if err != nil {
		return nil, storeError("list events", err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, storeError("list events", rows.Err())
}

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTicketRepository(pool *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{pool: pool}
}

// Purchase runs the conditional decrement and the ticket insert in one
// transaction. The UPDATE's row lock queues concurrent buyers and each one
// re-evaluates available_tickets > 0 against the committed row, so a hot event
// never fails with a serialization error. The capacity CHECK is the backstop.
func (r *PostgresTicketRepository) Purchase(ctx context.Context, t *domain.Ticket) error {
	err := database.InTx(ctx, r.pool, database.ReadCommitted, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE events
			SET available_tickets = available_tickets - 1, updated_at = NOW()
			WHERE id = $1 AND available_tickets > 0`,
			t.EventID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, t.EventID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.NotFound("event", "event_id", t.EventID)
			}
			return domain.ErrSoldOut
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tickets (id, event_id, club_id, profile_id, code, price_paid, purchased_at,
				valid_until, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID,
			t.EventID,
			t.ClubID,
			t.ProfileID,
			t.Code,
			t.PricePaid,
			t.PurchasedAt,
			t.ValidUntil,
			t.IdempotencyKey,
		)
		return err
	})
	return storeError("purchase ticket", err)
}

const ticketColumns = `id, event_id, club_id, profile_id, code, price_paid, purchased_at, valid_until,
	redeemed_at, idempotency_key`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.ClubID,
		&t.ProfileID,
		&t.Code,
		&t.PricePaid,
		&t.PurchasedAt,
		&t.ValidUntil,
		&t.RedeemedAt,
		&t.IdempotencyKey,
	)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan ticket", err)
	}
	return t, nil
}

func (r *PostgresTicketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = $1`, code))
}

func (r *PostgresTicketRepository) GetByIdempotencyKey(ctx context.Context, profileID, key string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE profile_id = $1 AND idempotency_key = $2`,
		profileID, key,
	))
}

func (r *PostgresTicketRepository) ListByProfile(ctx context.Context, profileID, afterID string, limit int) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE profile_id = $1 AND ($2::uuid IS NULL OR id > $2::uuid)
		ORDER BY id
		LIMIT $3`,
		profileID, nullable(afterID), limit,
	)
	if err != nil {
		return nil, storeError("list tickets", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0, limit)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, storeError("list tickets", rows.Err())
}

func (r *PostgresTicketRepository) MarkRedeemed(ctx context.Context, ticketID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tickets SET redeemed_at = $2 WHERE id = $1 AND redeemed_at IS NULL`,
		ticketID, at,
	)
	if err != nil {
		return storeError("redeem ticket", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyRedeemed
	}
	return nil
}

// PostgresReservationRepository implements ReservationRepository using PostgreSQL
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

func (r *PostgresReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reservations (id, event_id, club_id, profile_id, table_number, group_size,
			special_requests, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ID,
		res.EventID,
		res.ClubID,
		res.ProfileID,
		res.TableNumber,
		res.GroupSize,
		res.SpecialRequests,
		res.Status,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return storeError("create reservation", err)
}

const reservationColumns = `id, event_id, club_id, profile_id, table_number, group_size, special_requests,
	status, decided_by, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	err := row.Scan(
		&res.ID,
		&res.EventID,
		&res.ClubID,
		&res.ProfileID,
		&res.TableNumber,
		&res.GroupSize,
		&res.SpecialRequests,
		&res.Status,
		&res.DecidedBy,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan reservation", err)
	}
	return res, nil
}

func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return scanReservation(r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
}

func (r *PostgresReservationRepository) ListByClub(ctx context.Context, clubID string, status domain.ReservationStatus, afterID string, limit int) ([]*domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE club_id = $1
			AND ($2::text IS NULL OR status = $2::text)
			AND ($3::uuid IS NULL OR id > $3::uuid)
		ORDER BY id
		LIMIT $4`,
		clubID, nullable(string(status)), nullable(afterID), limit,
	)
	if err != nil {
		return nil, storeError("list reservations", err)
	}
	defer rows.Close()

	out := make([]*domain.Reservation, 0, limit)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, storeError("list reservations", rows.Err())
}

// UpdateStatus is a compare-and-set on status; losing the race surfaces as an
// invalid transition from whatever status won
func (r *PostgresReservationRepository) UpdateStatus(ctx context.Context, res *domain.Reservation, tr *domain.StatusTransition) error {
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE reservations SET status = $2, decided_by = $3, updated_at = $4
			WHERE id = $1 AND status = $5`,
			res.ID, tr.To, res.DecidedBy, res.UpdatedAt, tr.From,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var current domain.ReservationStatus
			err := tx.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1`, res.ID).Scan(&current)
			if noRow(err) {
				return domain.NotFound("reservation", "id", res.ID)
			}
			if err != nil {
				return err
			}
			return domain.InvalidTransition(string(current), string(tr.To))
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO reservation_transitions (id, reservation_id, from_status, to_status, actor_id, reason, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			tr.ID, tr.ReservationID, tr.From, tr.To, tr.ActorID, tr.Reason, tr.At,
		)
		return err
	})
	return storeError("update reservation status", err)
}

func (r *PostgresReservationRepository) ListTransitions(ctx context.Context, reservationID string) ([]*domain.StatusTransition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, reservation_id, from_status, to_status, actor_id, reason, at
		FROM reservation_transitions WHERE reservation_id = $1 ORDER BY at, id`,
		reservationID,
	)
	if err != nil {
		return nil, storeError("list transitions", err)
	}
	defer rows.Close()

	var out []*domain.StatusTransition
	for rows.Next() {
		t := &domain.StatusTransition{}
		if err := rows.Scan(&t.ID, &t.ReservationID, &t.From, &t.To, &t.ActorID, &t.Reason, &t.At); err != nil {
			return nil, storeError("scan transition", err)
		}
		out = append(out, t)
	}
	return out, storeError("list transitions", rows.Err())
}
