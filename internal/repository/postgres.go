package repository

import (
	"context"
	"errors"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStore returns a Store backed by pool
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Profiles:     NewPostgresProfileRepository(pool),
		Clubs:        NewPostgresClubRepository(pool),
		Feeds:        NewPostgresFeedRepository(pool),
		Follows:      NewPostgresFollowRepository(pool),
		Posts:        NewPostgresPostRepository(pool),
		Engagement:   NewPostgresEngagementRepository(pool),
		Events:       NewPostgresEventRepository(pool),
		Tickets:      NewPostgresTicketRepository(pool),
		Reservations: NewPostgresReservationRepository(pool),
	}
}

// constraintErrors maps schema constraint names onto domain errors
var constraintErrors = map[string]error{
	"profiles_user_id_key":    domain.ErrProfileExists,
	"clubs_name_lower_key":    domain.ErrClubNameTaken,
	"club_admins_pkey":        domain.ErrAdminExists,
	"follows_pkey":            domain.ErrDuplicateEdge,
	"follows_no_self":         domain.ErrSelfFollow,
	"likes_pkey":              domain.ErrDuplicateLike,
	"post_tags_pkey":          domain.ErrTagExists,
	"tags_name_check":         errTagNotNormalized,
	"events_capacity_check":   domain.ErrSoldOut,
	"tickets_code_key":        ErrCodeCollision,
	"tickets_idempotency_key": ErrIdempotencyReplay,
}

// foreignKeyFields names the input field behind a dangling reference
var foreignKeyFields = map[string]string{
	"posts_original_post_id_fkey":  "original_post_id",
	"posts_feed_id_fkey":           "feed_id",
	"follows_follower_id_fkey":     "follower_id",
	"likes_post_id_fkey":           "post_id",
	"likes_profile_id_fkey":        "profile_id",
	"comments_post_id_fkey":        "post_id",
	"comments_parent_id_fkey":      "parent_id",
	"events_club_id_fkey":          "club_id",
	"tickets_profile_id_fkey":      "profile_id",
	"reservations_event_id_fkey":   "event_id",
	"reservations_profile_id_fkey": "profile_id",
	"club_admins_club_id_fkey":     "club_id",
}

// storeError translates a pgx error into the domain taxonomy. Domain errors and
// context errors pass through untouched.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrTxConflict) || errors.Is(err, ErrCodeCollision) || errors.Is(err, ErrIdempotencyReplay) {
		return err
	}
	if database.IsRetryable(err) {
		return ErrTxConflict
	}
	constraint := database.ConstraintName(err)
	if mapped, ok := constraintErrors[constraint]; ok {
		return mapped
	}
	if database.PgCode(err) == database.CodeInvalidTextRepresentation {
		// a malformed id names no record
		return &domain.Error{Kind: domain.KindNotFound, Code: domain.CodeNotFound, Message: "malformed identifier", Err: err}
	}
	if database.PgCode(err) == database.CodeForeignKeyViolation {
		field := foreignKeyFields[constraint]
		return &domain.Error{Kind: domain.KindNotFound, Code: domain.CodeNotFound, Field: field, Message: "referenced record does not exist", Err: err}
	}
	return domain.Infrastructure(op, err)
}

// noRow reports a lookup that cannot match: no row, or an id that is not a UUID
func noRow(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || database.PgCode(err) == database.CodeInvalidTextRepresentation
}
