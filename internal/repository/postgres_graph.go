package repository

import (
	"context"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id, user_id, username, role, feed_id, bio, profile_pic_url, cover_pic_url,
	date_of_birth, is_vip, created_at, updated_at`

// PostgresProfileRepository implements ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Username,
		&p.Role,
		&p.FeedID,
		&p.Bio,
		&p.ProfilePicURL,
		&p.CoverPicURL,
		&p.DateOfBirth,
		&p.IsVIP,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan profile", err)
	}
	return p, nil
}

func insertFeed(ctx context.Context, tx pgx.Tx, feed *domain.Feed) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO feeds (id, owner_kind, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		feed.ID, feed.Owner.Kind, feed.Owner.ID, feed.CreatedAt,
	)
	return err
}

// CreateWithFeed inserts the feed first since profiles.feed_id references it
func (r *PostgresProfileRepository) CreateWithFeed(ctx context.Context, profile *domain.Profile, feed *domain.Feed) error {
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := insertFeed(ctx, tx, feed); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (id, user_id, username, role, feed_id, bio, profile_pic_url, cover_pic_url,
				date_of_birth, is_vip, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			profile.ID,
			profile.UserID,
			profile.Username,
			profile.Role,
			profile.FeedID,
			profile.Bio,
			profile.ProfilePicURL,
			profile.CoverPicURL,
			profile.DateOfBirth,
			profile.IsVIP,
			profile.CreatedAt,
			profile.UpdatedAt,
		)
		return err
	})
	return storeError("create profile", err)
}

func (r *PostgresProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (r *PostgresProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

func (r *PostgresProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET username = $2, bio = $3, profile_pic_url = $4, cover_pic_url = $5,
			date_of_birth = $6, is_vip = $7, updated_at = $8
		WHERE id = $1`,
		profile.ID,
		profile.Username,
		profile.Bio,
		profile.ProfilePicURL,
		profile.CoverPicURL,
		profile.DateOfBirth,
		profile.IsVIP,
		profile.UpdatedAt,
	)
	if err != nil {
		return storeError("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("profile", "id", profile.ID)
	}
	return nil
}

func (r *PostgresProfileRepository) AddVIPSubscription(ctx context.Context, sub *domain.VIPSubscription) error {
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE profiles SET is_vip = TRUE, updated_at = NOW() WHERE id = $1`, sub.ProfileID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFound("profile", "profile_id", sub.ProfileID)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO vip_subscriptions (profile_id, start_date, end_date) VALUES ($1, $2, $3)`,
			sub.ProfileID, sub.StartDate, sub.EndDate,
		)
		return err
	})
	return storeError("add vip subscription", err)
}

// PostgresClubRepository implements ClubRepository using PostgreSQL
type PostgresClubRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresClubRepository(pool *pgxpool.Pool) *PostgresClubRepository {
	return &PostgresClubRepository{pool: pool}
}

func (r *PostgresClubRepository) CreateWithProfile(ctx context.Context, club *domain.Club, profile *domain.ClubProfile, feed *domain.Feed) error {
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO clubs (id, name, main_location, contact_number, description, image_url, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			club.ID,
			club.Name,
			club.MainLocation,
			club.ContactNumber,
			club.Description,
			club.ImageURL,
			club.CreatedBy,
			club.CreatedAt,
			club.UpdatedAt,
		); err != nil {
			return err
		}
		if err := insertFeed(ctx, tx, feed); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO club_profiles (id, club_id, feed_id, profile_pic, description, address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			profile.ID,
			profile.ClubID,
			profile.FeedID,
			profile.ProfilePic,
			profile.Description,
			profile.Address,
			profile.CreatedAt,
			profile.UpdatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO club_admins (club_id, user_id, created_at) VALUES ($1, $2, $3)`,
			club.ID, club.CreatedBy, club.CreatedAt,
		)
		return err
	})
	return storeError("create club", err)
}

func (r *PostgresClubRepository) GetByID(ctx context.Context, id string) (*domain.Club, error) {
	c := &domain.Club{}
	err := r.pool.QueryRow(ctx, `
		SELECT c.id, c.name, c.main_location, c.contact_number, c.description, c.image_url,
			c.created_by, cp.id, c.created_at, c.updated_at
		FROM clubs c
		JOIN club_profiles cp ON cp.club_id = c.id
		WHERE c.id = $1`, id,
	).Scan(
		&c.ID,
		&c.Name,
		&c.MainLocation,
		&c.ContactNumber,
		&c.Description,
		&c.ImageURL,
		&c.CreatedBy,
		&c.ProfileID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("get club", err)
	}
	return c, nil
}

func (r *PostgresClubRepository) GetProfile(ctx context.Context, clubProfileID string) (*domain.ClubProfile, error) {
	p := &domain.ClubProfile{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, club_id, feed_id, profile_pic, description, address, created_at, updated_at
		FROM club_profiles WHERE id = $1`, clubProfileID,
	).Scan(&p.ID, &p.ClubID, &p.FeedID, &p.ProfilePic, &p.Description, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("get club profile", err)
	}
	return p, nil
}

func (r *PostgresClubRepository) IsAdmin(ctx context.Context, clubID, userID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM club_admins WHERE club_id = $1 AND user_id = $2)`,
		clubID, userID,
	).Scan(&ok)
	if err != nil {
		return false, storeError("check club admin", err)
	}
	return ok, nil
}

func (r *PostgresClubRepository) AddAdmin(ctx context.Context, admin *domain.ClubAdmin) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO club_admins (club_id, user_id, created_at) VALUES ($1, $2, $3)`,
		admin.ClubID, admin.UserID, admin.CreatedAt,
	)
	return storeError("add club admin", err)
}

func (r *PostgresClubRepository) RemoveAdmin(ctx context.Context, clubID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM club_admins WHERE club_id = $1 AND user_id = $2`, clubID, userID)
	if err != nil {
		return storeError("remove club admin", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("club admin", "user_id", userID)
	}
	return nil
}

func (r *PostgresClubRepository) ListAdmins(ctx context.Context, clubID string) ([]*domain.ClubAdmin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT club_id, user_id, created_at FROM club_admins WHERE club_id = $1 ORDER BY created_at, user_id`,
		clubID,
	)
	if err != nil {
		return nil, storeError("list club admins", err)
	}
	defer rows.Close()

	var admins []*domain.ClubAdmin
	for rows.Next() {
		a := &domain.ClubAdmin{}
		if err := rows.Scan(&a.ClubID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, storeError("scan club admin", err)
		}
		admins = append(admins, a)
	}
	return admins, storeError("list club admins", rows.Err())
}

// PostgresFeedRepository implements FeedRepository using PostgreSQL
type PostgresFeedRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresFeedRepository(pool *pgxpool.Pool) *PostgresFeedRepository {
	return &PostgresFeedRepository{pool: pool}
}

func scanFeed(row pgx.Row) (*domain.Feed, error) {
	f := &domain.Feed{}
	if err := row.Scan(&f.ID, &f.Owner.Kind, &f.Owner.ID, &f.CreatedAt); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan feed", err)
	}
	return f, nil
}

func (r *PostgresFeedRepository) GetByID(ctx context.Context, id string) (*domain.Feed, error) {
	return scanFeed(r.pool.QueryRow(ctx, `SELECT id, owner_kind, owner_id, created_at FROM feeds WHERE id = $1`, id))
}

func (r *PostgresFeedRepository) GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Feed, error) {
	return scanFeed(r.pool.QueryRow(ctx,
		`SELECT id, owner_kind, owner_id, created_at FROM feeds WHERE owner_kind = $1 AND owner_id = $2`,
		owner.Kind, owner.ID,
	))
}

// PostgresFollowRepository implements FollowRepository using PostgreSQL
type PostgresFollowRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresFollowRepository(pool *pgxpool.Pool) *PostgresFollowRepository {
	return &PostgresFollowRepository{pool: pool}
}

func (r *PostgresFollowRepository) Create(ctx context.Context, edge *domain.FollowEdge) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, target_kind, target_id, created_at) VALUES ($1, $2, $3, $4)`,
		edge.FollowerID, edge.Target.Kind, edge.Target.ID, edge.CreatedAt,
	)
	return storeError("create follow", err)
}

func (r *PostgresFollowRepository) Delete(ctx context.Context, followerID string, target domain.Owner) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND target_kind = $2 AND target_id = $3`,
		followerID, target.Kind, target.ID,
	)
	if err != nil {
		return storeError("delete follow", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("follow", "target", target.String())
	}
	return nil
}

func (r *PostgresFollowRepository) ListFollowers(ctx context.Context, target domain.Owner, afterFollowerID string, limit int) ([]*domain.FollowEdge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT follower_id, target_kind, target_id, created_at
		FROM follows
		WHERE target_kind = $1 AND target_id = $2 AND ($3::uuid IS NULL OR follower_id > $3::uuid)
		ORDER BY follower_id
		LIMIT $4`,
		target.Kind, target.ID, nullable(afterFollowerID), limit,
	)
	if err != nil {
		return nil, storeError("list followers", err)
	}
	return collectEdges(rows)
}

func (r *PostgresFollowRepository) ListFollowing(ctx context.Context, followerID string, after domain.Owner, limit int) ([]*domain.FollowEdge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT follower_id, target_kind, target_id, created_at
		FROM follows
		WHERE follower_id = $1 AND ($2::text IS NULL OR (target_kind, target_id) > ($2::text, $3::uuid))
		ORDER BY target_kind, target_id
		LIMIT $4`,
		followerID, nullable(string(after.Kind)), nullable(after.ID), limit,
	)
	if err != nil {
		return nil, storeError("list following", err)
	}
	return collectEdges(rows)
}

func collectEdges(rows pgx.Rows) ([]*domain.FollowEdge, error) {
	defer rows.Close()
	var edges []*domain.FollowEdge
	for rows.Next() {
		e := &domain.FollowEdge{}
		if err := rows.Scan(&e.FollowerID, &e.Target.Kind, &e.Target.ID, &e.CreatedAt); err != nil {
			return nil, storeError("scan follow", err)
		}
		edges = append(edges, e)
	}
	return edges, storeError("list follows", rows.Err())
}

// nullable turns an empty keyset cursor into SQL NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
