package repository

import (
	"context"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `p.id, p.feed_id, p.owner_kind, p.owner_id, p.content_type, p.text, p.media,
	p.original_post_id, p.created_at, p.edited_at,
	COALESCE((SELECT array_agg(t.name ORDER BY t.name)
		FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = p.id), '{}') AS tags`

// PostgresPostRepository implements PostRepository using PostgreSQL
type PostgresPostRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPostRepository(pool *pgxpool.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	p := &domain.Post{}
	err := row.Scan(
		&p.ID,
		&p.FeedID,
		&p.Owner.Kind,
		&p.Owner.ID,
		&p.ContentType,
		&p.Text,
		&p.Media,
		&p.OriginalPostID,
		&p.CreatedAt,
		&p.EditedAt,
		&p.Tags,
	)
	if err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan post", err)
	}
	return p, nil
}

// Create inserts the post and its tag links in one transaction
func (r *PostgresPostRepository) Create(ctx context.Context, post *domain.Post) error {
	media := post.Media
	if media == nil {
		media = []string{}
	}
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO posts (id, feed_id, owner_kind, owner_id, content_type, text, media, original_post_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			post.ID,
			post.FeedID,
			post.Owner.Kind,
			post.Owner.ID,
			post.ContentType,
			post.Text,
			media,
			post.OriginalPostID,
			post.CreatedAt,
		)
		if err != nil {
			return err
		}
		for _, name := range post.Tags {
			tag, err := upsertTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				post.ID, tag.ID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return storeError("create post", err)
}

// upsertTag returns the tag row for name, creating it if needed
func upsertTag(ctx context.Context, tx pgx.Tx, name string) (*domain.Tag, error) {
	tag := &domain.Tag{}
	err := tx.QueryRow(ctx, `
		INSERT INTO tags (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`,
		uuid.New().String(), name,
	).Scan(&tag.ID, &tag.Name)
	return tag, err
}

func (r *PostgresPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id))
}

func (r *PostgresPostRepository) UpdateContent(ctx context.Context, post *domain.Post) error {
	media := post.Media
	if media == nil {
		media = []string{}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET text = $2, media = $3, edited_at = $4 WHERE id = $1`,
		post.ID, post.Text, media, post.EditedAt,
	)
	if err != nil {
		return storeError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("post", "id", post.ID)
	}
	return nil
}

func (r *PostgresPostRepository) AppendMedia(ctx context.Context, postID, ref string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE posts SET media = array_append(media, $2) WHERE id = $1`, postID, ref)
	if err != nil {
		return storeError("append media", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("post", "id", postID)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for likes, comments and tag links
func (r *PostgresPostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return storeError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("post", "id", id)
	}
	return nil
}

func (r *PostgresPostRepository) ListByFeed(ctx context.Context, feedID string, before domain.FeedPosition, limit int) ([]*domain.Post, error) {
	var ts, id any
	if !before.IsZero() {
		ts, id = before.CreatedAt, before.ID
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		WHERE p.feed_id = $1
			AND ($2::timestamptz IS NULL OR (p.created_at, p.id) < ($2::timestamptz, $3::uuid))
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $4`,
		feedID, ts, id, limit,
	)
	if err != nil {
		return nil, storeError("list feed posts", err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, storeError("list feed posts", rows.Err())
}

// AttachTag upserts the tag by name so concurrent attaches of a new tag share one row
func (r *PostgresPostRepository) AttachTag(ctx context.Context, postID, name string) (*domain.Tag, error) {
	var tag *domain.Tag
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		if tag, err = upsertTag(ctx, tx, name); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)`, postID, tag.ID)
		return err
	})
	if err != nil {
		if database.ConstraintName(err) == "post_tags_post_id_fkey" {
			return nil, domain.NotFound("post", "id", postID)
		}
		return nil, storeError("attach tag", err)
	}
	return tag, nil
}

func (r *PostgresPostRepository) DetachTag(ctx context.Context, postID, name string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM post_tags pt USING tags t
		WHERE pt.tag_id = t.id AND pt.post_id = $1 AND t.name = $2`,
		postID, name,
	)
	if err != nil {
		return storeError("detach tag", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("tag", "tag", name)
	}
	return nil
}

// PostgresEngagementRepository implements EngagementRepository using PostgreSQL
type PostgresEngagementRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEngagementRepository(pool *pgxpool.Pool) *PostgresEngagementRepository {
	return &PostgresEngagementRepository{pool: pool}
}

func (r *PostgresEngagementRepository) CreateLike(ctx context.Context, like *domain.Like) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO likes (profile_id, post_id, created_at) VALUES ($1, $2, $3)`,
		like.ProfileID, like.PostID, like.CreatedAt,
	)
	return storeError("create like", err)
}

func (r *PostgresEngagementRepository) DeleteLike(ctx context.Context, profileID, postID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM likes WHERE profile_id = $1 AND post_id = $2`, profileID, postID)
	if err != nil {
		return storeError("delete like", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("like", "post_id", postID)
	}
	return nil
}

func (r *PostgresEngagementRepository) CountLikes(ctx context.Context, postID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, storeError("count likes", err)
	}
	return n, nil
}

// CreateComment re-checks the parent inside the insert transaction
func (r *PostgresEngagementRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	err := database.InTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if comment.ParentID != nil {
			var parentPost string
			err := tx.QueryRow(ctx, `SELECT post_id FROM comments WHERE id = $1`, *comment.ParentID).Scan(&parentPost)
			if noRow(err) || (err == nil && parentPost != comment.PostID) {
				return domain.ErrInvalidParent
			}
			if err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO comments (id, post_id, profile_id, text, parent_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			comment.ID, comment.PostID, comment.ProfileID, comment.Text, comment.ParentID, comment.CreatedAt,
		)
		return err
	})
	return storeError("create comment", err)
}

const commentColumns = `id, post_id, profile_id, text, parent_id, created_at`

func scanComment(row pgx.Row) (*domain.Comment, error) {
	c := &domain.Comment{}
	if err := row.Scan(&c.ID, &c.PostID, &c.ProfileID, &c.Text, &c.ParentID, &c.CreatedAt); err != nil {
		if noRow(err) {
			return nil, nil
		}
		return nil, storeError("scan comment", err)
	}
	return c, nil
}

func (r *PostgresEngagementRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	return scanComment(r.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
}

func (r *PostgresEngagementRepository) ListComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created_at, id`,
		postID,
	)
	if err != nil {
		return nil, storeError("list comments", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, storeError("list comments", rows.Err())
}
