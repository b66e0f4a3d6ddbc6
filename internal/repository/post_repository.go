package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/harsh-kumar-singhh/linkmate/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetStatus(ctx context.Context, id int64) (string, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time, userID int64) ([]*models.Post, error)
	ListUnnotified(ctx context.Context, userID int64) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time, externalID string) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
	MarkNotified(ctx context.Context, userID int64) error
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, content, image_url, status, scheduled_for, published_at, linkedin_post_id, failure_reason, notified, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	var imageURL, linkedinPostID, failureReason sql.NullString
	err := row.Scan(&post.ID, &post.UserID, &post.Content, &imageURL, &post.Status,
		&post.ScheduledFor, &post.PublishedAt, &linkedinPostID, &failureReason,
		&post.Notified, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.ImageURL = imageURL.String
	post.LinkedInPostID = linkedinPostID.String
	post.FailureReason = failureReason.String
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, content, image_url, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Content, post.ImageURL, post.Status, post.ScheduledFor).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Content, post.ImageURL, post.Status, post.ScheduledFor).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

// GetStatus is the idempotency guard's read: the current status only, fetched
// immediately before acting on a post.
func (r *postRepository) GetStatus(ctx context.Context, id int64) (string, error) {
	query := `SELECT status FROM posts WHERE id = $1`

	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		slog.Info(err.Error())
		return "", err
	}

	return status, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListDue returns scheduled posts whose scheduled_for has arrived, earliest
// first. userID of 0 scans across all users.
func (r *postRepository) ListDue(ctx context.Context, now time.Time, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND scheduled_for <= $2`
	args := []any{models.PostStatusScheduled, now}

	if userID != 0 {
		query += ` AND user_id = $3`
		args = append(args, userID)
	}
	query += ` ORDER BY scheduled_for ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepository) ListUnnotified(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE user_id = $1 AND notified = false AND status IN ($2, $3)
		ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusPublished, models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET content = $1,
			image_url = $2,
			status = $3,
			scheduled_for = $4,
			failure_reason = NULLIF($5, ''),
			updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, post.Content, post.ImageURL, post.Status,
		post.ScheduledFor, post.FailureReason, time.Now(), post.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPublished transitions scheduled -> published. The status predicate makes
// the write conditional, so of two racing runs only one sees rows affected 1.
func (r *postRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, externalID string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = $2,
			linkedin_post_id = $3,
			failure_reason = NULL,
			notified = false,
			updated_at = $2
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, publishedAt, externalID, id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// MarkFailed transitions scheduled -> failed, conditionally like MarkPublished.
func (r *postRepository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			failure_reason = $2,
			notified = false,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, reason, time.Now(), id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkNotified(ctx context.Context, userID int64) error {
	query := `UPDATE posts SET notified = true WHERE user_id = $1 AND notified = false`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
