package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/harsh-kumar-singhh/linkmate/internal/models"
)

type LinkedInAccountRepository interface {
	Upsert(ctx context.Context, la *models.LinkedInAccount) (int64, error)
	GetByUserID(ctx context.Context, userID int64) (*models.LinkedInAccount, bool, error)
	ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.LinkedInAccount, error)
	SetToken(ctx context.Context, userID int64, oldAccessToken string, la *models.LinkedInAccount) error
	Remove(ctx context.Context, userID int64) error
}

type linkedInAccountRepository struct {
	db *sql.DB
}

func NewLinkedInAccountRepository(db *sql.DB) LinkedInAccountRepository {
	return &linkedInAccountRepository{db: db}
}

// Upsert inserts or replaces the single LinkedIn account a user may have
// linked; reconnecting overwrites the stored tokens.
func (r *linkedInAccountRepository) Upsert(ctx context.Context, la *models.LinkedInAccount) (int64, error) {
	query := `
		INSERT INTO linkedin_accounts (
			user_id,
			member_urn,
			account_name,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET member_urn = EXCLUDED.member_urn,
			account_name = EXCLUDED.account_name,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		la.UserID,
		la.MemberURN,
		la.AccountName,
		la.ProfilePicture,
		la.AccessToken,
		la.RefreshToken,
		la.TokenExpiresAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *linkedInAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.LinkedInAccount, bool, error) {
	query := `SELECT id, user_id, member_urn, account_name, profile_picture_url,
		access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM linkedin_accounts WHERE user_id = $1`

	var la models.LinkedInAccount
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&la.ID, &la.UserID, &la.MemberURN,
		&la.AccountName, &la.ProfilePicture, &la.AccessToken, &la.RefreshToken,
		&la.TokenExpiresAt, &la.CreatedAt, &la.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}

	return &la, true, nil
}

func (r *linkedInAccountRepository) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.LinkedInAccount, error) {
	query := `SELECT
			user_id,
			access_token,
			refresh_token,
			token_expires_at
			FROM linkedin_accounts
			WHERE (token_expires_at BETWEEN $1 AND $2)
			OR (token_expires_at < $1)`
	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.LinkedInAccount
	for rows.Next() {
		var la models.LinkedInAccount
		err := rows.Scan(&la.UserID, &la.AccessToken, &la.RefreshToken, &la.TokenExpiresAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &la)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *linkedInAccountRepository) SetToken(ctx context.Context, userID int64, oldAccessToken string, la *models.LinkedInAccount) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE linkedin_accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND access_token = $2
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, userID, oldAccessToken, la.AccessToken, la.RefreshToken, la.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token may have been rotated concurrently")
		return errors.New("no rows affected; token may have been rotated concurrently")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *linkedInAccountRepository) Remove(ctx context.Context, userID int64) error {
	query := `DELETE FROM linkedin_accounts WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
