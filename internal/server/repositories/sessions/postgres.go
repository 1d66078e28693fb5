package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/dbx"
	"github.com/navhub/navhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `id, user_id, token, device_info, user_agent, ip_address, created_at, expires_at, last_used_at, is_active`

func scanToken(row *sql.Row) (*models.SessionToken, error) {
	st := &models.SessionToken{}
	err := row.Scan(&st.ID, &st.UserID, &st.Token, &st.DeviceInfo, &st.UserAgent,
		&st.IPAddress, &st.CreatedAt, &st.ExpiresAt, &st.LastUsedAt, &st.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return st, nil
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.SessionToken) error {
	query := `
		INSERT INTO session_tokens (id, user_id, token, device_info, user_agent, ip_address, created_at, expires_at, last_used_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Token, token.DeviceInfo, token.UserAgent,
		token.IPAddress, token.CreatedAt.UTC(), token.ExpiresAt.UTC(),
		token.LastUsedAt.UTC(), token.IsActive); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindActive(ctx context.Context, token string, now time.Time) (*models.SessionToken, error) {
	query := `
		SELECT ` + tokenColumns + ` FROM session_tokens
		WHERE token = $1 AND is_active AND expires_at > $2
	`
	return scanToken(r.db.QueryRowContext(ctx, query, token, now.UTC()))
}

func (r *PostgresRepository) Touch(ctx context.Context, token string, now time.Time) error {
	query := `UPDATE session_tokens SET last_used_at = $2 WHERE token = $1`
	if _, err := r.db.ExecContext(ctx, query, token, now.UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.SessionToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM session_tokens WHERE id = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*models.SessionToken, error) {
	query := `
		SELECT ` + tokenColumns + ` FROM session_tokens
		WHERE user_id = $1 AND is_active AND expires_at > $2
		ORDER BY last_used_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]*models.SessionToken, error) {
	query := `
		SELECT ` + tokenColumns + ` FROM session_tokens
		WHERE is_active AND expires_at > $1
		ORDER BY user_id, last_used_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) MostRecentActive(ctx context.Context, userID string, now time.Time) (*models.SessionToken, error) {
	query := `
		SELECT ` + tokenColumns + ` FROM session_tokens
		WHERE user_id = $1 AND is_active AND expires_at > $2
		ORDER BY last_used_at DESC
		LIMIT 1
	`
	return scanToken(r.db.QueryRowContext(ctx, query, userID, now.UTC()))
}

func (r *PostgresRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE session_tokens SET is_active = FALSE WHERE token = $1 AND is_active`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRowAffected(res)
}

func (r *PostgresRepository) DeactivateByID(ctx context.Context, id string, scopeUserID string) error {
	query := `UPDATE session_tokens SET is_active = FALSE WHERE id = $1 AND is_active`
	args := []any{id}
	if scopeUserID != "" {
		query += ` AND user_id = $2`
		args = append(args, scopeUserID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRowAffected(res)
}

func (r *PostgresRepository) DeactivateAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE session_tokens SET is_active = FALSE WHERE user_id = $1 AND is_active`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE session_tokens SET is_active = FALSE WHERE is_active AND expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func collect(rows *sql.Rows) ([]*models.SessionToken, error) {
	defer rows.Close()
	var result []*models.SessionToken
	for rows.Next() {
		st := &models.SessionToken{}
		if err := rows.Scan(&st.ID, &st.UserID, &st.Token, &st.DeviceInfo, &st.UserAgent,
			&st.IPAddress, &st.CreatedAt, &st.ExpiresAt, &st.LastUsedAt, &st.IsActive); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
