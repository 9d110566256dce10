package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/trading-journal/internal/models"
)

// CreateShareToken stores a new share token
func (db *DB) CreateShareToken(ctx context.Context, s *models.ShareToken) error {
	query := `
		INSERT INTO share_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := db.conn.QueryRowContext(ctx, query, s.Token, s.UserID, s.ExpiresAt).Scan(&s.CreatedAt); err != nil {
		return fmt.Errorf("failed to create share token: %w", err)
	}
	return nil
}

// GetShareToken retrieves a share token, expired or not
func (db *DB) GetShareToken(ctx context.Context, token string) (*models.ShareToken, error) {
	query := `
		SELECT token, user_id, expires_at, created_at
		FROM share_tokens
		WHERE token = $1
	`
	var s models.ShareToken
	err := db.conn.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("share token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share token: %w", err)
	}
	return &s, nil
}

// DeleteExpiredShareTokens removes tokens that expired before now
func (db *DB) DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM share_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired share tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
