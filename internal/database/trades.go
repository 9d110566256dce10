package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/trading-journal/internal/models"
)

const tradeColumns = `
	id, user_id, trade_date, asset, direction,
	entry_price, stop_loss, take_profit, result, pnl, lot_size,
	notes, screenshot_url, post_analysis, source, external_id, created_at, updated_at`

// CreateTrade inserts a new trade; the id and timestamps are assigned by the database
func (db *DB) CreateTrade(ctx context.Context, t *models.Trade) error {
	query := `
		INSERT INTO trades (
			user_id, trade_date, asset, direction,
			entry_price, stop_loss, take_profit, result, pnl, lot_size,
			notes, screenshot_url, source, external_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id, created_at, updated_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		t.UserID, t.Date, t.Asset, string(t.Direction),
		nullDecimal(t.EntryPrice), nullDecimal(t.StopLoss), nullDecimal(t.TakeProfit),
		string(t.Result), decimal.NewFromFloat(t.Pnl), nullDecimal(t.LotSize),
		nullString(t.Notes), nullString(t.ScreenshotURL), nullString(t.Source), nullString(t.ExternalID),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// GetTrade retrieves one of a user's trades by id
func (db *DB) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	query := `SELECT` + tradeColumns + `
		FROM trades
		WHERE id = $1 AND user_id = $2
	`
	t, err := scanTrade(db.conn.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// ListTradesByUser retrieves all of a user's trades, most recent first
func (db *DB) ListTradesByUser(ctx context.Context, userID string) ([]models.Trade, error) {
	query := `SELECT` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY trade_date DESC, created_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

// UpdateTrade overwrites the editable fields of an existing trade. The
// post-trade analysis is left as is and read back into t.
func (db *DB) UpdateTrade(ctx context.Context, t *models.Trade) error {
	query := `
		UPDATE trades SET
			trade_date = $3, asset = $4, direction = $5,
			entry_price = $6, stop_loss = $7, take_profit = $8,
			result = $9, pnl = $10, lot_size = $11,
			notes = $12, screenshot_url = $13, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at, post_analysis
	`
	var postAnalysis sql.NullString
	err := db.conn.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.Date, t.Asset, string(t.Direction),
		nullDecimal(t.EntryPrice), nullDecimal(t.StopLoss), nullDecimal(t.TakeProfit),
		string(t.Result), decimal.NewFromFloat(t.Pnl), nullDecimal(t.LotSize),
		nullString(t.Notes), nullString(t.ScreenshotURL),
	).Scan(&t.CreatedAt, &t.UpdatedAt, &postAnalysis)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("trade %s: %w", t.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	t.PostAnalysis = postAnalysis.String
	return nil
}

// SetPostAnalysis stores the review note of one of a user's trades. An
// empty analysis clears it.
func (db *DB) SetPostAnalysis(ctx context.Context, userID, id, analysis string) error {
	query := `
		UPDATE trades SET post_analysis = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	result, err := db.conn.ExecContext(ctx, query, id, userID, nullString(analysis))
	if err != nil {
		return fmt.Errorf("failed to save post analysis: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTrade removes one of a user's trades
func (db *DB) DeleteTrade(ctx context.Context, userID, id string) error {
	query := `DELETE FROM trades WHERE id = $1 AND user_id = $2`
	result, err := db.conn.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return nil
}

// TradeExistsByExternalID checks if an imported trade was already stored
func (db *DB) TradeExistsByExternalID(ctx context.Context, source, externalID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trades WHERE source = $1 AND external_id = $2)`
	var exists bool
	if err := db.conn.QueryRowContext(ctx, query, source, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check trade existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var t models.Trade
	var direction, result string
	var pnl decimal.Decimal
	var entryPrice, stopLoss, takeProfit, lotSize decimal.NullDecimal
	var notes, screenshotURL, postAnalysis, source, externalID sql.NullString

	err := row.Scan(
		&t.ID, &t.UserID, &t.Date, &t.Asset, &direction,
		&entryPrice, &stopLoss, &takeProfit, &result, &pnl, &lotSize,
		&notes, &screenshotURL, &postAnalysis, &source, &externalID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = models.Direction(direction)
	t.Result = models.Result(result)
	t.Pnl = pnl.InexactFloat64()
	t.EntryPrice = floatPtr(entryPrice)
	t.StopLoss = floatPtr(stopLoss)
	t.TakeProfit = floatPtr(takeProfit)
	t.LotSize = floatPtr(lotSize)
	t.Notes = notes.String
	t.ScreenshotURL = screenshotURL.String
	t.PostAnalysis = postAnalysis.String
	t.Source = source.String
	t.ExternalID = externalID.String

	return &t, nil
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*v), Valid: true}
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
