// Package store provides quote persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stock-alerts/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based quote store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Observed quotes, one row per fetch
	CREATE TABLE IF NOT EXISTS stock_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		change REAL,
		change_percent TEXT,
		volume INTEGER,
		open_price REAL,
		high REAL,
		low REAL,
		previous_close REAL,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol ON stock_prices(symbol);
	CREATE INDEX IF NOT EXISTS idx_stock_prices_timestamp ON stock_prices(timestamp);
	CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol_timestamp ON stock_prices(symbol, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveQuote persists one observed quote.
func (s *SQLiteStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if quote == nil {
		return fmt.Errorf("nil quote")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_prices
			(symbol, price, change, change_percent, volume, open_price, high, low, previous_close, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.Symbol,
		quote.Price,
		quote.Change,
		quote.ChangePercent,
		quote.Volume,
		quote.Open,
		quote.High,
		quote.Low,
		quote.PreviousClose,
		quote.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", quote.Symbol, err)
	}
	return nil
}

// LatestQuote returns the most recently persisted quote for symbol.
func (s *SQLiteStore) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, price, change, change_percent, volume, open_price, high, low, previous_close, timestamp
		FROM stock_prices
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT 1`,
		symbol,
	)
	return scanQuote(row)
}

// OldestQuoteSince returns the earliest persisted quote for symbol at or
// after cutoff.
func (s *SQLiteStore) OldestQuoteSince(ctx context.Context, symbol string, cutoff time.Time) (*models.Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, price, change, change_percent, volume, open_price, high, low, previous_close, timestamp
		FROM stock_prices
		WHERE symbol = ? AND timestamp >= ?
		ORDER BY timestamp ASC
		LIMIT 1`,
		symbol, cutoff.UTC(),
	)
	return scanQuote(row)
}

// PriceHistory returns quotes for symbol from the last `days` days, newest first.
func (s *SQLiteStore) PriceHistory(ctx context.Context, symbol string, days int) ([]models.Quote, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price, change, change_percent, volume, open_price, high, low, previous_close, timestamp
		FROM stock_prices
		WHERE symbol = ? AND timestamp >= ?
		ORDER BY timestamp DESC`,
		symbol, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		var q models.Quote
		var change, open, high, low, prevClose sql.NullFloat64
		var changePercent sql.NullString
		var volume sql.NullInt64

		if err := rows.Scan(&q.Symbol, &q.Price, &change, &changePercent, &volume,
			&open, &high, &low, &prevClose, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		q.Change = change.Float64
		q.ChangePercent = changePercent.String
		q.Volume = volume.Int64
		q.Open = open.Float64
		q.High = high.Float64
		q.Low = low.Float64
		q.PreviousClose = prevClose.Float64
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// DeleteOlderThan removes quotes with timestamps before cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM stock_prices WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting old quotes: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanQuote(row *sql.Row) (*models.Quote, error) {
	var q models.Quote
	var change, open, high, low, prevClose sql.NullFloat64
	var changePercent sql.NullString
	var volume sql.NullInt64

	err := row.Scan(&q.Symbol, &q.Price, &change, &changePercent, &volume,
		&open, &high, &low, &prevClose, &q.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	q.Change = change.Float64
	q.ChangePercent = changePercent.String
	q.Volume = volume.Int64
	q.Open = open.Float64
	q.High = high.Float64
	q.Low = low.Float64
	q.PreviousClose = prevClose.Float64
	return &q, nil
}
