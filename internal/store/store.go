// Package store provides quote persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"stock-alerts/internal/models"
)

// DataStore defines the interface for quote persistence.
//
// Implementations must keep every operation individually transactional.
// Callers treat failures as degraded state: a nil quote or zero count plus
// an error, never a partial write.
type DataStore interface {
	// SaveQuote persists one observed quote.
	SaveQuote(ctx context.Context, quote *models.Quote) error

	// LatestQuote returns the most recently persisted quote for symbol,
	// or nil when none exists.
	LatestQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// OldestQuoteSince returns the earliest persisted quote for symbol
	// with timestamp at or after cutoff, or nil when none exists.
	OldestQuoteSince(ctx context.Context, symbol string, cutoff time.Time) (*models.Quote, error)

	// PriceHistory returns quotes for symbol from the last `days` days,
	// newest first.
	PriceHistory(ctx context.Context, symbol string, days int) ([]models.Quote, error)

	// DeleteOlderThan removes quotes with timestamps before cutoff and
	// returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Lifecycle
	Close() error
}
