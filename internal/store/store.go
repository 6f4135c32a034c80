// Package store persists market calendars: trade-day statuses, product
// session templates and special sessions. Every write replaces the whole
// data set of one market.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"quantcal/internal/calendar"
	"quantcal/internal/domain"
)

// CalendarStore persists and retrieves calendar data. It satisfies
// calendar.Source so a store can feed calendar.Load directly.
type CalendarStore interface {
	calendar.Source

	// WriteTradeDays replaces the day statuses of a market.
	WriteTradeDays(ctx context.Context, market domain.Market, days []domain.TradeDay) error

	// WriteProductSessions replaces the product templates of a market.
	WriteProductSessions(ctx context.Context, market domain.Market, products []domain.ProductSessions) error

	// WriteSpecialSessions replaces the special sessions of a market.
	WriteSpecialSessions(ctx context.Context, market domain.Market, specials []domain.SpecialSession) error

	// Markets lists the markets with stored trade days.
	Markets(ctx context.Context) ([]domain.Market, error)

	Close() error
}

// Backend names.
const (
	BackendSQLite  = "sqlite"
	BackendParquet = "parquet"
)

// Open returns the store selected by backend. An empty sqlitePath puts the
// database under dataDir.
func Open(backend, dataDir, sqlitePath string) (CalendarStore, error) {
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		if sqlitePath == "" {
			sqlitePath = filepath.Join(dataDir, "quantcal.db")
		}
		return NewSQLiteStore(sqlitePath)
	case BackendParquet:
		return NewParquetStore(dataDir), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}
