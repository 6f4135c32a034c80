package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"quantcal/internal/domain"
)

// Compile-time interface check.
var _ CalendarStore = (*ParquetStore)(nil)

// ParquetStore implements CalendarStore using Parquet snapshot files, one
// file per market and data set.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// Close implements CalendarStore. Files are closed after every call.
func (s *ParquetStore) Close() error { return nil }

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// TradeDayRecord is the Parquet schema for one day status.
type TradeDayRecord struct {
	Date   string `parquet:"date"` // YYYY-MM-DD
	Status int32  `parquet:"status"`
}

// SessionRecord is one session in seconds since local midnight.
type SessionRecord struct {
	Open  int32 `parquet:"open"`
	Close int32 `parquet:"close"`
}

// ProductSessionsRecord is the Parquet schema for a product template.
type ProductSessionsRecord struct {
	ProductID string          `parquet:"product_id"`
	Sessions  []SessionRecord `parquet:"sessions"`
}

// SpecialSessionRecord is the Parquet schema for a special session.
type SpecialSessionRecord struct {
	Date        string          `parquet:"date"`
	Sessions    []SessionRecord `parquet:"sessions"`
	DaySessions []SessionRecord `parquet:"day_sessions"`
}

// ---------------------------------------------------------------------------
// Trade days
// ---------------------------------------------------------------------------

// WriteTradeDays replaces the day statuses of a market.
func (s *ParquetStore) WriteTradeDays(_ context.Context, market domain.Market, days []domain.TradeDay) error {
	records := make([]TradeDayRecord, 0, len(days))
	for _, d := range days {
		if !d.Status.Valid() {
			return fmt.Errorf("%s: invalid status %d", d.Date.Format(time.DateOnly), d.Status)
		}
		records = append(records, TradeDayRecord{Date: d.Date.Format(time.DateOnly), Status: int32(d.Status)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return replaceParquetFile(s.path(market, "trade_days"), records)
}

// ReadTradeDays returns a market's day statuses in date order.
func (s *ParquetStore) ReadTradeDays(_ context.Context, market domain.Market) ([]domain.TradeDay, error) {
	records, err := readParquetFile[TradeDayRecord](s.path(market, "trade_days"))
	if err != nil {
		return nil, err
	}
	out := make([]domain.TradeDay, 0, len(records))
	for _, r := range records {
		day, err := domain.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("trade_days %s: %w", market, err)
		}
		out = append(out, domain.TradeDay{Date: day, Status: domain.DayStatus(r.Status)})
	}
	return out, nil
}

// Markets lists the markets with a trade-day file.
func (s *ParquetStore) Markets(_ context.Context) ([]domain.Market, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "calendar"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []domain.Market
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := domain.Market(e.Name())
		if _, err := os.Stat(s.path(m, "trade_days")); err == nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// WriteProductSessions replaces the product templates of a market.
func (s *ParquetStore) WriteProductSessions(_ context.Context, market domain.Market, products []domain.ProductSessions) error {
	records := make([]ProductSessionsRecord, 0, len(products))
	for _, p := range products {
		records = append(records, ProductSessionsRecord{ProductID: p.ProductID, Sessions: toSessionRecords(p.Sessions)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProductID < records[j].ProductID })
	return replaceParquetFile(s.path(market, "product_sessions"), records)
}

// ReadProductSessions returns a market's product templates ordered by id.
func (s *ParquetStore) ReadProductSessions(_ context.Context, market domain.Market) ([]domain.ProductSessions, error) {
	records, err := readParquetFile[ProductSessionsRecord](s.path(market, "product_sessions"))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductSessions, 0, len(records))
	for _, r := range records {
		out = append(out, domain.ProductSessions{ProductID: r.ProductID, Sessions: fromSessionRecords(r.Sessions)})
	}
	return out, nil
}

// WriteSpecialSessions replaces the special sessions of a market.
func (s *ParquetStore) WriteSpecialSessions(_ context.Context, market domain.Market, specials []domain.SpecialSession) error {
	records := make([]SpecialSessionRecord, 0, len(specials))
	for _, ss := range specials {
		records = append(records, SpecialSessionRecord{
			Date:        ss.Date.Format(time.DateOnly),
			Sessions:    toSessionRecords(ss.Sessions),
			DaySessions: toSessionRecords(ss.DaySessions),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return replaceParquetFile(s.path(market, "special_sessions"), records)
}

// ReadSpecialSessions returns a market's special sessions in date order.
func (s *ParquetStore) ReadSpecialSessions(_ context.Context, market domain.Market) ([]domain.SpecialSession, error) {
	records, err := readParquetFile[SpecialSessionRecord](s.path(market, "special_sessions"))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SpecialSession, 0, len(records))
	for _, r := range records {
		day, err := domain.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("special_sessions %s: %w", market, err)
		}
		out = append(out, domain.SpecialSession{
			Date:        day,
			Sessions:    fromSessionRecords(r.Sessions),
			DaySessions: fromSessionRecords(r.DaySessions),
		})
	}
	return out, nil
}

func toSessionRecords(sessions []domain.Session) []SessionRecord {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]SessionRecord, len(sessions))
	for i, s := range sessions {
		out[i] = SessionRecord{Open: int32(s.Open), Close: int32(s.Close)}
	}
	return out
}

func fromSessionRecords(records []SessionRecord) []domain.Session {
	if len(records) == 0 {
		return nil
	}
	out := make([]domain.Session, len(records))
	for i, r := range records {
		out[i] = domain.Session{Open: int(r.Open), Close: int(r.Close)}
	}
	return out
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// path returns the filesystem path of a market's data set.
// Layout: <dataDir>/calendar/<market>/<name>.parquet
func (s *ParquetStore) path(market domain.Market, name string) string {
	return filepath.Join(s.DataDir, "calendar", string(market), name+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// replaceParquetFile writes records next to path and renames the result over
// it, so readers never see a partial file. No records removes the file.
func replaceParquetFile[T any](path string, records []T) error {
	if len(records) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// readParquetFile returns the rows of path, or nothing when it does not exist.
func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}
