package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quantcal/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ CalendarStore = (*SQLiteStore)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trade_days (
		market TEXT NOT NULL,
		date   TEXT NOT NULL,
		status INTEGER NOT NULL,
		PRIMARY KEY (market, date)
	)`,
	`CREATE TABLE IF NOT EXISTS product_sessions (
		market     TEXT NOT NULL,
		product_id TEXT NOT NULL,
		sessions   TEXT NOT NULL,
		PRIMARY KEY (market, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS special_sessions (
		market       TEXT NOT NULL,
		date         TEXT NOT NULL,
		sessions     TEXT NOT NULL,
		day_sessions TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (market, date)
	)`,
}

// SQLiteStore implements CalendarStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// calendar tables and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// replace deletes a market's rows from table and runs insert inside one
// transaction.
func (s *SQLiteStore) replace(ctx context.Context, table string, market domain.Market, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE market = ?", string(market)); err != nil {
		return fmt.Errorf("clearing %s for %s: %w", table, market, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("writing %s for %s: %w", table, market, err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Trade days
// ---------------------------------------------------------------------------

// WriteTradeDays replaces the day statuses of a market.
func (s *SQLiteStore) WriteTradeDays(ctx context.Context, market domain.Market, days []domain.TradeDay) error {
	return s.replace(ctx, "trade_days", market, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO trade_days (market, date, status) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, d := range days {
			if !d.Status.Valid() {
				return fmt.Errorf("%s: invalid status %d", d.Date.Format(time.DateOnly), d.Status)
			}
			if _, err := stmt.ExecContext(ctx, string(market), d.Date.Format(time.DateOnly), int(d.Status)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadTradeDays returns a market's day statuses in date order.
func (s *SQLiteStore) ReadTradeDays(ctx context.Context, market domain.Market) ([]domain.TradeDay, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date, status FROM trade_days WHERE market = ? ORDER BY date", string(market))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TradeDay
	for rows.Next() {
		var date string
		var status int
		if err := rows.Scan(&date, &status); err != nil {
			return nil, err
		}
		day, err := domain.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("trade_days %s: %w", market, err)
		}
		out = append(out, domain.TradeDay{Date: day, Status: domain.DayStatus(status)})
	}
	return out, rows.Err()
}

// Markets lists the markets with stored trade days.
func (s *SQLiteStore) Markets(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT market FROM trade_days ORDER BY market")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, domain.Market(m))
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// WriteProductSessions replaces the product templates of a market.
func (s *SQLiteStore) WriteProductSessions(ctx context.Context, market domain.Market, products []domain.ProductSessions) error {
	return s.replace(ctx, "product_sessions", market, func(tx *sql.Tx) error {
		for _, p := range products {
			sessions, err := json.Marshal(p.Sessions)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO product_sessions (market, product_id, sessions) VALUES (?, ?, ?)",
				string(market), p.ProductID, string(sessions)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadProductSessions returns a market's product templates ordered by id.
func (s *SQLiteStore) ReadProductSessions(ctx context.Context, market domain.Market) ([]domain.ProductSessions, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, sessions FROM product_sessions WHERE market = ? ORDER BY product_id", string(market))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProductSessions
	for rows.Next() {
		var p domain.ProductSessions
		var sessions string
		if err := rows.Scan(&p.ProductID, &sessions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sessions), &p.Sessions); err != nil {
			return nil, fmt.Errorf("product_sessions %s/%s: %w", market, p.ProductID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// WriteSpecialSessions replaces the special sessions of a market.
func (s *SQLiteStore) WriteSpecialSessions(ctx context.Context, market domain.Market, specials []domain.SpecialSession) error {
	return s.replace(ctx, "special_sessions", market, func(tx *sql.Tx) error {
		for _, ss := range specials {
			sessions, err := json.Marshal(ss.Sessions)
			if err != nil {
				return err
			}
			daySessions := []byte("[]")
			if len(ss.DaySessions) > 0 {
				if daySessions, err = json.Marshal(ss.DaySessions); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO special_sessions (market, date, sessions, day_sessions) VALUES (?, ?, ?, ?)",
				string(market), ss.Date.Format(time.DateOnly), string(sessions), string(daySessions)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadSpecialSessions returns a market's special sessions in date order.
func (s *SQLiteStore) ReadSpecialSessions(ctx context.Context, market domain.Market) ([]domain.SpecialSession, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date, sessions, day_sessions FROM special_sessions WHERE market = ? ORDER BY date", string(market))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SpecialSession
	for rows.Next() {
		var date, sessions, daySessions string
		if err := rows.Scan(&date, &sessions, &daySessions); err != nil {
			return nil, err
		}
		var ss domain.SpecialSession
		if ss.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("special_sessions %s: %w", market, err)
		}
		if err := json.Unmarshal([]byte(sessions), &ss.Sessions); err != nil {
			return nil, fmt.Errorf("special_sessions %s/%s: %w", market, date, err)
		}
		if err := json.Unmarshal([]byte(daySessions), &ss.DaySessions); err != nil {
			return nil, fmt.Errorf("special_sessions %s/%s: %w", market, date, err)
		}
		if len(ss.DaySessions) == 0 {
			ss.DaySessions = nil
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}
