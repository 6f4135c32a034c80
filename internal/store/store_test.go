package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quantcal/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	agSessions = []domain.Session{
		{Open: 75600, Close: 9000},
		{Open: 32400, Close: 36900},
		{Open: 37800, Close: 41400},
		{Open: 48600, Close: 54000},
	}
	ifSessions = []domain.Session{
		{Open: 34200, Close: 41400},
		{Open: 46800, Close: 54000},
	}
)

func stores(t *testing.T) map[string]CalendarStore {
	t.Helper()
	dir := t.TempDir()
	sq, err := NewSQLiteStore(filepath.Join(dir, "db", "quantcal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]CalendarStore{
		BackendSQLite:  sq,
		BackendParquet: NewParquetStore(filepath.Join(dir, "parquet")),
	}
}

func TestTradeDaysRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		days := []domain.TradeDay{
			{Date: day(2024, 10, 8), Status: domain.DayTrading},
			{Date: day(2024, 10, 1), Status: domain.DayHoliday},
			{Date: day(2024, 10, 5), Status: domain.DayWeekend},
			{Date: day(2024, 10, 9), Status: domain.DayClosed},
		}
		if err := s.WriteTradeDays(ctx, domain.MarketCN, days); err != nil {
			t.Fatalf("%s: WriteTradeDays: %v", name, err)
		}
		got, err := s.ReadTradeDays(ctx, domain.MarketCN)
		if err != nil {
			t.Fatalf("%s: ReadTradeDays: %v", name, err)
		}
		if len(got) != 4 {
			t.Fatalf("%s: got %d days, want 4", name, len(got))
		}
		if !got[0].Date.Equal(day(2024, 10, 1)) || got[0].Status != domain.DayHoliday {
			t.Errorf("%s: first day = %+v, want 2024-10-01 HOLIDAY", name, got[0])
		}
		if got[3].Status != domain.DayClosed {
			t.Errorf("%s: last status = %v, want CLOSED", name, got[3].Status)
		}

		// A second write replaces the market's data.
		if err := s.WriteTradeDays(ctx, domain.MarketCN, days[:1]); err != nil {
			t.Fatalf("%s: WriteTradeDays: %v", name, err)
		}
		got, _ = s.ReadTradeDays(ctx, domain.MarketCN)
		if len(got) != 1 {
			t.Errorf("%s: after replace got %d days, want 1", name, len(got))
		}

		if err := s.WriteTradeDays(ctx, domain.MarketUS, []domain.TradeDay{{Date: day(2024, 1, 2), Status: domain.DayTrading}}); err != nil {
			t.Fatalf("%s: WriteTradeDays(us): %v", name, err)
		}
		markets, err := s.Markets(ctx)
		if err != nil {
			t.Fatalf("%s: Markets: %v", name, err)
		}
		if len(markets) != 2 || markets[0] != domain.MarketCN || markets[1] != domain.MarketUS {
			t.Errorf("%s: Markets() = %v, want [cn us]", name, markets)
		}

		if err := s.WriteTradeDays(ctx, domain.MarketCN, []domain.TradeDay{{Date: day(2024, 1, 2)}}); err == nil {
			t.Errorf("%s: writing a day without status expected error", name)
		}
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		products := []domain.ProductSessions{
			{ProductID: "IF", Sessions: ifSessions},
			{ProductID: "AG", Sessions: agSessions},
		}
		if err := s.WriteProductSessions(ctx, domain.MarketCNFutures, products); err != nil {
			t.Fatalf("%s: WriteProductSessions: %v", name, err)
		}
		got, err := s.ReadProductSessions(ctx, domain.MarketCNFutures)
		if err != nil {
			t.Fatalf("%s: ReadProductSessions: %v", name, err)
		}
		if len(got) != 2 || got[0].ProductID != "AG" || len(got[0].Sessions) != 4 {
			t.Fatalf("%s: ReadProductSessions = %+v", name, got)
		}
		if got[0].Sessions[0] != agSessions[0] {
			t.Errorf("%s: AG night session = %v, want %v", name, got[0].Sessions[0], agSessions[0])
		}

		specials := []domain.SpecialSession{
			{Date: day(2024, 10, 8), Sessions: agSessions[1:]},
			{Date: day(2024, 12, 24), Sessions: ifSessions[:1], DaySessions: ifSessions[:1]},
		}
		if err := s.WriteSpecialSessions(ctx, domain.MarketCNFutures, specials); err != nil {
			t.Fatalf("%s: WriteSpecialSessions: %v", name, err)
		}
		ss, err := s.ReadSpecialSessions(ctx, domain.MarketCNFutures)
		if err != nil {
			t.Fatalf("%s: ReadSpecialSessions: %v", name, err)
		}
		if len(ss) != 2 {
			t.Fatalf("%s: got %d special sessions, want 2", name, len(ss))
		}
		if !ss[0].Date.Equal(day(2024, 10, 8)) || len(ss[0].Sessions) != 3 || len(ss[0].DaySessions) != 0 {
			t.Errorf("%s: first special = %+v", name, ss[0])
		}
		if len(ss[1].DaySessions) != 1 || ss[1].DaySessions[0] != ifSessions[0] {
			t.Errorf("%s: second special day view = %v", name, ss[1].DaySessions)
		}

		// Nothing stored reads as empty, not as an error.
		none, err := s.ReadSpecialSessions(ctx, domain.MarketUS)
		if err != nil || len(none) != 0 {
			t.Errorf("%s: ReadSpecialSessions(us) = %v, %v, want empty", name, none, err)
		}
		if err := s.WriteSpecialSessions(ctx, domain.MarketCNFutures, nil); err != nil {
			t.Fatalf("%s: WriteSpecialSessions(nil): %v", name, err)
		}
		ss, _ = s.ReadSpecialSessions(ctx, domain.MarketCNFutures)
		if len(ss) != 0 {
			t.Errorf("%s: after clearing got %d special sessions", name, len(ss))
		}
	}
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")
	got := ps.path(domain.MarketCNFutures, "trade_days")
	want := filepath.Join("/data", "calendar", "cn_future", "trade_days.parquet")
	if got != want {
		t.Errorf("path mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("", dir, "")
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(\"\") = %T, want *SQLiteStore", s)
	}
	s.Close()

	s, err = Open("Parquet", dir, "")
	if err != nil {
		t.Fatalf("Open(parquet): %v", err)
	}
	if _, ok := s.(*ParquetStore); !ok {
		t.Errorf("Open(Parquet) = %T, want *ParquetStore", s)
	}

	if _, err := Open("clickhouse", dir, ""); err == nil {
		t.Error("Open(clickhouse) expected error")
	}
}
