package calendar

import (
	"testing"
	"time"

	"quantcal/internal/domain"
)

var cst = time.FixedZone("CST", 8*3600)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cstAt(y int, m time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, m, d, h, mi, s, 0, cst)
}

// weekdays builds statuses for [from, to]: Monday to Friday trading, weekends
// WEEKEND, and the listed dates HOLIDAY.
func weekdays(from, to time.Time, holidays ...time.Time) []domain.TradeDay {
	hol := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		hol[h] = true
	}
	var out []domain.TradeDay
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		st := domain.DayTrading
		switch {
		case hol[d]:
			st = domain.DayHoliday
		case d.Weekday() == time.Saturday || d.Weekday() == time.Sunday:
			st = domain.DayWeekend
		}
		out = append(out, domain.TradeDay{Date: d, Status: st})
	}
	return out
}

func preset(t *testing.T, m domain.Market) Config {
	t.Helper()
	cfg, err := Preset(m)
	if err != nil {
		t.Fatalf("Preset(%s): %v", m, err)
	}
	return cfg
}

// cnStock is the A-share calendar for September and October 2024 with the
// Mid-Autumn and National Day holidays.
func cnStock(t *testing.T, mutate func(*Config)) *Calendar {
	t.Helper()
	cfg := preset(t, domain.MarketCN)
	if mutate != nil {
		mutate(&cfg)
	}
	days := weekdays(date(2024, 9, 1), date(2024, 10, 31),
		date(2024, 9, 16), date(2024, 9, 17),
		date(2024, 10, 1), date(2024, 10, 2), date(2024, 10, 3), date(2024, 10, 4), date(2024, 10, 7),
	)
	cal, err := New(cfg, NewDayIndex(days))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cal
}

var (
	agSessions = []domain.Session{
		{Open: hm(21, 0), Close: hm(2, 30)},
		{Open: hm(9, 0), Close: hm(10, 15)},
		{Open: hm(10, 30), Close: hm(11, 30)},
		{Open: hm(13, 30), Close: hm(15, 0)},
	}
	ifSessions = []domain.Session{
		{Open: hm(9, 30), Close: hm(11, 30)},
		{Open: hm(13, 0), Close: hm(15, 0)},
	}
)

// cnFutures is the futures calendar for June and July 2023. The Dragon Boat
// holiday ran from Thursday 22 June to Sunday 25 June; the weekend is merged
// into the holiday as the exchange publishes it.
func cnFutures(t *testing.T) *Calendar {
	t.Helper()
	days := weekdays(date(2023, 6, 1), date(2023, 7, 31),
		date(2023, 6, 22), date(2023, 6, 23), date(2023, 6, 24), date(2023, 6, 25),
	)
	cal, err := NewBuilder(preset(t, domain.MarketCNFutures), NewDayIndex(days)).
		AddProduct("AG", agSessions).
		AddProduct("IF", ifSessions).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cal
}

func crypto(t *testing.T) *Calendar {
	t.Helper()
	cal, err := New(preset(t, domain.Market7x24), ContinuousDays(date(2024, 1, 1), 366))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cal
}

func mustInterval(t *testing.T, s string) domain.Interval {
	t.Helper()
	iv, err := domain.ParseInterval(s)
	if err != nil {
		t.Fatalf("ParseInterval(%q): %v", s, err)
	}
	return iv
}

func equalTimes(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
