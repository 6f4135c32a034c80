package calendar

import (
	"sort"
	"time"

	"quantcal/internal/domain"
)

// TradeDays supplies the trading-day sequence a calendar walks. Days are
// midnight UTC of the calendar date. Both sequences are ascending and empty
// when day lies outside the loaded horizon; the zero day selects the whole
// horizon. Callers must not modify the returned slices.
type TradeDays interface {
	// TradeDaysGTE returns trading days on or after day.
	TradeDaysGTE(day time.Time) []time.Time
	// TradeDaysLTE returns trading days on or before day.
	TradeDaysLTE(day time.Time) []time.Time
	// Status returns the status of a calendar date, if known.
	Status(day time.Time) (domain.DayStatus, bool)
}

// Compile-time interface checks.
var (
	_ TradeDays = (*DayIndex)(nil)
	_ TradeDays = EveryDay(0)
)

// DayIndex is an in-memory TradeDays built once from persisted day records.
// It is safe for concurrent readers.
type DayIndex struct {
	trading []time.Time
	status  map[time.Time]domain.DayStatus
	first   time.Time
	last    time.Time
}

// NewDayIndex indexes the given records. Records may arrive in any order;
// a later record for the same date wins.
func NewDayIndex(days []domain.TradeDay) *DayIndex {
	idx := &DayIndex{status: make(map[time.Time]domain.DayStatus, len(days))}
	for _, d := range days {
		idx.status[domain.DateOf(d.Date)] = d.Status
	}
	for date, st := range idx.status {
		if st == domain.DayTrading {
			idx.trading = append(idx.trading, date)
		}
		if idx.first.IsZero() || date.Before(idx.first) {
			idx.first = date
		}
		if date.After(idx.last) {
			idx.last = date
		}
	}
	sort.Slice(idx.trading, func(i, j int) bool {
		return idx.trading[i].Before(idx.trading[j])
	})
	return idx
}

// ContinuousDays returns an index in which each of the n days starting at
// from is a trading day, as on markets that never close.
func ContinuousDays(from time.Time, n int) *DayIndex {
	from = domain.DateOf(from)
	days := make([]domain.TradeDay, n)
	for i := range days {
		days[i] = domain.TradeDay{Date: from.AddDate(0, 0, i), Status: domain.DayTrading}
	}
	return NewDayIndex(days)
}

// TradeDaysGTE implements TradeDays.
func (idx *DayIndex) TradeDaysGTE(day time.Time) []time.Time {
	if !idx.covers(day) {
		return nil
	}
	day = domain.DateOf(day)
	i := sort.Search(len(idx.trading), func(i int) bool {
		return !idx.trading[i].Before(day)
	})
	return idx.trading[i:]
}

// TradeDaysLTE implements TradeDays.
func (idx *DayIndex) TradeDaysLTE(day time.Time) []time.Time {
	if !idx.covers(day) {
		return nil
	}
	day = domain.DateOf(day)
	i := sort.Search(len(idx.trading), func(i int) bool {
		return idx.trading[i].After(day)
	})
	return idx.trading[:i]
}

// covers reports whether day lies inside the horizon. The zero day stands
// for the whole horizon.
func (idx *DayIndex) covers(day time.Time) bool {
	if day.IsZero() {
		return true
	}
	day = domain.DateOf(day)
	return !day.Before(idx.first) && !day.After(idx.last)
}

// Status implements TradeDays.
func (idx *DayIndex) Status(day time.Time) (domain.DayStatus, bool) {
	st, ok := idx.status[domain.DateOf(day)]
	return st, ok
}

// Horizon returns the first and last dates with a known status.
func (idx *DayIndex) Horizon() (first, last time.Time) {
	return idx.first, idx.last
}

// Len returns the number of trading days.
func (idx *DayIndex) Len() int {
	return len(idx.trading)
}

// ---------------------------------------------------------------------------
// EveryDay
// ---------------------------------------------------------------------------

// EveryDay is an unbounded TradeDays for markets that never close. Every date
// is a trading day; each lookup yields a window of that many days next to the
// requested one and walks fetch the following window as they reach its end.
type EveryDay int

// DefaultWindow is the EveryDay window used when none is configured.
const DefaultWindow = 365

func (w EveryDay) size() int {
	if w <= 0 {
		return DefaultWindow
	}
	return int(w)
}

// TradeDaysGTE implements TradeDays. The zero day has no horizon to select
// and yields nothing.
func (w EveryDay) TradeDaysGTE(day time.Time) []time.Time {
	if day.IsZero() {
		return nil
	}
	day = domain.DateOf(day)
	out := make([]time.Time, w.size())
	for i := range out {
		out[i] = day.AddDate(0, 0, i)
	}
	return out
}

// TradeDaysLTE implements TradeDays.
func (w EveryDay) TradeDaysLTE(day time.Time) []time.Time {
	if day.IsZero() {
		return nil
	}
	day = domain.DateOf(day)
	n := w.size()
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day.AddDate(0, 0, i-n+1)
	}
	return out
}

// Status implements TradeDays.
func (w EveryDay) Status(time.Time) (domain.DayStatus, bool) {
	return domain.DayTrading, true
}
