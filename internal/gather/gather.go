// Package gather defines the calendar ingestion jobs run by "quantcal update".
package gather

import (
	"context"
	"fmt"
	"time"

	"quantcal/internal/domain"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass and writes the result to the store.
	Run(ctx context.Context) error
}

// DateRange represents an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses "2006-01-02" bounds. An empty end defaults to
// defaultEnd.
func ParseDateRange(start, end string, defaultEnd time.Time) (DateRange, error) {
	s, err := domain.ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	e := domain.DateOf(defaultEnd)
	if end != "" {
		if e, err = domain.ParseDate(end); err != nil {
			return DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
		}
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("date range %s..%s is empty", start, e.Format(time.DateOnly))
	}
	return DateRange{Start: s, End: e}, nil
}

// Days calls fn for every date in the range.
func (r DateRange) Days(fn func(day time.Time)) {
	for d := domain.DateOf(r.Start); !d.After(r.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// IsWeekend reports whether day is a Saturday or Sunday.
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
