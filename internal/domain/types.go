// Package domain defines the core value types shared by the calendar engine,
// the stores, the gatherers and the API.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Markets
// ---------------------------------------------------------------------------

// Market identifies a trading venue family. It doubles as the key under which
// trade days and sessions are persisted.
type Market string

const (
	Market7x24      Market = "7x24"
	MarketCN        Market = "cn"
	MarketCNFutures Market = "cn_future"
	MarketUS        Market = "us"
)

// ---------------------------------------------------------------------------
// Day status
// ---------------------------------------------------------------------------

// DayStatus classifies a calendar date. The numeric values are persisted.
type DayStatus int

const (
	DayTrading DayStatus = 1
	DayWeekend DayStatus = 2
	DayHoliday DayStatus = 3
	// DayClosed marks a workday on which the market did not open, such as
	// Lunar New Year's Eve.
	DayClosed DayStatus = 4
)

func (s DayStatus) String() string {
	switch s {
	case DayTrading:
		return "trading"
	case DayWeekend:
		return "weekend"
	case DayHoliday:
		return "holiday"
	case DayClosed:
		return "closed"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the persisted statuses.
func (s DayStatus) Valid() bool {
	return s >= DayTrading && s <= DayClosed
}

// TradeDay is one persisted calendar record. Date is midnight UTC of the
// calendar date it describes.
type TradeDay struct {
	Date   time.Time
	Status DayStatus
}

// DateOf returns midnight UTC of the wall-clock date of t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// Session is one trading window expressed in seconds since local midnight.
// Close may be smaller than Open when the window crosses midnight, and 86400
// denotes the midnight that ends the day.
type Session struct {
	Open  int `json:"open" yaml:"open"`
	Close int `json:"close" yaml:"close"`
}

func (s Session) String() string {
	return formatSeconds(s.Open) + "-" + formatSeconds(s.Close)
}

func formatSeconds(s int) string {
	if s == 86400 {
		return "24:00:00"
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// ProductSessions is the session template of one product, e.g. "AG".
type ProductSessions struct {
	ProductID string
	Sessions  []Session
}

// SpecialSession overrides the template for a single trading day.
// DaySessions is the open/close view with breaks merged away; when empty it
// is derived from Sessions.
type SpecialSession struct {
	Date        time.Time
	DaySessions []Session
	Sessions    []Session
}

// ---------------------------------------------------------------------------
// Intervals
// ---------------------------------------------------------------------------

// Interval is a bar length in seconds.
type Interval int

const (
	Minute  Interval = 60
	Hour    Interval = 3600
	Daily   Interval = 86400
	Weekly  Interval = 7 * 86400
	Monthly Interval = 30 * 86400
)

// Duration returns the interval as a time.Duration. For Monthly the value is
// nominal.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * time.Second
}

// IntraDay reports whether i is a sub-day interval that a grid can hold.
func (i Interval) IntraDay() bool {
	return i > 0 && i < Daily && i%Minute == 0
}

// String renders i in the compact form accepted by ParseInterval.
func (i Interval) String() string {
	switch {
	case i == Daily:
		return "1D"
	case i == Weekly:
		return "1W"
	case i == Monthly:
		return "1M"
	case i > 0 && i%Hour == 0:
		return strconv.Itoa(int(i/Hour)) + "H"
	case i > 0 && i%Minute == 0:
		return strconv.Itoa(int(i/Minute)) + "m"
	}
	return strconv.Itoa(int(i)) + "s"
}

// ParseInterval parses "1m", "15m", "1H", "4H", "1D", "1W" or "1M". Minutes
// use a lower-case m, months an upper-case M; hours and days accept either
// case.
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	switch s[len(s)-1] {
	case 's':
		return Interval(n), nil
	case 'm':
		return Interval(n) * Minute, nil
	case 'h', 'H':
		return Interval(n) * Hour, nil
	case 'd', 'D':
		if n != 1 {
			break
		}
		return Daily, nil
	case 'w', 'W':
		if n != 1 {
			break
		}
		return Weekly, nil
	case 'M':
		if n != 1 {
			break
		}
		return Monthly, nil
	}
	return 0, fmt.Errorf("invalid interval %q", s)
}

// ---------------------------------------------------------------------------
// Bar side
// ---------------------------------------------------------------------------

// Side selects which end of a bar labels it.
type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
)
