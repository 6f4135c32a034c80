package quantcal

import "time"

// CalendarInfo describes one loaded market calendar.
type CalendarInfo struct {
	Market    string   `json:"market"`
	Name      string   `json:"name"`
	Timezone  string   `json:"timezone"`
	Offset    string   `json:"offset"`
	Sessions  []string `json:"sessions"`
	Intervals []string `json:"intervals"`
	Side      string   `json:"side"`
	Products  []string `json:"products,omitempty"`
}

// CalendarsResponse is the body of GET /api/calendars.
type CalendarsResponse struct {
	Calendars []CalendarInfo `json:"calendars"`
}

// TradingResponse answers whether the market trades at Time.
type TradingResponse struct {
	Market  string    `json:"market"`
	Symbol  string    `json:"symbol,omitempty"`
	Time    time.Time `json:"t"`
	Trading bool      `json:"trading"`
}

// TradingDayResponse answers whether Time falls on a trading day.
type TradingDayResponse struct {
	Market     string    `json:"market"`
	Symbol     string    `json:"symbol,omitempty"`
	Time       time.Time `json:"t"`
	TradingDay bool      `json:"trading_day"`
}

// SessionResponse holds the next open and close around Time.
type SessionResponse struct {
	Market  string    `json:"market"`
	Symbol  string    `json:"symbol,omitempty"`
	Time    time.Time `json:"t"`
	Open    time.Time `json:"open"`
	Close   time.Time `json:"close"`
	Trading bool      `json:"trading"`
}

// BarTimeResponse holds the label of the bar containing Time.
type BarTimeResponse struct {
	Market   string    `json:"market"`
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval"`
	Time     time.Time `json:"t"`
	BarTime  time.Time `json:"bar_time"`
}

// BarTimesResponse lists bar labels.
type BarTimesResponse struct {
	Market   string      `json:"market"`
	Symbol   string      `json:"symbol,omitempty"`
	Interval string      `json:"interval"`
	BarTimes []time.Time `json:"bar_times"`
}

// GridResponse lists the bar boundaries of one trading day as times of day.
// NextDay marks boundaries at the midnight that ends the day.
type GridResponse struct {
	Market     string   `json:"market"`
	Symbol     string   `json:"symbol,omitempty"`
	Interval   string   `json:"interval"`
	Side       string   `json:"side"`
	Date       string   `json:"date,omitempty"`
	Boundaries []string `json:"boundaries"`
	NextDay    []bool   `json:"next_day"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
