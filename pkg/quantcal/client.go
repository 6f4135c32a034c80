// Package quantcal is the Go SDK for the quantcal calendar server.
package quantcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides a Go SDK for interacting with the quantcal-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quantcal API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quantcal: %d %s", e.StatusCode, e.Message)
}

// OutOfCalendar reports whether the server ran out of trade days for the
// query.
func (e *APIError) OutOfCalendar() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// Calendars lists the calendars the server has loaded.
func (c *Client) Calendars(ctx context.Context) (*CalendarsResponse, error) {
	var resp CalendarsResponse
	if err := c.get(ctx, "/api/calendars", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsTrading reports whether market (narrowed to symbol when non-empty)
// trades at t.
func (c *Client) IsTrading(ctx context.Context, market, symbol string, t time.Time) (*TradingResponse, error) {
	var resp TradingResponse
	if err := c.get(ctx, marketPath(market, "trading"), timeParams(symbol, t), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TradingDay reports whether t falls on a trading day.
func (c *Client) TradingDay(ctx context.Context, market, symbol string, t time.Time) (*TradingDayResponse, error) {
	var resp TradingDayResponse
	if err := c.get(ctx, marketPath(market, "trading-day"), timeParams(symbol, t), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns the next open and close around t, breaks included.
func (c *Client) Session(ctx context.Context, market, symbol string, t time.Time) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.get(ctx, marketPath(market, "session"), timeParams(symbol, t), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OpenClose returns the next open and close around t with breaks merged.
func (c *Client) OpenClose(ctx context.Context, market, symbol string, t time.Time) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.get(ctx, marketPath(market, "open-close"), timeParams(symbol, t), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BarTime returns the label of the interval bar containing t.
func (c *Client) BarTime(ctx context.Context, market, symbol, interval string, t time.Time) (*BarTimeResponse, error) {
	q := timeParams(symbol, t)
	q.Set("interval", interval)
	var resp BarTimeResponse
	if err := c.get(ctx, marketPath(market, "bartime"), q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BarTimes returns the bar labels in [start, end).
func (c *Client) BarTimes(ctx context.Context, market, symbol, interval string, start, end time.Time) (*BarTimesResponse, error) {
	q := url.Values{}
	setNonEmpty(q, "symbol", symbol)
	q.Set("interval", interval)
	q.Set("start", start.Format(time.RFC3339Nano))
	q.Set("end", end.Format(time.RFC3339Nano))
	var resp BarTimesResponse
	if err := c.get(ctx, marketPath(market, "bartimes"), q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NextBarTimes returns the first count bar labels at or after start.
func (c *Client) NextBarTimes(ctx context.Context, market, symbol, interval string, start time.Time, count int) (*BarTimesResponse, error) {
	q := url.Values{}
	setNonEmpty(q, "symbol", symbol)
	q.Set("interval", interval)
	q.Set("start", start.Format(time.RFC3339Nano))
	q.Set("count", strconv.Itoa(count))
	var resp BarTimesResponse
	if err := c.get(ctx, marketPath(market, "bartimes"), q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Grid returns the bar boundaries of an ordinary trading day, or of date
// ("2006-01-02") when non-empty.
func (c *Client) Grid(ctx context.Context, market, symbol, interval, date string) (*GridResponse, error) {
	q := url.Values{}
	setNonEmpty(q, "symbol", symbol)
	setNonEmpty(q, "date", date)
	q.Set("interval", interval)
	var resp GridResponse
	if err := c.get(ctx, marketPath(market, "grid"), q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query runs the calendar operation op ("trading", "session", "bartimes"
// and so on) with raw parameters and decodes the answer into v.
func (c *Client) Query(ctx context.Context, market, op string, q url.Values, v any) error {
	return c.get(ctx, marketPath(market, op), q, v)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func marketPath(market, op string) string {
	return "/api/calendars/" + url.PathEscape(market) + "/" + op
}

func timeParams(symbol string, t time.Time) url.Values {
	q := url.Values{}
	setNonEmpty(q, "symbol", symbol)
	if !t.IsZero() {
		q.Set("t", t.Format(time.RFC3339Nano))
	}
	return q
}

func setNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
