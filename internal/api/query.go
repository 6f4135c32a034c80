package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quantcal/internal/calendar"
	"quantcal/internal/domain"
	"quantcal/pkg/quantcal"
)

var (
	errUnknownMarket = errors.New("unknown market")
	errBadRequest    = errors.New("bad request")
)

// maxCount bounds the number of bar times a single request may ask for.
const maxCount = 10000

// Params is a read-only view of request parameters. url.Values satisfies it.
type Params interface {
	Get(key string) string
}

// Querier answers calendar queries for both transports.
type Querier struct {
	set   *calendar.Set
	now   func() time.Time
	limit int
}

// NewQuerier creates a Querier over the loaded calendars.
func NewQuerier(set *calendar.Set) *Querier {
	return &Querier{set: set, now: time.Now, limit: maxCount}
}

func (q *Querier) resolve(market string, p Params) (*calendar.Calendar, error) {
	cal, ok := q.set.Get(domain.Market(market))
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownMarket, market)
	}
	return cal.For(p.Get("symbol")), nil
}

// timeLayouts are tried in order for times without a zone offset, which are
// read in the calendar's location.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// parseTime reads a time parameter as RFC 3339, a zone-less local time, or
// Unix seconds. A missing optional parameter is the current time.
func (q *Querier) parseTime(p Params, key string, loc *time.Location, required bool) (time.Time, error) {
	v := strings.TrimSpace(p.Get(key))
	if v == "" {
		if required {
			return time.Time{}, fmt.Errorf("%w: %s is required", errBadRequest, key)
		}
		return q.now(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %s %q", errBadRequest, key, v)
}

func parseInterval(p Params) (domain.Interval, error) {
	v := p.Get("interval")
	if v == "" {
		return 0, fmt.Errorf("%w: interval is required", errBadRequest)
	}
	iv, err := domain.ParseInterval(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return iv, nil
}

// statusOf maps a query error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errUnknownMarket):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrOutOfCalendar):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, calendar.ErrTooManyBars),
		errors.Is(err, calendar.ErrUnsupportedInterval),
		errors.Is(err, calendar.ErrInvalidInterval):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Calendars describes every loaded calendar.
func (q *Querier) Calendars() quantcal.CalendarsResponse {
	resp := quantcal.CalendarsResponse{Calendars: []quantcal.CalendarInfo{}}
	for _, m := range q.set.Markets() {
		cal, _ := q.set.Get(m)
		info := quantcal.CalendarInfo{
			Market:   string(m),
			Name:     cal.Name(),
			Timezone: cal.Location().String(),
			Offset:   cal.Offset().String(),
			Side:     string(cal.Side()),
			Products: cal.Products(),
		}
		for _, s := range cal.Sessions() {
			info.Sessions = append(info.Sessions, s.String())
		}
		for _, iv := range cal.Intervals() {
			info.Intervals = append(info.Intervals, iv.String())
		}
		resp.Calendars = append(resp.Calendars, info)
	}
	return resp
}

// Trading reports whether the market trades at t.
func (q *Querier) Trading(market string, p Params) (quantcal.TradingResponse, error) {
	cal, err := q.resolve(market, p)
	if err != nil {
		return quantcal.TradingResponse{}, err
	}
	t, err := q.parseTime(p, "t", cal.Location(), false)
	if err != nil {
		return quantcal.TradingResponse{}, err
	}
	ok, err := cal.IsTrading(t)
	if err != nil {
		return quantcal.TradingResponse{}, err
	}
	return quantcal.TradingResponse{Market: market, Symbol: p.Get("symbol"), Time: t.In(cal.Location()), Trading: ok}, nil
}

// TradingDay reports whether t falls on a trading day.
func (q *Querier) TradingDay(market string, p Params) (quantcal.TradingDayResponse, error) {
	cal, err := q.resolve(market, p)
	if err != nil {
		return quantcal.TradingDayResponse{}, err
	}
	t, err := q.parseTime(p, "t", cal.Location(), false)
	if err != nil {
		return quantcal.TradingDayResponse{}, err
	}
	ok, err := cal.IsTradingDay(t)
	if err != nil {
		return quantcal.TradingDayResponse{}, err
	}
	return quantcal.TradingDayResponse{Market: market, Symbol: p.Get("symbol"), Time: t.In(cal.Location()), TradingDay: ok}, nil
}

// Session returns the next open and close around t, breaks included.
func (q *Querier) Session(market string, p Params) (quantcal.SessionResponse, error) {
	return q.session(market, p, (*calendar.Calendar).Session)
}

// OpenClose returns the next open and close around t in the day view.
func (q *Querier) OpenClose(market string, p Params) (quantcal.SessionResponse, error) {
	return q.session(market, p, (*calendar.Calendar).OpenClose)
}

func (q *Querier) session(market string, p Params, fn func(*calendar.Calendar, time.Time) (time.Time, time.Time, error)) (quantcal.SessionResponse, error) {
	cal, err := q.resolve(market, p)
	if err != nil {
		return quantcal.SessionResponse{}, err
	}
	t, err := q.parseTime(p, "t", cal.Location(), false)
	if err != nil {
		return quantcal.SessionResponse{}, err
	}
	open, close, err := fn(cal, t)
	if err != nil {
		return quantcal.SessionResponse{}, err
	}
	return quantcal.SessionResponse{
		Market:  market,
		Symbol:  p.Get("symbol"),
		Time:    t.In(cal.Location()),
		Open:    open,
		Close:   close,
		Trading: !close.After(open),
	}, nil
}

// BarTime returns the label of the bar containing t.
func (q *Querier) BarTime(market string, p Params) (quantcal.BarTimeResponse, error) {
	cal, err := q.resolve(market, p)
	if err != nil {
		return quantcal.BarTimeResponse{}, err
	}
	iv, err := parseInterval(p)
	if err != nil {
		return quantcal.BarTimeResponse{}, err
	}
	t, err := q.parseTime(p, "t", cal.Location(), false)
	if err != nil {
		return quantcal.BarTimeResponse{}, err
	}
	bt, err := cal.CurrentBarTime(t, iv)
	if err != nil {
		return quantcal.BarTimeResponse{}, err
	}
	return quantcal.BarTimeResponse{Market: market, Symbol: p.Get("symbol"), Interval: iv.String(), Time: t.In(cal.Location()), BarTime: bt}, nil
}

// BarTimes lists bar labels from start, either count of them or those
// before end.
func (q *Querier) BarTimes(market string, p Params) (quantcal.BarTimesResponse, error) {
	cal, err := q.resolve(market, p)
	if err != nil {
		return quantcal.BarTimesResponse{}, err
	}
	iv, err := parseInterval(p)
	if err != nil {
		return quantcal.BarTimesResponse{}, err
	}
	start, err := q.parseTime(p, "start", cal.Location(), true)
	if err != nil {
		return quantcal.BarTimesResponse{}, err
	}

	var times []time.Time
	if c := p.Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 || n > q.limit {
			return quantcal.BarTimesResponse{}, fmt.Errorf("%w: count must be 1..%d", errBadRequest, q.limit)
		}
		times, err = cal.NextBarTimes(iv, start, n)
		if err != nil {
			return quantcal.BarTimesResponse{}, err
		}
	} else {
		end, err := q.parseTime(p, "end", cal.Location(), true)
		if err != nil {
			return quantcal.BarTimesResponse{}, err
		}
		if times, err = cal.BarTimesMax(iv, start, end, q.limit); err != nil {
			return quantcal.BarTimesResponse{}, err
		}
	}
	if times == nil {
		times = []time.Time{}
	}
	return quantcal.BarTimesResponse{Market: market, Symbol: p.Get("symbol"), Interval: iv.String(), BarTimes: times}, nil
}

// Grid lists the bar boundaries of an ordinary trading day, or of date when
// given.
func (q *Querier) Grid(market string, p Params) (quantcal.GridResponse, error) {
	cal, err := q.resolve(market, p)
	if err != nil {
		return quantcal.GridResponse{}, err
	}
	iv, err := parseInterval(p)
	if err != nil {
		return quantcal.GridResponse{}, err
	}
	var g calendar.Grid
	date := p.Get("date")
	if date != "" {
		day, perr := domain.ParseDate(date)
		if perr != nil {
			return quantcal.GridResponse{}, fmt.Errorf("%w: %v", errBadRequest, perr)
		}
		g, err = cal.GridOn(day, iv)
	} else {
		g, err = cal.Grid(iv)
	}
	if err != nil {
		return quantcal.GridResponse{}, err
	}
	resp := quantcal.GridResponse{
		Market:   market,
		Symbol:   p.Get("symbol"),
		Interval: iv.String(),
		Side:     string(g.Side),
		Date:     date,
	}
	for _, c := range g.Clocks() {
		resp.Boundaries = append(resp.Boundaries, c.String())
		resp.NextDay = append(resp.NextDay, c.NextDay)
	}
	return resp, nil
}
