package calendar

import (
	"fmt"
	"time"

	"quantcal/internal/domain"
)

// Inputs are converted to the calendar's location and handled as naive wall
// clock (UTC fields) internally; results are converted back.

func (c *Calendar) naive(t time.Time) time.Time {
	t = t.In(c.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func (c *Calendar) wall(n time.Time) time.Time {
	y, m, d := n.Date()
	return time.Date(y, m, d, n.Hour(), n.Minute(), n.Second(), n.Nanosecond(), c.loc)
}

// label returns the trading-day label of a naive time.
func (c *Calendar) label(n time.Time) time.Time {
	return domain.DateOf(n.Add(-time.Duration(c.offset) * time.Second))
}

// ---------------------------------------------------------------------------
// Day walk
// ---------------------------------------------------------------------------

// dayIter yields trading days in order together with the trading day before
// each of them. When rest runs dry it asks days for more, which lets an
// unbounded provider hand out its days a window at a time.
type dayIter struct {
	days TradeDays
	head []time.Time
	rest []time.Time
	prev time.Time
}

// daysFrom starts a walk at the trading day before the label of n, so that a
// bar closing exactly at n is not skipped, or earlier when back days of
// history are needed.
func (c *Calendar) daysFrom(n time.Time, back int) *dayIter {
	lbl := c.label(n)
	it := &dayIter{days: c.days, rest: c.days.TradeDaysGTE(lbl)}
	lte := c.days.TradeDaysLTE(lbl.AddDate(0, 0, -1))
	if len(lte) == 0 {
		return it
	}
	// Always take the last trading day before the label, plus any earlier
	// ones inside the look-back window.
	i := len(lte) - 1
	floor := lbl.AddDate(0, 0, -back)
	for i > 0 && !lte[i-1].Before(floor) {
		i--
	}
	if i > 0 {
		it.prev = lte[i-1]
	}
	it.head = lte[i:]
	return it
}

func (it *dayIter) next() (day, prev time.Time, ok bool) {
	it.refill()
	switch {
	case len(it.head) > 0:
		day = it.head[0]
		it.head = it.head[1:]
	case len(it.rest) > 0:
		day = it.rest[0]
		it.rest = it.rest[1:]
	default:
		return time.Time{}, time.Time{}, false
	}
	prev = it.prev
	it.prev = day
	return day, prev, true
}

func (it *dayIter) refill() {
	if len(it.head) > 0 || len(it.rest) > 0 || it.prev.IsZero() || it.days == nil {
		return
	}
	it.rest = it.days.TradeDaysGTE(it.prev.AddDate(0, 0, 1))
	if len(it.rest) == 0 {
		it.days = nil
	}
}

func (it *dayIter) peek() (time.Time, bool) {
	it.refill()
	switch {
	case len(it.head) > 0:
		return it.head[0], true
	case len(it.rest) > 0:
		return it.rest[0], true
	}
	return time.Time{}, false
}

// anchor turns timeline offsets of one trading day into naive times. Night
// sessions hang off the evening of the previous trading day (so a Friday
// night belongs to Monday), everything else off the label itself.
type anchor struct {
	day      time.Time
	night    time.Time
	split    int
	hasNight bool
}

func (c *Calendar) anchorOf(day, prev time.Time, p *dayPlan) anchor {
	a := anchor{day: day, night: day, split: p.tmpl.night, hasNight: p.tmpl.hasNight}
	if !prev.IsZero() {
		a.night = prev.AddDate(0, 0, 1)
	}
	return a
}

func (a anchor) at(v int) time.Time {
	base := a.day
	if a.hasNight && v <= a.split {
		base = a.night
	}
	return base.Add(time.Duration(v) * time.Second)
}

// bar is one bar in naive wall-clock time.
type bar struct {
	start, end time.Time
}

// walkBars calls fn for every bar of interval, in order, starting a little
// before n. It stops when fn returns false and fails with ErrOutOfCalendar
// when the trading days run out first.
func (c *Calendar) walkBars(n time.Time, interval domain.Interval, fn func(bar) bool) error {
	if _, ok := c.base.bars[interval]; ok {
		it := c.daysFrom(n, 1)
		for {
			day, prev, ok := it.next()
			if !ok {
				return ErrOutOfCalendar
			}
			p := c.planFor(day)
			a := c.anchorOf(day, prev, p)
			for _, b := range p.bars[interval] {
				if !fn(bar{start: a.at(b.start), end: a.at(b.end)}) {
					return nil
				}
			}
		}
	}

	switch interval {
	case domain.Daily:
		it := c.daysFrom(n, 1)
		for {
			day, prev, ok := it.next()
			if !ok {
				return ErrOutOfCalendar
			}
			open, close := c.dayBounds(day, prev)
			if !fn(bar{start: open, end: close}) {
				return nil
			}
		}
	case domain.Weekly, domain.Monthly:
		return c.walkPeriods(n, interval, fn)
	}
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedInterval, interval, c)
}

// dayBounds returns the first open and last close of a day's day view.
func (c *Calendar) dayBounds(day, prev time.Time) (time.Time, time.Time) {
	p := c.planFor(day)
	a := c.anchorOf(day, prev, p)
	return a.at(p.day[0].open), a.at(p.day[len(p.day)-1].close)
}

// walkPeriods emits one bar per ISO week or calendar month. A period is
// closed after the last trading day whose successor falls in a new period,
// so the walk needs one day of lookahead.
func (c *Calendar) walkPeriods(n time.Time, interval domain.Interval, fn func(bar) bool) error {
	key := func(d time.Time) int {
		if interval == domain.Weekly {
			y, w := d.ISOWeek()
			return y*100 + w
		}
		return d.Year()*100 + int(d.Month())
	}
	// Start far enough back to see the first day of the current period.
	it := c.daysFrom(n, 38)
	var open time.Time
	for {
		day, prev, ok := it.next()
		if !ok {
			return ErrOutOfCalendar
		}
		dOpen, dClose := c.dayBounds(day, prev)
		if open.IsZero() || (!prev.IsZero() && key(prev) != key(day)) {
			open = dOpen
		}
		next, ok := it.peek()
		if !ok {
			return ErrOutOfCalendar
		}
		if key(next) == key(day) {
			continue
		}
		if !fn(bar{start: open, end: dClose}) {
			return nil
		}
		open = time.Time{}
	}
}

// ---------------------------------------------------------------------------
// Bar queries
// ---------------------------------------------------------------------------

// CurrentBarTime returns the label of the bar containing t. With the right
// side that is the first boundary at or after t, so a time exactly on a
// boundary belongs to the bar it closes. With the left side it is the start
// of the first bar that ends after t; outside trading hours that is the next
// bar to open.
func (c *Calendar) CurrentBarTime(t time.Time, interval domain.Interval) (time.Time, error) {
	n := c.naive(t)
	var got time.Time
	err := c.walkBars(n, interval, func(b bar) bool {
		if c.side == domain.SideLeft {
			if b.end.After(n) {
				got = b.start
				return false
			}
			return true
		}
		if !b.end.Before(n) {
			got = b.end
			return false
		}
		return true
	})
	if err != nil {
		return time.Time{}, err
	}
	return c.wall(got), nil
}

// NextBarTimes returns the first count bar labels at or after start.
// It fails with ErrOutOfCalendar, returning what it found, when the trading
// days run out first.
func (c *Calendar) NextBarTimes(interval domain.Interval, start time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}
	n := c.naive(start)
	out := make([]time.Time, 0, count)
	err := c.walkBars(n, interval, func(b bar) bool {
		v := c.labelOf(b)
		if v.Before(n) {
			return true
		}
		out = append(out, c.wall(v))
		return len(out) < count
	})
	return out, err
}

// BarTimes returns the bar labels in [start, end). It fails with
// ErrOutOfCalendar, returning what it found, when the trading days end before
// end is reached.
func (c *Calendar) BarTimes(interval domain.Interval, start, end time.Time) ([]time.Time, error) {
	return c.BarTimesMax(interval, start, end, 0)
}

// BarTimesMax is BarTimes that gives up with ErrTooManyBars, returning the
// first limit labels, as soon as the range turns out to hold more than limit
// bars. A limit of zero or less means no limit.
func (c *Calendar) BarTimesMax(interval domain.Interval, start, end time.Time, limit int) ([]time.Time, error) {
	ns, ne := c.naive(start), c.naive(end)
	var out []time.Time
	if !ns.Before(ne) {
		return out, c.checkInterval(interval)
	}
	var tooMany bool
	err := c.walkBars(ns, interval, func(b bar) bool {
		v := c.labelOf(b)
		if !v.Before(ne) {
			return false
		}
		if v.Before(ns) {
			return true
		}
		if limit > 0 && len(out) == limit {
			tooMany = true
			return false
		}
		out = append(out, c.wall(v))
		return true
	})
	if err == nil && tooMany {
		err = fmt.Errorf("%w: more than %d", ErrTooManyBars, limit)
	}
	return out, err
}

func (c *Calendar) labelOf(b bar) time.Time {
	if c.side == domain.SideLeft {
		return b.start
	}
	return b.end
}

func (c *Calendar) checkInterval(interval domain.Interval) error {
	if _, ok := c.base.bars[interval]; ok {
		return nil
	}
	switch interval {
	case domain.Daily, domain.Weekly, domain.Monthly:
		return nil
	}
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedInterval, interval, c)
}

// ---------------------------------------------------------------------------
// Session queries
// ---------------------------------------------------------------------------

// walkSpans calls fn with the open and close of each session (or of each day
// view span when dayView is set) from shortly before n onwards.
func (c *Calendar) walkSpans(n time.Time, dayView bool, fn func(open, close time.Time) bool) error {
	it := c.daysFrom(n, 1)
	for {
		day, prev, ok := it.next()
		if !ok {
			return ErrOutOfCalendar
		}
		p := c.planFor(day)
		a := c.anchorOf(day, prev, p)
		spans := p.tmpl.sessions
		if dayView {
			spans = p.day
		}
		for _, s := range spans {
			if !fn(a.at(s.open), a.at(s.close)) {
				return nil
			}
		}
	}
}

// nextOpenClose finds the first open strictly after n and the first close
// after n (or at n when closeAt is set).
func (c *Calendar) nextOpenClose(t time.Time, dayView, closeAt bool) (time.Time, time.Time, error) {
	n := c.naive(t)
	var open, close time.Time
	err := c.walkSpans(n, dayView, func(o, cl time.Time) bool {
		if open.IsZero() && o.After(n) {
			open = o
		}
		if close.IsZero() && (cl.After(n) || (closeAt && cl.Equal(n))) {
			close = cl
		}
		return open.IsZero() || close.IsZero()
	})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return c.wall(open), c.wall(close), nil
}

// OpenClose returns the next open and the next close after t in the day
// view, where a lunch break does not count as a close.
func (c *Calendar) OpenClose(t time.Time) (open, close time.Time, err error) {
	return c.nextOpenClose(t, true, false)
}

// Session returns the next open after t and the next close at or after t,
// counting every break as a close followed by a reopen.
func (c *Calendar) Session(t time.Time) (open, close time.Time, err error) {
	return c.nextOpenClose(t, false, true)
}

// IsTrading reports whether the market is open at t: the next close comes no
// later than the next open. A close that coincides with the next open joins
// two sessions without a gap, as at midnight on a market that never closes.
func (c *Calendar) IsTrading(t time.Time) (bool, error) {
	open, close, err := c.Session(t)
	if err != nil {
		return false, err
	}
	return !close.After(open), nil
}

// IsTradingDay reports whether t falls on a trading day: either its label,
// the date of t-Offset, is a trading day, or t lies in the evening of one.
// The evening of a day runs until its night sessions close, so a Friday
// night and the evening before a holiday count as the day they start on.
func (c *Calendar) IsTradingDay(t time.Time) (bool, error) {
	n := c.naive(t)
	st, ok := c.days.Status(c.label(n))
	if !ok {
		return false, ErrOutOfCalendar
	}
	if st == domain.DayTrading {
		return true, nil
	}
	if tmpl := c.base.tmpl; tmpl.hasNight {
		// The night close itself still belongs to the evening.
		eve := domain.DateOf(n.Add(-time.Duration(tmpl.night)*time.Second - time.Nanosecond))
		if st, ok := c.days.Status(eve); ok && st == domain.DayTrading {
			return true, nil
		}
	}
	return false, nil
}
