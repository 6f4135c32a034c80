// Package calendar computes trading sessions and bar (K-line) boundaries for
// markets whose sessions break for lunch, cross midnight or change around
// holidays.
//
// A Calendar is built once from a Config and a TradeDays provider and is
// read-only afterwards, so it may be shared by any number of goroutines.
// Sub-day bar boundaries come from a grid precomputed per interval; Daily,
// Weekly and Monthly bars are produced by walking the trading days.
package calendar

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"quantcal/internal/domain"
)

// Config describes one market calendar.
type Config struct {
	Name     string
	Location *time.Location
	// Offset is where the trading day starts relative to the label's
	// midnight. A market whose trading day opens at 21:00 the evening before
	// uses -3h; the date of t-Offset is the label t belongs to.
	Offset          time.Duration
	Sessions        []domain.Session
	SpecialSessions []domain.SpecialSession
	// Intervals lists the sub-day intervals that get a grid. Daily, Weekly
	// and Monthly are always available.
	Intervals []domain.Interval
	Side      domain.Side
}

// Option configures optional Calendar dependencies.
type Option func(*options)

type options struct {
	log        *slog.Logger
	normalizer *SymbolNormalizer
}

// WithLogger sets the logger used during construction.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithNormalizer sets the symbol normalizer used by For.
func WithNormalizer(n *SymbolNormalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// dayPlan is everything a query needs to know about one trading day.
type dayPlan struct {
	tmpl *template
	day  []span
	bars map[domain.Interval][]barSpan
}

// specialDay is the override attached to one trading day.
type specialDay struct {
	plan    *dayPlan
	record  domain.SpecialSession
	derived bool
}

// Calendar answers session and bar-time queries for one session template.
type Calendar struct {
	name      string
	product   string
	loc       *time.Location
	offset    int
	side      domain.Side
	intervals []domain.Interval
	days      TradeDays

	base    *dayPlan
	special map[time.Time]specialDay
	plans   map[string]*dayPlan

	products   map[string]*Calendar
	normalizer *SymbolNormalizer
	log        *slog.Logger
}

// New builds a calendar without per-product sub-calendars. Use NewBuilder to
// attach products.
func New(cfg Config, days TradeDays, opts ...Option) (*Calendar, error) {
	return NewBuilder(cfg, days, opts...).Build()
}

func newCalendar(cfg Config, days TradeDays, log *slog.Logger) (*Calendar, error) {
	if days == nil {
		return nil, fmt.Errorf("%w: %s: no trade days", ErrInvalidConfig, cfg.Name)
	}
	if cfg.Offset%time.Second != 0 || cfg.Offset <= -24*time.Hour || cfg.Offset >= 24*time.Hour {
		return nil, fmt.Errorf("%w: %s: offset %s must be whole seconds within a day", ErrInvalidConfig, cfg.Name, cfg.Offset)
	}
	side := cfg.Side
	switch side {
	case "":
		side = domain.SideRight
	case domain.SideRight, domain.SideLeft:
	default:
		return nil, fmt.Errorf("%w: %s: unknown side %q", ErrInvalidConfig, cfg.Name, cfg.Side)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[domain.Interval]bool, len(cfg.Intervals))
	var intervals []domain.Interval
	for _, iv := range cfg.Intervals {
		if !iv.IntraDay() {
			return nil, fmt.Errorf("%w: %s: %d seconds", ErrInvalidInterval, cfg.Name, int(iv))
		}
		if !seen[iv] {
			seen[iv] = true
			intervals = append(intervals, iv)
		}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })

	c := &Calendar{
		name:      cfg.Name,
		loc:       loc,
		offset:    int(cfg.Offset / time.Second),
		side:      side,
		intervals: intervals,
		days:      days,
		special:   make(map[time.Time]specialDay),
		plans:     make(map[string]*dayPlan),
		log:       log,
	}

	tmpl, err := linearize(cfg.Sessions, c.offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	c.base = c.plan(tmpl, nil)

	if err := c.applySpecialSessions(cfg.SpecialSessions); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	derived, err := c.deriveHolidaySessions()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	c.log.Debug("calendar built",
		"calendar", c.name,
		"sessions", len(tmpl.sessions),
		"intervals", len(c.intervals),
		"special_sessions", len(cfg.SpecialSessions),
		"derived_sessions", derived,
	)
	return c, nil
}

// plan returns the shared plan for a template and day view, building its
// grids on first use. A nil day view means the merged span of the template.
func (c *Calendar) plan(t *template, day []span) *dayPlan {
	if day == nil {
		day = t.merged()
	}
	key := signature(t.sessions) + "|" + signature(day)
	if p, ok := c.plans[key]; ok {
		return p
	}
	p := &dayPlan{
		tmpl: t,
		day:  day,
		bars: make(map[domain.Interval][]barSpan, len(c.intervals)),
	}
	for _, iv := range c.intervals {
		p.bars[iv] = buildBars(t, int(iv))
	}
	c.plans[key] = p
	return p
}

// planFor returns the plan of a trading day.
func (c *Calendar) planFor(day time.Time) *dayPlan {
	if sd, ok := c.special[day]; ok {
		return sd.plan
	}
	return c.base
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Name returns the configured calendar name.
func (c *Calendar) Name() string { return c.name }

// Product returns the product a sub-calendar was derived for, or "" for a
// base calendar.
func (c *Calendar) Product() string { return c.product }

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Offset returns the trading-day offset.
func (c *Calendar) Offset() time.Duration { return time.Duration(c.offset) * time.Second }

// Side returns the bar labelling convention.
func (c *Calendar) Side() domain.Side { return c.side }

// Intervals returns the sub-day intervals with a grid, ascending.
func (c *Calendar) Intervals() []domain.Interval {
	return append([]domain.Interval(nil), c.intervals...)
}

// Sessions returns the session template as configured.
func (c *Calendar) Sessions() []domain.Session {
	return append([]domain.Session(nil), c.base.tmpl.raw...)
}

// Grid returns the boundaries of interval for an ordinary trading day.
func (c *Calendar) Grid(interval domain.Interval) (Grid, error) {
	return c.gridOf(c.base, interval)
}

// GridOn returns the boundaries of interval for the given trading day,
// honouring its special session if it has one.
func (c *Calendar) GridOn(day time.Time, interval domain.Interval) (Grid, error) {
	return c.gridOf(c.planFor(domain.DateOf(day)), interval)
}

func (c *Calendar) gridOf(p *dayPlan, interval domain.Interval) (Grid, error) {
	bars, ok := p.bars[interval]
	if !ok {
		return Grid{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedInterval, interval, c.name)
	}
	return newGrid(bars, interval, c.side), nil
}

func (c *Calendar) String() string {
	if c.product != "" {
		return fmt.Sprintf("%s[%s]", c.name, c.product)
	}
	return c.name
}
