package calendar

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"quantcal/internal/domain"
)

// Builder assembles a base calendar and its per-product sub-calendars.
// Nothing is validated until Build, which returns a calendar that is never
// modified again.
type Builder struct {
	cfg      Config
	days     TradeDays
	opts     options
	products []productConfig
}

type productConfig struct {
	id       string
	sessions []domain.Session
	special  []domain.SpecialSession
}

// NewBuilder starts a calendar from a base configuration.
func NewBuilder(cfg Config, days TradeDays, opts ...Option) *Builder {
	b := &Builder{cfg: cfg, days: days}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// AddProduct registers a product with its own session template. The product
// shares the base's offset, intervals, side and location. Configured special
// sessions are not inherited from the base; pass the product's own.
func (b *Builder) AddProduct(id string, sessions []domain.Session, special ...domain.SpecialSession) *Builder {
	b.products = append(b.products, productConfig{id: id, sessions: sessions, special: special})
	return b
}

// Build validates the configuration and builds every calendar.
func (b *Builder) Build() (*Calendar, error) {
	log := b.opts.log
	if log == nil {
		log = slog.Default()
	}
	base, err := newCalendar(b.cfg, b.days, log)
	if err != nil {
		return nil, err
	}
	base.normalizer = b.opts.normalizer
	if base.normalizer == nil {
		base.normalizer = NewSymbolNormalizer(DefaultNormalizerSize)
	}

	base.products = make(map[string]*Calendar, len(b.products))
	for _, p := range b.products {
		id := strings.ToUpper(strings.TrimSpace(p.id))
		if id == "" {
			return nil, fmt.Errorf("%w: %s: empty product id", ErrInvalidConfig, b.cfg.Name)
		}
		if _, dup := base.products[id]; dup {
			return nil, fmt.Errorf("%w: %s: product %s added twice", ErrInvalidConfig, b.cfg.Name, id)
		}
		cfg := b.cfg
		cfg.Sessions = p.sessions
		cfg.SpecialSessions = p.special
		sub, err := newCalendar(cfg, b.days, log.With("product", id))
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		sub.product = id
		base.products[id] = sub
	}

	log.Info("calendar ready",
		"calendar", base.name,
		"products", len(base.products),
		"intervals", len(base.intervals),
	)
	return base, nil
}

// For returns the sub-calendar of the product symbol belongs to, or the
// calendar itself when symbol is empty or names no registered product.
// Called on a sub-calendar it returns the sub-calendar.
func (c *Calendar) For(symbol string) *Calendar {
	if symbol == "" || len(c.products) == 0 {
		return c
	}
	if sub, ok := c.products[c.normalizer.Normalize(symbol)]; ok {
		return sub
	}
	return c
}

// ProductCalendar returns the sub-calendar registered under a product id.
func (c *Calendar) ProductCalendar(id string) (*Calendar, bool) {
	sub, ok := c.products[strings.ToUpper(id)]
	return sub, ok
}

// Products returns the registered product ids, sorted.
func (c *Calendar) Products() []string {
	out := make([]string, 0, len(c.products))
	for id := range c.products {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
