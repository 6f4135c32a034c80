package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quantcal/internal/domain"
)

// Source reads persisted calendar data for a market.
type Source interface {
	ReadTradeDays(ctx context.Context, market domain.Market) ([]domain.TradeDay, error)
	ReadProductSessions(ctx context.Context, market domain.Market) ([]domain.ProductSessions, error)
	ReadSpecialSessions(ctx context.Context, market domain.Market) ([]domain.SpecialSession, error)
}

// LoadSpec names a market calendar to load.
type LoadSpec struct {
	Market domain.Market
	Config Config
	// Continuous generates trading days instead of reading them from the
	// source: HorizonDays of them starting at From, or every date when From
	// is zero.
	Continuous  bool
	From        time.Time
	HorizonDays int
}

// Load reads a market's trade days, product templates and special sessions
// from src and builds its calendar. Persisted special sessions are added to
// the configured ones; a configured session wins on the same date. A
// continuous spec may pass a nil src.
func Load(ctx context.Context, src Source, spec LoadSpec, opts ...Option) (*Calendar, error) {
	if src == nil {
		if !spec.Continuous {
			return nil, fmt.Errorf("%w: %s needs a source", ErrInvalidConfig, spec.Market)
		}
		return New(spec.Config, spec.continuousDays(), opts...)
	}

	var days TradeDays
	if spec.Continuous {
		days = spec.continuousDays()
	} else {
		records, err := src.ReadTradeDays(ctx, spec.Market)
		if err != nil {
			return nil, fmt.Errorf("reading trade days for %s: %w", spec.Market, err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: no trade days stored for %s", ErrOutOfCalendar, spec.Market)
		}
		days = NewDayIndex(records)
	}

	specials, err := src.ReadSpecialSessions(ctx, spec.Market)
	if err != nil {
		return nil, fmt.Errorf("reading special sessions for %s: %w", spec.Market, err)
	}
	cfg := spec.Config
	cfg.SpecialSessions = mergeSpecials(cfg.SpecialSessions, specials)

	products, err := src.ReadProductSessions(ctx, spec.Market)
	if err != nil {
		return nil, fmt.Errorf("reading product sessions for %s: %w", spec.Market, err)
	}

	b := NewBuilder(cfg, days, opts...)
	for _, p := range products {
		b.AddProduct(p.ProductID, p.Sessions)
	}
	return b.Build()
}

func (spec LoadSpec) continuousDays() TradeDays {
	if spec.From.IsZero() {
		return EveryDay(spec.HorizonDays)
	}
	return ContinuousDays(spec.From, horizon(spec.HorizonDays))
}

func horizon(n int) int {
	if n <= 0 {
		return 365
	}
	return n
}

func mergeSpecials(configured, stored []domain.SpecialSession) []domain.SpecialSession {
	seen := make(map[time.Time]bool, len(configured))
	out := append([]domain.SpecialSession(nil), configured...)
	for _, ss := range configured {
		seen[domain.DateOf(ss.Date)] = true
	}
	for _, ss := range stored {
		d := domain.DateOf(ss.Date)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, ss)
	}
	return out
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

// Set holds the calendars of several markets. It is immutable once loaded.
type Set struct {
	cals map[domain.Market]*Calendar
}

// NewSet wraps already built calendars, keyed by market.
func NewSet(cals map[domain.Market]*Calendar) *Set {
	s := &Set{cals: make(map[domain.Market]*Calendar, len(cals))}
	for m, c := range cals {
		s.cals[m] = c
	}
	return s
}

// LoadSet loads every spec concurrently. The first failure cancels the rest.
func LoadSet(ctx context.Context, src Source, specs []LoadSpec, log *slog.Logger, opts ...Option) (*Set, error) {
	if log == nil {
		log = slog.Default()
	}
	var mu sync.Mutex
	cals := make(map[domain.Market]*Calendar, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		g.Go(func() error {
			start := time.Now()
			o := append(append([]Option(nil), opts...), WithLogger(log.With("market", spec.Market)))
			cal, err := Load(gctx, src, spec, o...)
			if err != nil {
				return fmt.Errorf("loading %s calendar: %w", spec.Market, err)
			}
			mu.Lock()
			cals[spec.Market] = cal
			mu.Unlock()
			log.Info("calendar loaded", "market", spec.Market, "products", len(cal.Products()), "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Set{cals: cals}, nil
}

// Get returns the calendar of a market.
func (s *Set) Get(market domain.Market) (*Calendar, bool) {
	c, ok := s.cals[market]
	return c, ok
}

// Markets lists the loaded markets, sorted.
func (s *Set) Markets() []domain.Market {
	out := make([]domain.Market, 0, len(s.cals))
	for m := range s.cals {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
