package us

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"golang.org/x/time/rate"

	"quantcal/internal/calendar"
	"quantcal/internal/domain"
	"quantcal/internal/gather"
	"quantcal/internal/store"
	"quantcal/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*CalendarGatherer)(nil)

// CalendarFetcher is the part of the Alpaca trading client the gatherer
// needs. *alpaca.Client satisfies it.
type CalendarFetcher interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// Regular NYSE hours, in seconds since midnight ET.
var regularSession = domain.Session{Open: 9*3600 + 30*60, Close: 16 * 3600}

// ---------------------------------------------------------------------------
// CalendarGatherer
// ---------------------------------------------------------------------------

// CalendarGatherer downloads the US equity trading calendar from Alpaca.
// Days Alpaca lists are trading days; other weekdays are holidays. Days with
// shortened hours become special sessions.
type CalendarGatherer struct {
	client  CalendarFetcher
	store   store.CalendarStore
	dates   gather.DateRange
	limiter *rate.Limiter
	backoff util.Backoff
	log     *slog.Logger
}

// NewCalendarGatherer creates a gatherer with its own Alpaca client.
// ratePerMin bounds the calendar requests; zero means 200 per minute.
func NewCalendarGatherer(apiKey, apiSecret, baseURL string, s store.CalendarStore, dates gather.DateRange, ratePerMin int) *CalendarGatherer {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return NewCalendarGathererWithClient(client, s, dates, ratePerMin)
}

// NewCalendarGathererWithClient creates a gatherer around an existing client.
func NewCalendarGathererWithClient(client CalendarFetcher, s store.CalendarStore, dates gather.DateRange, ratePerMin int) *CalendarGatherer {
	if ratePerMin <= 0 {
		ratePerMin = 200
	}
	return &CalendarGatherer{
		client:  client,
		store:   s,
		dates:   dates,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMin)), 1),
		backoff: util.DefaultBackoff,
		log:     slog.Default().With("gatherer", "us-calendar"),
	}
}

// Name returns the gatherer identifier.
func (g *CalendarGatherer) Name() string { return "us-calendar" }

// Run downloads the calendar one year at a time and replaces the stored
// trade days and special sessions of the US market.
func (g *CalendarGatherer) Run(ctx context.Context) error {
	listed := make(map[time.Time]alpaca.CalendarDay)
	for from := g.dates.Start; !from.After(g.dates.End); from = from.AddDate(1, 0, 0) {
		to := from.AddDate(1, 0, -1)
		if to.After(g.dates.End) {
			to = g.dates.End
		}
		days, err := g.fetch(ctx, from, to)
		if err != nil {
			return fmt.Errorf("fetching calendar %s..%s: %w", from.Format(time.DateOnly), to.Format(time.DateOnly), err)
		}
		for _, d := range days {
			day, err := domain.ParseDate(d.Date)
			if err != nil {
				return fmt.Errorf("calendar day %q: %w", d.Date, err)
			}
			listed[day] = d
		}
		g.log.Debug("calendar chunk fetched", "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly), "days", len(days))
	}

	tradeDays, specials, err := BuildCalendar(listed, g.dates)
	if err != nil {
		return err
	}
	if err := g.store.WriteTradeDays(ctx, domain.MarketUS, tradeDays); err != nil {
		return fmt.Errorf("writing trade days: %w", err)
	}
	if err := g.store.WriteSpecialSessions(ctx, domain.MarketUS, specials); err != nil {
		return fmt.Errorf("writing special sessions: %w", err)
	}
	g.log.Info("us calendar written",
		"from", g.dates.Start.Format(time.DateOnly),
		"to", g.dates.End.Format(time.DateOnly),
		"trading", len(listed),
		"special_sessions", len(specials),
	)
	return nil
}

func (g *CalendarGatherer) fetch(ctx context.Context, from, to time.Time) ([]alpaca.CalendarDay, error) {
	var days []alpaca.CalendarDay
	err := util.Retry(ctx, g.backoff, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		days, err = g.client.GetCalendar(alpaca.GetCalendarRequest{Start: from, End: to})
		return err
	})
	return days, err
}

// BuildCalendar assigns a status to every date in r from the days Alpaca
// listed, and returns a special session for each listed day whose hours
// differ from the regular session.
func BuildCalendar(listed map[time.Time]alpaca.CalendarDay, r gather.DateRange) ([]domain.TradeDay, []domain.SpecialSession, error) {
	var (
		days     []domain.TradeDay
		specials []domain.SpecialSession
		err      error
	)
	r.Days(func(d time.Time) {
		if err != nil {
			return
		}
		cd, ok := listed[d]
		switch {
		case ok:
			days = append(days, domain.TradeDay{Date: d, Status: domain.DayTrading})
			var s domain.Session
			if s, err = hours(cd); err != nil {
				return
			}
			if s != regularSession {
				specials = append(specials, domain.SpecialSession{Date: d, Sessions: []domain.Session{s}})
			}
		case gather.IsWeekend(d):
			days = append(days, domain.TradeDay{Date: d, Status: domain.DayWeekend})
		default:
			days = append(days, domain.TradeDay{Date: d, Status: domain.DayHoliday})
		}
	})
	return days, specials, err
}

// hours parses the "09:30" style open and close of a calendar day.
func hours(cd alpaca.CalendarDay) (domain.Session, error) {
	open, err := calendar.ParseClock(cd.Open)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s open: %w", cd.Date, err)
	}
	close, err := calendar.ParseClock(cd.Close)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s close: %w", cd.Date, err)
	}
	return domain.Session{Open: open, Close: close}, nil
}
