package cn

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quantcal/internal/domain"
	"quantcal/internal/gather"
	"quantcal/internal/store"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*TradeCalGatherer)(nil)

// ---------------------------------------------------------------------------
// Holiday file
// ---------------------------------------------------------------------------

// HolidayFile is the published exchange holiday schedule.
//
//	holidays:
//	  - name: Spring Festival
//	    from: 2024-02-10
//	    to: 2024-02-17
//	closures:
//	  - 2024-02-09
//
// Make-up working weekends are not listed: the exchanges stay shut on them.
type HolidayFile struct {
	Holidays []Holiday `yaml:"holidays"`
	// Closures are working days on which the exchanges do not open.
	Closures []string `yaml:"closures"`
}

// Holiday is one public holiday block, both ends inclusive. To may be empty
// for a single day.
type Holiday struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadHolidayFile reads a holiday schedule from path.
func LoadHolidayFile(path string) (*HolidayFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	hf := &HolidayFile{}
	if err := yaml.Unmarshal(data, hf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return hf, nil
}

// ---------------------------------------------------------------------------
// Day statuses
// ---------------------------------------------------------------------------

// BuildTradeDays assigns a status to every date in r. Weekends are WEEKEND,
// listed holidays HOLIDAY and closures CLOSED; a weekend that touches a
// holiday block becomes part of it. Everything else trades.
func BuildTradeDays(hf *HolidayFile, r gather.DateRange) ([]domain.TradeDay, error) {
	holidays := make(map[time.Time]bool)
	for _, h := range hf.Holidays {
		from, err := domain.ParseDate(h.From)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		to := from
		if h.To != "" {
			if to, err = domain.ParseDate(h.To); err != nil {
				return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
			}
		}
		if to.Before(from) {
			return nil, fmt.Errorf("holiday %q ends before it starts", h.Name)
		}
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			holidays[d] = true
		}
	}
	closures := make(map[time.Time]bool, len(hf.Closures))
	for _, c := range hf.Closures {
		d, err := domain.ParseDate(c)
		if err != nil {
			return nil, fmt.Errorf("closure: %w", err)
		}
		closures[d] = true
	}

	var days []domain.TradeDay
	r.Days(func(d time.Time) {
		st := domain.DayTrading
		switch {
		case holidays[d]:
			st = domain.DayHoliday
		case gather.IsWeekend(d):
			st = domain.DayWeekend
		case closures[d]:
			st = domain.DayClosed
		}
		days = append(days, domain.TradeDay{Date: d, Status: st})
	})
	mergeWeekends(days)
	return days, nil
}

// mergeWeekends turns every run of weekend days next to a holiday into
// holidays.
func mergeWeekends(days []domain.TradeDay) {
	for i := range days {
		if days[i].Status != domain.DayHoliday {
			continue
		}
		for j := i - 1; j >= 0 && days[j].Status == domain.DayWeekend; j-- {
			days[j].Status = domain.DayHoliday
		}
		for j := i + 1; j < len(days) && days[j].Status == domain.DayWeekend; j++ {
			days[j].Status = domain.DayHoliday
		}
	}
}

// ---------------------------------------------------------------------------
// TradeCalGatherer
// ---------------------------------------------------------------------------

// TradeCalGatherer writes the CN trade calendar, and optionally the futures
// product sessions, to the store.
type TradeCalGatherer struct {
	store       store.CalendarStore
	holidayFile string
	productFile string
	dates       gather.DateRange
	markets     []domain.Market
	log         *slog.Logger
}

// NewTradeCalGatherer creates a gatherer for the given markets. An empty
// productFile skips product sessions.
func NewTradeCalGatherer(s store.CalendarStore, holidayFile, productFile string, dates gather.DateRange, markets ...domain.Market) *TradeCalGatherer {
	if len(markets) == 0 {
		markets = []domain.Market{domain.MarketCN, domain.MarketCNFutures}
	}
	return &TradeCalGatherer{
		store:       s,
		holidayFile: holidayFile,
		productFile: productFile,
		dates:       dates,
		markets:     markets,
		log:         slog.Default().With("gatherer", "cn-tradecal"),
	}
}

// Name returns the gatherer identifier.
func (g *TradeCalGatherer) Name() string { return "cn-tradecal" }

// Run builds the day statuses and product sessions and replaces the stored
// ones.
func (g *TradeCalGatherer) Run(ctx context.Context) error {
	hf, err := LoadHolidayFile(g.holidayFile)
	if err != nil {
		return fmt.Errorf("loading holiday file: %w", err)
	}
	days, err := BuildTradeDays(hf, g.dates)
	if err != nil {
		return err
	}
	for _, m := range g.markets {
		if err := g.store.WriteTradeDays(ctx, m, days); err != nil {
			return fmt.Errorf("writing %s trade days: %w", m, err)
		}
	}
	g.log.Info("trade days written",
		"markets", g.markets,
		"from", g.dates.Start.Format(time.DateOnly),
		"to", g.dates.End.Format(time.DateOnly),
		"days", len(days),
		"trading", countTrading(days),
	)

	if g.productFile == "" {
		return nil
	}
	pf, err := LoadProductFile(g.productFile)
	if err != nil {
		return fmt.Errorf("loading product file: %w", err)
	}
	products, err := BuildProductSessions(pf)
	if err != nil {
		return err
	}
	if err := g.store.WriteProductSessions(ctx, domain.MarketCNFutures, products); err != nil {
		return fmt.Errorf("writing product sessions: %w", err)
	}
	g.log.Info("product sessions written", "products", len(products), "contracts", len(pf.Contracts))
	return nil
}

func countTrading(days []domain.TradeDay) int {
	n := 0
	for _, d := range days {
		if d.Status == domain.DayTrading {
			n++
		}
	}
	return n
}
