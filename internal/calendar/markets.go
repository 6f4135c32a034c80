package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // Presets must resolve their zones on hosts without zoneinfo.

	"quantcal/internal/domain"
)

func hm(h, m int) int { return h*3600 + m*60 }

func intervals(specs ...string) []domain.Interval {
	out := make([]domain.Interval, len(specs))
	for i, s := range specs {
		iv, err := domain.ParseInterval(s)
		if err != nil {
			panic(err)
		}
		out[i] = iv
	}
	return out
}

// Preset returns the built-in configuration of a market.
func Preset(market domain.Market) (Config, error) {
	switch market {
	case domain.Market7x24:
		return Config{
			Name:      string(market),
			Location:  time.UTC,
			Sessions:  []domain.Session{{Open: 0, Close: secondsPerDay}},
			Intervals: intervals("1m", "3m", "5m", "10m", "15m", "30m", "1H", "2H", "3H", "4H"),
		}, nil

	case domain.MarketCN:
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			return Config{}, fmt.Errorf("loading Asia/Shanghai: %w", err)
		}
		return Config{
			Name:     string(market),
			Location: loc,
			Sessions: []domain.Session{
				{Open: hm(9, 30), Close: hm(11, 30)},
				{Open: hm(13, 0), Close: hm(15, 0)},
			},
			Intervals: intervals("1m", "5m", "15m", "30m", "1H", "2H"),
		}, nil

	case domain.MarketCNFutures:
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			return Config{}, fmt.Errorf("loading Asia/Shanghai: %w", err)
		}
		// The widest commodity template; products narrow it.
		return Config{
			Name:     string(market),
			Location: loc,
			Offset:   -3 * time.Hour,
			Sessions: []domain.Session{
				{Open: hm(21, 0), Close: hm(2, 30)},
				{Open: hm(9, 0), Close: hm(10, 15)},
				{Open: hm(10, 30), Close: hm(11, 30)},
				{Open: hm(13, 30), Close: hm(15, 0)},
			},
			Intervals: intervals("1m", "3m", "5m", "15m", "30m", "1H", "2H", "4H"),
		}, nil

	case domain.MarketUS:
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			return Config{}, fmt.Errorf("loading America/New_York: %w", err)
		}
		return Config{
			Name:      string(market),
			Location:  loc,
			Sessions:  []domain.Session{{Open: hm(9, 30), Close: hm(16, 0)}},
			Intervals: intervals("1m", "5m", "15m", "30m", "1H"),
		}, nil
	}
	return Config{}, fmt.Errorf("%w: no preset for market %q", ErrInvalidConfig, market)
}
