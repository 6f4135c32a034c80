package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quantcal/internal/gather"
	"quantcal/internal/gather/cn"
	"quantcal/internal/gather/us"
	"quantcal/internal/store"
)

var updateCmd = &cobra.Command{
	Use:   "update [cn|us]...",
	Short: "Refresh the stored trade calendars",
	Long: `Rebuilds the stored trade days, product sessions and special
sessions. "cn" reads the exchange holiday and product files named in
gather.cn; "us" downloads the NYSE calendar from Alpaca. Without
arguments both run.`,
	ValidArgs: []string{"cn", "us"},
	Args:      cobra.OnlyValidArgs,
	RunE:      runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"cn", "us"}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var gatherers []gather.Gatherer
	for _, name := range args {
		g, err := newGatherer(name, st)
		if err != nil {
			return err
		}
		gatherers = append(gatherers, g)
	}

	for _, g := range gatherers {
		start := time.Now()
		logger.Info("gatherer starting", "name", g.Name())
		if err := g.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", g.Name(), err)
		}
		logger.Info("gatherer done", "name", g.Name(), "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func newGatherer(name string, st store.CalendarStore) (gather.Gatherer, error) {
	// A year ahead covers the published holiday schedules.
	defaultEnd := time.Now().AddDate(1, 0, 0)

	switch name {
	case "cn":
		c := cfg.Gather.CN
		if c.HolidayFile == "" {
			return nil, fmt.Errorf("gather.cn.holiday_file is not set")
		}
		dates, err := gather.ParseDateRange(orDefault(c.StartDate, "2020-01-01"), c.EndDate, defaultEnd)
		if err != nil {
			return nil, fmt.Errorf("gather.cn: %w", err)
		}
		return cn.NewTradeCalGatherer(st, c.HolidayFile, c.ProductFile, dates), nil

	case "us":
		c := cfg.Gather.US
		if cfg.Alpaca.APIKey == "" {
			return nil, fmt.Errorf("alpaca credentials are not set")
		}
		dates, err := gather.ParseDateRange(orDefault(c.StartDate, "2020-01-01"), c.EndDate, defaultEnd)
		if err != nil {
			return nil, fmt.Errorf("gather.us: %w", err)
		}
		return us.NewCalendarGatherer(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, st, dates, c.RateLimitPerMin), nil
	}
	return nil, fmt.Errorf("unknown gatherer %q", name)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
