package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"quantcal/internal/api"
	"quantcal/internal/calendar"
	"quantcal/internal/domain"
	"quantcal/internal/store"
	"quantcal/pkg/quantcal"
)

var (
	symbol  string
	dayView bool
	count   int
	onDate  string
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List the configured calendars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), "", "calendars", nil)
	},
}

var isTradingCmd = &cobra.Command{
	Use:   "is-trading <market> [time]",
	Short: "Report whether a market trades at a time (default now)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), args[0], "trading", timeArg(args, 1, "t"))
	},
}

var tradingDayCmd = &cobra.Command{
	Use:   "trading-day <market> [time]",
	Short: "Report whether a time falls on a trading day",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), args[0], "trading-day", timeArg(args, 1, "t"))
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session <market> [time]",
	Short: "Show the next open and close around a time",
	Long: `Shows the next open and close around a time. With --day the
breaks inside a trading day are merged away and the close is the end of
the whole day.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		op := "session"
		if dayView {
			op = "open-close"
		}
		return runQuery(cmd.Context(), args[0], op, timeArg(args, 1, "t"))
	},
}

var barTimeCmd = &cobra.Command{
	Use:   "bartime <market> <interval> [time]",
	Short: "Show the label of the bar containing a time",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := timeArg(args, 2, "t")
		q.Set("interval", args[1])
		return runQuery(cmd.Context(), args[0], "bartime", q)
	},
}

var barTimesCmd = &cobra.Command{
	Use:   "bartimes <market> <interval> <start> [end]",
	Short: "List bar labels from start, up to end or --count of them",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := timeArg(args, 3, "end")
		q.Set("interval", args[1])
		q.Set("start", args[2])
		if count > 0 {
			q.Set("count", strconv.Itoa(count))
		} else if len(args) < 4 {
			return fmt.Errorf("bartimes needs an end or --count")
		}
		return runQuery(cmd.Context(), args[0], "bartimes", q)
	},
}

var gridCmd = &cobra.Command{
	Use:   "grid <market> <interval>",
	Short: "Show the bar boundaries of a trading day",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("interval", args[1])
		if onDate != "" {
			q.Set("date", onDate)
		}
		return runQuery(cmd.Context(), args[0], "grid", q)
	},
}

func init() {
	for _, c := range []*cobra.Command{isTradingCmd, tradingDayCmd, sessionCmd, barTimeCmd, barTimesCmd, gridCmd} {
		c.Flags().StringVar(&symbol, "symbol", "", "narrow to the product of a contract, e.g. ag2412")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(calendarsCmd)
	sessionCmd.Flags().BoolVar(&dayView, "day", false, "merge breaks and report the whole trading day")
	barTimesCmd.Flags().IntVar(&count, "count", 0, "number of bars to list instead of an end time")
	gridCmd.Flags().StringVar(&onDate, "date", "", "trading day (2006-01-02) whose special session to honour")
}

// timeArg puts args[i], when present, under key.
func timeArg(args []string, i int, key string) url.Values {
	q := url.Values{}
	if len(args) > i {
		q.Set(key, args[i])
	}
	return q
}

// ---------------------------------------------------------------------------
// Backends
// ---------------------------------------------------------------------------

func runQuery(ctx context.Context, market, op string, q url.Values) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if q != nil && symbol != "" {
		q.Set("symbol", symbol)
	}

	var (
		out any
		err error
	)
	if serverURL != "" {
		out, err = remoteQuery(ctx, quantcal.NewClient(serverURL), market, op, q)
	} else {
		out, err = localQuery(ctx, market, op, q)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func remoteQuery(ctx context.Context, c *quantcal.Client, market, op string, q url.Values) (any, error) {
	if op == "calendars" {
		return c.Calendars(ctx)
	}
	var raw json.RawMessage
	if err := c.Query(ctx, market, op, q, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// localQuery loads the calendars from the store and answers in process. Only
// the queried market is loaded.
func localQuery(ctx context.Context, market, op string, q url.Values) (any, error) {
	specs, err := cfg.LoadSpecs()
	if err != nil {
		return nil, err
	}
	if market != "" {
		var picked []calendar.LoadSpec
		for _, s := range specs {
			if s.Market == domain.Market(market) {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			return nil, fmt.Errorf("market %q is not configured", market)
		}
		specs = picked
	}

	st, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	start := time.Now()
	set, err := calendar.LoadSet(ctx, st, specs, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("calendars loaded", "markets", len(specs), "elapsed", time.Since(start))

	querier := api.NewQuerier(set)
	switch op {
	case "calendars":
		return querier.Calendars(), nil
	case "trading":
		return querier.Trading(market, q)
	case "trading-day":
		return querier.TradingDay(market, q)
	case "session":
		return querier.Session(market, q)
	case "open-close":
		return querier.OpenClose(market, q)
	case "bartime":
		return querier.BarTime(market, q)
	case "bartimes":
		return querier.BarTimes(market, q)
	case "grid":
		return querier.Grid(market, q)
	}
	return nil, fmt.Errorf("unknown query %q", op)
}
