package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantcal/internal/api"
	"quantcal/internal/calendar"
	"quantcal/internal/config"
	"quantcal/internal/store"
	"quantcal/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/quantcal.yaml"
	if p := os.Getenv("QUANTCAL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	specs, err := cfg.LoadSpecs()
	if err != nil {
		log.Fatalf("calendar config: %v", err)
	}

	st, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	set, err := calendar.LoadSet(ctx, st, specs, logger)
	if err != nil {
		logger.Error("loading calendars", "error", err)
		os.Exit(1)
	}
	logger.Info("calendars ready", "markets", set.Markets(), "elapsed", time.Since(start).Round(time.Millisecond))

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	var grpcAddr string
	if cfg.Server.GRPCPort != 0 {
		grpcAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	}

	srv := api.NewServer(set, httpAddr, grpcAddr, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("quantcal-server stopped")
}
