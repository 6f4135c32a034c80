package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quantcal/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quantcal.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/quantcal/data"
  sqlite_path: "/tmp/quantcal/quantcal.db"
server:
  host: "0.0.0.0"
  port: 8080
  grpc_port: 9090
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
logging:
  level: "debug"
  format: "text"
calendars:
  - market: cn
  - market: cn_future
    intervals: ["1m", "1H"]
    special_sessions:
      - date: "2024-10-08"
        sessions: ["09:00-10:15", "10:30-11:30", "13:30-15:00"]
  - market: 7x24
    continuous: true
    from: "2024-01-01"
    horizon_days: 400
gather:
  cn:
    holiday_file: "config/cn_holidays.yaml"
    product_file: "config/cn_products.yaml"
    start_date: "2024-01-01"
  us:
    start_date: "2020-01-01"
    rate_limit_per_min: 150
`)

	// Clear any environment overrides that might interfere.
	for _, k := range []string{"ALPACA_API_KEY", "ALPACA_API_SECRET", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "DATA_DIR", "STORAGE_BACKEND", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/quantcal/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/quantcal/data")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want default %q", cfg.Storage.Backend, "sqlite")
	}

	// -- Server --
	if cfg.Server.Port != 8080 || cfg.Server.GRPCPort != 9090 {
		t.Errorf("Server ports = %d/%d, want 8080/9090", cfg.Server.Port, cfg.Server.GRPCPort)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}

	// -- Gather --
	if cfg.Gather.CN.HolidayFile != "config/cn_holidays.yaml" {
		t.Errorf("Gather.CN.HolidayFile = %q", cfg.Gather.CN.HolidayFile)
	}
	if cfg.Gather.US.RateLimitPerMin != 150 {
		t.Errorf("Gather.US.RateLimitPerMin = %d, want 150", cfg.Gather.US.RateLimitPerMin)
	}

	// -- Calendars --
	specs, err := cfg.LoadSpecs()
	if err != nil {
		t.Fatalf("LoadSpecs() returned error: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("len(specs) = %d, want 3", len(specs))
	}
	if specs[0].Market != domain.MarketCN || specs[0].Config.Location.String() != "Asia/Shanghai" {
		t.Errorf("specs[0] = %s in %v, want cn in Asia/Shanghai", specs[0].Market, specs[0].Config.Location)
	}
	fut := specs[1]
	if fut.Config.Offset != -3*time.Hour {
		t.Errorf("cn_future offset = %v, want -3h from the preset", fut.Config.Offset)
	}
	if len(fut.Config.Intervals) != 2 || fut.Config.Intervals[1] != domain.Hour {
		t.Errorf("cn_future intervals = %v, want [1m 1H]", fut.Config.Intervals)
	}
	if len(fut.Config.SpecialSessions) != 1 || len(fut.Config.SpecialSessions[0].Sessions) != 3 {
		t.Errorf("cn_future special sessions = %+v", fut.Config.SpecialSessions)
	}
	crypto := specs[2]
	if !crypto.Continuous || crypto.HorizonDays != 400 || !crypto.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("7x24 spec = %+v", crypto)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/from/file"
alpaca:
  api_key: "file-key"
`)
	t.Setenv("DATA_DIR", "/from/env")
	t.Setenv("STORAGE_BACKEND", "parquet")
	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("APCA_API_KEY_ID", "sdk-key")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Storage.DataDir != "/from/env" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/from/env")
	}
	if cfg.Storage.Backend != "parquet" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "parquet")
	}
	if cfg.Alpaca.APIKey != "sdk-key" {
		t.Errorf("Alpaca.APIKey = %q, want the APCA_ value %q", cfg.Alpaca.APIKey, "sdk-key")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
}

func TestCalendarConfigBuild(t *testing.T) {
	spec, err := CalendarConfig{
		Market:    "hk",
		Timezone:  "Asia/Hong_Kong",
		Sessions:  []string{"09:30-12:00", "13:00-16:00"},
		Intervals: []string{"5m", "1H"},
		Side:      "LEFT",
	}.Build()
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	if spec.Config.Name != "hk" || spec.Config.Side != domain.SideLeft {
		t.Errorf("Config = %+v", spec.Config)
	}
	if len(spec.Config.Sessions) != 2 || spec.Config.Sessions[1].Close != 16*3600 {
		t.Errorf("Sessions = %v", spec.Config.Sessions)
	}

	bad := []CalendarConfig{
		{},
		{Market: "hk"},
		{Market: "cn", Timezone: "Mars/Olympus"},
		{Market: "cn", Offset: "three hours"},
		{Market: "cn", Sessions: []string{"9-10"}},
		{Market: "cn", Intervals: []string{"7x"}},
		{Market: "cn", SpecialSessions: []SpecialSessionConfig{{Date: "2024/10/08"}}},
	}
	for _, cc := range bad {
		if _, err := cc.Build(); err == nil {
			t.Errorf("Build(%+v) expected error", cc)
		}
	}

	cfg := &Config{Calendars: []CalendarConfig{{Market: "cn"}, {Market: "cn"}}}
	if _, err := cfg.LoadSpecs(); err == nil {
		t.Error("LoadSpecs with a duplicated market expected error")
	}
}

func TestDefault(t *testing.T) {
	for _, k := range []string{"DATA_DIR", "STORAGE_BACKEND", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Default()
	if cfg.Storage.DataDir != "data" || cfg.Storage.Backend != "sqlite" || cfg.Server.Port != 8080 {
		t.Errorf("defaults = %+v / %+v", cfg.Storage, cfg.Server)
	}
	specs, err := cfg.LoadSpecs()
	if err != nil {
		t.Fatalf("LoadSpecs() returned error: %v", err)
	}
	if len(specs) != 4 {
		t.Fatalf("len(specs) = %d, want every preset market", len(specs))
	}
	if last := specs[3]; last.Market != domain.Market7x24 || !last.Continuous || !last.From.IsZero() {
		t.Errorf("7x24 spec = %+v, want continuous without a start date", last)
	}
}
