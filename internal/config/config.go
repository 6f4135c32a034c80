package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quantcal/internal/calendar"
	"quantcal/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for quantcal.
type Config struct {
	Storage   Storage          `yaml:"storage"`
	Server    Server           `yaml:"server"`
	Alpaca    Alpaca           `yaml:"alpaca"`
	Logging   Logging          `yaml:"logging"`
	Calendars []CalendarConfig `yaml:"calendars"`
	Gather    GatherConfig     `yaml:"gather"`
}

// Storage holds paths for data persistence. Backend selects "sqlite" (the
// default) or "parquet".
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	Backend    string `yaml:"backend"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca calendar API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CalendarConfig describes one market calendar. Unset fields fall back to
// the market's preset when it has one.
type CalendarConfig struct {
	Market      string   `yaml:"market"`
	Name        string   `yaml:"name"`
	Timezone    string   `yaml:"timezone"`
	Offset      string   `yaml:"offset"`
	Sessions    []string `yaml:"sessions"`
	Intervals   []string `yaml:"intervals"`
	Side        string   `yaml:"side"`
	Continuous  bool     `yaml:"continuous"`
	From        string   `yaml:"from"`
	HorizonDays int      `yaml:"horizon_days"`

	SpecialSessions []SpecialSessionConfig `yaml:"special_sessions"`
}

// SpecialSessionConfig overrides the sessions of one trading day.
type SpecialSessionConfig struct {
	Date        string   `yaml:"date"`
	Sessions    []string `yaml:"sessions"`
	DaySessions []string `yaml:"day_sessions"`
}

// GatherConfig controls calendar ingestion per market.
type GatherConfig struct {
	CN CNGatherConfig `yaml:"cn"`
	US USGatherConfig `yaml:"us"`
}

// CNGatherConfig points at the holiday and product session files.
type CNGatherConfig struct {
	HolidayFile string `yaml:"holiday_file"`
	ProductFile string `yaml:"product_file"`
	StartDate   string `yaml:"start_date"`
	EndDate     string `yaml:"end_date"`
}

// USGatherConfig bounds the Alpaca calendar download.
type USGatherConfig struct {
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides. A .env
// file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, as read by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// Default returns the configuration used without a config file: built-in
// defaults with environment overrides applied.
func Default() *Config {
	_ = godotenv.Load()
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// defaultCalendars serves every preset market; 7x24 is generated.
var defaultCalendars = []CalendarConfig{
	{Market: string(domain.MarketCN)},
	{Market: string(domain.MarketCNFutures)},
	{Market: string(domain.MarketUS)},
	{Market: string(domain.Market7x24), Continuous: true},
}

func applyDefaults(cfg *Config) {
	if len(cfg.Calendars) == 0 {
		cfg.Calendars = append([]CalendarConfig(nil), defaultCalendars...)
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// ---------------------------------------------------------------------------
// Calendar sections
// ---------------------------------------------------------------------------

// LoadSpecs converts every calendar section.
func (c *Config) LoadSpecs() ([]calendar.LoadSpec, error) {
	specs := make([]calendar.LoadSpec, 0, len(c.Calendars))
	seen := make(map[domain.Market]bool, len(c.Calendars))
	for i, cc := range c.Calendars {
		spec, err := cc.Build()
		if err != nil {
			return nil, fmt.Errorf("calendars[%d]: %w", i, err)
		}
		if seen[spec.Market] {
			return nil, fmt.Errorf("calendars[%d]: market %s configured twice", i, spec.Market)
		}
		seen[spec.Market] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

// Build converts a calendar section into a load spec, starting from the
// market's preset when one exists.
func (cc CalendarConfig) Build() (calendar.LoadSpec, error) {
	market := domain.Market(strings.TrimSpace(cc.Market))
	if market == "" {
		return calendar.LoadSpec{}, fmt.Errorf("calendar without market")
	}
	cfg, err := calendar.Preset(market)
	if err != nil {
		// Custom markets must spell everything out.
		if len(cc.Sessions) == 0 {
			return calendar.LoadSpec{}, fmt.Errorf("market %s has no preset and no sessions", market)
		}
		cfg = calendar.Config{Name: string(market), Location: time.UTC}
	}
	if cc.Name != "" {
		cfg.Name = cc.Name
	}
	if cc.Timezone != "" {
		loc, err := time.LoadLocation(cc.Timezone)
		if err != nil {
			return calendar.LoadSpec{}, fmt.Errorf("market %s timezone: %w", market, err)
		}
		cfg.Location = loc
	}
	if cc.Offset != "" {
		d, err := time.ParseDuration(cc.Offset)
		if err != nil {
			return calendar.LoadSpec{}, fmt.Errorf("market %s offset: %w", market, err)
		}
		cfg.Offset = d
	}
	if len(cc.Sessions) > 0 {
		if cfg.Sessions, err = parseSessions(cc.Sessions); err != nil {
			return calendar.LoadSpec{}, fmt.Errorf("market %s sessions: %w", market, err)
		}
	}
	if len(cc.Intervals) > 0 {
		cfg.Intervals = cfg.Intervals[:0:0]
		for _, s := range cc.Intervals {
			iv, err := domain.ParseInterval(s)
			if err != nil {
				return calendar.LoadSpec{}, fmt.Errorf("market %s intervals: %w", market, err)
			}
			cfg.Intervals = append(cfg.Intervals, iv)
		}
	}
	if cc.Side != "" {
		cfg.Side = domain.Side(strings.ToLower(cc.Side))
	}
	for _, sc := range cc.SpecialSessions {
		ss, err := sc.build()
		if err != nil {
			return calendar.LoadSpec{}, fmt.Errorf("market %s special session %s: %w", market, sc.Date, err)
		}
		cfg.SpecialSessions = append(cfg.SpecialSessions, ss)
	}

	spec := calendar.LoadSpec{
		Market:      market,
		Config:      cfg,
		Continuous:  cc.Continuous,
		HorizonDays: cc.HorizonDays,
	}
	if cc.From != "" {
		if spec.From, err = domain.ParseDate(cc.From); err != nil {
			return calendar.LoadSpec{}, fmt.Errorf("market %s from: %w", market, err)
		}
	}
	return spec, nil
}

func (sc SpecialSessionConfig) build() (domain.SpecialSession, error) {
	day, err := domain.ParseDate(sc.Date)
	if err != nil {
		return domain.SpecialSession{}, err
	}
	ss := domain.SpecialSession{Date: day}
	if ss.Sessions, err = parseSessions(sc.Sessions); err != nil {
		return domain.SpecialSession{}, err
	}
	if len(sc.DaySessions) > 0 {
		if ss.DaySessions, err = parseSessions(sc.DaySessions); err != nil {
			return domain.SpecialSession{}, err
		}
	}
	return ss, nil
}

func parseSessions(specs []string) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(specs))
	for _, s := range specs {
		ss, err := calendar.ParseSession(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, nil
}
