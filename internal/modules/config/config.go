package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// PoolConfig describes one capital pool: which strategy runs it and its
// risk posture.
type PoolConfig struct {
	Strategy     string  `mapstructure:"strategy"`
	RiskFraction float64 `mapstructure:"risk_fraction"`
	MaxPositions int     `mapstructure:"max_positions"`
}

type Config struct {
	Service struct {
		Host      string `mapstructure:"host"`
		AdminPort int    `mapstructure:"admin_port"`
	} `mapstructure:"service"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	// Postgres DSN for the trade journal. Empty disables the journal.
	DB string `mapstructure:"db_dsn"`

	// Which pool(s) this process runs: echo | nia | all.
	Mode string `mapstructure:"mode"`
	// Live toggles real order placement; false = paper.
	Live bool `mapstructure:"live"`

	// Ledger
	StateFile       string  `mapstructure:"state_file"`
	StartingCapital float64 `mapstructure:"starting_capital"`
	EchoSplit       float64 `mapstructure:"echo_split"` // fraction of starting capital to the echo pool
	FeeRate         float64 `mapstructure:"fee_rate"`   // fraction, both sides
	DustFloor       float64 `mapstructure:"dust_floor"` // minimum bet in quote units
	// Equity below this fraction of starting capital halts new entries.
	CircuitBreakerAt float64 `mapstructure:"circuit_breaker_at"`

	Pools map[string]PoolConfig `mapstructure:"pools"`

	// Scheduling
	CronSpec string `mapstructure:"cron_spec"`

	// Market data
	APIBase      string        `mapstructure:"api_base"`
	APITimeout   time.Duration `mapstructure:"api_timeout"`
	SeriesTTL    time.Duration `mapstructure:"series_ttl"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// Regime
	Benchmark string        `mapstructure:"benchmark"`
	RegimeTTL time.Duration `mapstructure:"regime_ttl"`

	// Screener
	ScreenerTopN    int     `mapstructure:"screener_top_n"`
	MinVolumeUSD    float64 `mapstructure:"min_volume_usd"`
	MinDipPct       float64 `mapstructure:"min_dip_pct"`
	MinAgeYears     float64 `mapstructure:"min_age_years"`
	MaxCandidates   int     `mapstructure:"max_candidates"`
	WatchlistFile   string  `mapstructure:"watchlist_file"`
	FlashCrashDrop  float64 `mapstructure:"flash_crash_drop"` // 30d change gate, e.g. -40
	SafetyCheckBase string  `mapstructure:"safety_check_base"`

	// Live price stream
	StreamEnabled bool   `mapstructure:"stream_enabled"`
	StreamURL     string `mapstructure:"stream_url"`

	// Tracing
	Jaeger struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`
}

// NewConfig loads configs/<PIGEON_CONFIG_FILE|values_local.yaml> and lets
// PIGEON_* env vars override any key.
func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.admin_port", 8080)

	v.SetDefault("mode", "all")
	v.SetDefault("live", false)

	v.SetDefault("state_file", "strategic_state.json")
	v.SetDefault("starting_capital", 1000.0)
	v.SetDefault("echo_split", 0.70)
	v.SetDefault("fee_rate", 0.004)
	v.SetDefault("dust_floor", 5.0)
	v.SetDefault("circuit_breaker_at", 0.50)

	v.SetDefault("pools", map[string]any{
		"echo": map[string]any{
			"strategy":      "echo_rebound",
			"risk_fraction": 0.05,
			"max_positions": 8,
		},
		"nia": map[string]any{
			"strategy":      "narrative_ignition",
			"risk_fraction": 0.15,
			"max_positions": 4,
		},
	})

	v.SetDefault("cron_spec", "5 * * * *") // hourly, 5 past

	v.SetDefault("api_base", "https://api.coingecko.com/api/v3")
	v.SetDefault("api_timeout", "15s")
	v.SetDefault("series_ttl", "1h")
	v.SetDefault("retry_max", 4)
	v.SetDefault("retry_backoff", "5s")

	v.SetDefault("benchmark", "bitcoin")
	v.SetDefault("regime_ttl", "1h")

	v.SetDefault("screener_top_n", 100)
	v.SetDefault("min_volume_usd", 1_000_000.0)
	v.SetDefault("min_dip_pct", 50.0)
	v.SetDefault("min_age_years", 2.0)
	v.SetDefault("max_candidates", 20)
	v.SetDefault("watchlist_file", "configs/watchlist.yaml")
	v.SetDefault("flash_crash_drop", -40.0)
	v.SetDefault("safety_check_base", "https://api.honeypot.is/v2/IsHoneypot")

	v.SetDefault("stream_enabled", false)
	v.SetDefault("stream_url", "wss://stream.binance.com:9443/ws")

	v.SetDefault("jaeger.host", "localhost")
	v.SetDefault("jaeger.port", 6831)

	name := "values_local.yaml"
	if fromEnv := strings.TrimSpace(envOr("PIGEON_CONFIG_FILE", "")); fromEnv != "" {
		name = fromEnv
	}
	v.SetConfigFile("configs/" + name)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults plus env carry the run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	v.SetEnvPrefix("PIGEON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if tok := envOr("TELEGRAM_TOKEN", ""); tok != "" {
		cfg.Telegram.Token = tok
	}
	if dsn := envOr("DATABASE_DSN", ""); dsn != "" {
		cfg.DB = dsn
	}

	if cfg.EchoSplit <= 0 || cfg.EchoSplit >= 1 {
		return nil, errors.Errorf("echo_split %.2f out of (0,1)", cfg.EchoSplit)
	}
	for name, pc := range cfg.Pools {
		if pc.RiskFraction <= 0 || pc.RiskFraction > 1 {
			return nil, errors.Errorf("pool %s: risk_fraction %.3f out of (0,1]", name, pc.RiskFraction)
		}
		if pc.MaxPositions <= 0 {
			return nil, errors.Errorf("pool %s: max_positions must be positive", name)
		}
	}

	return &cfg, nil
}
