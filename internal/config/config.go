package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/trend"
)

// PathEnv names the optional YAML file. Environment variables override values
// read from it.
const PathEnv = "FXTREND_CONFIG"

type Config struct {
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Cache  Cache  `yaml:"cache"`
	Source Source `yaml:"source"`
	Fetch  Fetch  `yaml:"fetch"`
	Trend  Trend  `yaml:"trend"`
	Jobs   Jobs   `yaml:"jobs"`
}

type Cache struct {
	// Backend is "sqlite" or "redis".
	Backend  string `yaml:"backend" env:"CACHE_BACKEND" env-default:"sqlite"`
	DBPath   string `yaml:"db_path" env:"DB_PATH" env-default:"fxtrend.db"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

type Source struct {
	Name    string `yaml:"name" env:"RATE_SOURCE" env-default:"exchangerates"`
	APIKey  string `yaml:"api_key" env:"EXCHANGE_RATE_API_KEY"`
	BaseURL string `yaml:"base_url" env:"EXCHANGE_RATE_BASE_URL" env-default:"https://api.exchangeratesapi.io/v1/"`
}

type Fetch struct {
	Workers          int           `yaml:"workers" env:"WORKERS" env-default:"4"`
	Retries          int           `yaml:"retries" env:"FETCH_RETRIES" env-default:"1"`
	RetryDelay       time.Duration `yaml:"retry_delay" env:"RETRY_DELAY" env-default:"500ms"`
	Timeout          time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT" env-default:"10s"`
	SeedLookbackDays int           `yaml:"seed_lookback_days" env:"SEED_LOOKBACK_DAYS" env-default:"7"`
}

type Trend struct {
	Threshold float64 `yaml:"fluctuation_threshold" env:"FLUCTUATION_THRESHOLD" env-default:"1.0"`
	Window    int     `yaml:"moving_average_window" env:"MOVING_AVERAGE_WINDOW" env-default:"7"`
}

type Jobs struct {
	Workers      int           `yaml:"workers" env:"JOB_WORKERS" env-default:"2"`
	ChunkDays    int           `yaml:"chunk_days" env:"BACKFILL_CHUNK_DAYS" env-default:"31"`
	ChunkWorkers int           `yaml:"chunk_workers" env:"JOB_CHUNK_WORKERS" env-default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" env:"JOB_POLL_INTERVAL" env-default:"5s"`
}

// Load reads the YAML file named by FXTREND_CONFIG when set, then the
// environment, and validates the result.
func Load() (Config, error) {
	var cfg Config
	var err error
	if path := os.Getenv(PathEnv); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("config: CACHE_BACKEND must be sqlite or redis, got %q", c.Cache.Backend)
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("config: WORKERS must be positive, got %d", c.Fetch.Workers)
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("config: FETCH_RETRIES must not be negative, got %d", c.Fetch.Retries)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("config: FETCH_TIMEOUT must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Trend.Threshold < 0 {
		return fmt.Errorf("config: FLUCTUATION_THRESHOLD must not be negative, got %v", c.Trend.Threshold)
	}
	if c.Trend.Window <= 0 {
		return fmt.Errorf("config: MOVING_AVERAGE_WINDOW must be positive, got %d", c.Trend.Window)
	}
	if c.Jobs.ChunkDays <= 0 {
		return fmt.Errorf("config: BACKFILL_CHUNK_DAYS must be positive, got %d", c.Jobs.ChunkDays)
	}
	if c.Jobs.ChunkWorkers <= 0 {
		return fmt.Errorf("config: JOB_CHUNK_WORKERS must be positive, got %d", c.Jobs.ChunkWorkers)
	}
	return nil
}

func (c Config) Assembler() rate.AssemblerConfig {
	return rate.AssemblerConfig{
		Workers:          c.Fetch.Workers,
		Retries:          c.Fetch.Retries,
		RetryDelay:       c.Fetch.RetryDelay,
		FetchTimeout:     c.Fetch.Timeout,
		SeedLookbackDays: c.Fetch.SeedLookbackDays,
	}
}

func (c Config) Analyzer() trend.Config {
	cfg := trend.DefaultConfig()
	cfg.Threshold = c.Trend.Threshold
	cfg.Window = c.Trend.Window
	return cfg
}

// Level maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
