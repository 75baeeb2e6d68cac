package berth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds configuration for every berth subsystem.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Session  SessionConfig  `mapstructure:"session"`
	Reasoner ReasonerConfig `mapstructure:"reasoner"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// PipelineConfig holds per-step timeouts and the shared retry policy.
type PipelineConfig struct {
	CacheProbeTimeout     time.Duration `mapstructure:"cache_probe_timeout"`
	SessionAcquireTimeout time.Duration `mapstructure:"session_acquire_timeout"`
	SearchTimeout         time.Duration `mapstructure:"search_timeout"`
	PersistRawTimeout     time.Duration `mapstructure:"persist_raw_timeout"`
	ExtractTimeout        time.Duration `mapstructure:"extract_timeout"`
	ValidateTimeout       time.Duration `mapstructure:"validate_timeout"`
	PersistTimeout        time.Duration `mapstructure:"persist_timeout"`

	// RetryInitial is the delay before the second attempt of a step.
	RetryInitial time.Duration `mapstructure:"retry_initial"`

	// RetryMax caps the delay between attempts.
	RetryMax time.Duration `mapstructure:"retry_max"`

	// RetryCoefficient multiplies the delay after every failed attempt.
	RetryCoefficient float64 `mapstructure:"retry_coefficient"`

	// MaxAttempts bounds the number of attempts per step, first included.
	MaxAttempts int `mapstructure:"max_attempts"`

	// RetryJitter spreads each retry delay uniformly over [0, delay].
	RetryJitter bool `mapstructure:"retry_jitter"`

	// RawMaxAge makes cached raw documents older than this a miss.
	// Zero keeps cached documents forever.
	RawMaxAge time.Duration `mapstructure:"raw_max_age"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is one of memory, postgres, sqlite, mongo or redis.
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
}

// CacheConfig selects the query-result cache.
type CacheConfig struct {
	// Driver is one of memory, redis or none.
	Driver   string        `mapstructure:"driver"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SessionConfig selects the session provider used by the search step.
type SessionConfig struct {
	// Provider is either fixture or rod.
	Provider          string        `mapstructure:"provider"`
	Headless          bool          `mapstructure:"headless"`
	ControlURL        string        `mapstructure:"control_url"`
	SearchURL         string        `mapstructure:"search_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// ReasonerConfig selects the reasoning component.
type ReasonerConfig struct {
	// Provider is either rules or gemini.
	Provider        string  `mapstructure:"provider"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	APIKeys         []string      `mapstructure:"api_keys"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	MCPBasePath     string        `mapstructure:"mcp_base_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a Config with sensible defaults. Step timeouts and
// the retry policy match the terminal's observed latencies.
func DefaultConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			CacheProbeTimeout:     10 * time.Second,
			SessionAcquireTimeout: 30 * time.Second,
			SearchTimeout:         45 * time.Second,
			PersistRawTimeout:     20 * time.Second,
			ExtractTimeout:        30 * time.Second,
			ValidateTimeout:       10 * time.Second,
			PersistTimeout:        20 * time.Second,
			RetryInitial:          1 * time.Second,
			RetryMax:              10 * time.Second,
			RetryCoefficient:      2.0,
			MaxAttempts:           3,
		},
		Store: StoreConfig{
			Driver:   "memory",
			Database: "berth",
		},
		Cache: CacheConfig{
			Driver: "memory",
			Addr:   "localhost:6379",
			TTL:    300 * time.Second,
		},
		Session: SessionConfig{
			Provider:          "fixture",
			Headless:          true,
			SearchURL:         "https://pnct.net/container-search",
			NavigationTimeout: 30 * time.Second,
		},
		Reasoner: ReasonerConfig{
			Provider:        "rules",
			Model:           "gemini-2.0-flash",
			Temperature:     0.1,
			MaxOutputTokens: 2048,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       10,
			RateBurst:       20,
			MCPBasePath:     "/mcp",
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envFile is loaded into the process environment before viper reads it.
const envFile = ".env.local"

// LoadConfig reads configuration from an optional YAML file and the
// environment. Environment variables use the BERTH_ prefix with nested keys
// joined by underscores, e.g. BERTH_STORE_DRIVER or BERTH_REASONER_API_KEY.
// An empty path searches ./berth.yaml and ./config/berth.yaml.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("berth: load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("berth")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("berth")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("berth: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("berth: decode config: %w", err)
	}

	// GEMINI_API_KEY is honoured for parity with the Gemini tooling.
	if cfg.Reasoner.APIKey == "" {
		cfg.Reasoner.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override nested
// values that are absent from the config file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("pipeline.cache_probe_timeout", d.Pipeline.CacheProbeTimeout)
	v.SetDefault("pipeline.session_acquire_timeout", d.Pipeline.SessionAcquireTimeout)
	v.SetDefault("pipeline.search_timeout", d.Pipeline.SearchTimeout)
	v.SetDefault("pipeline.persist_raw_timeout", d.Pipeline.PersistRawTimeout)
	v.SetDefault("pipeline.extract_timeout", d.Pipeline.ExtractTimeout)
	v.SetDefault("pipeline.validate_timeout", d.Pipeline.ValidateTimeout)
	v.SetDefault("pipeline.persist_timeout", d.Pipeline.PersistTimeout)
	v.SetDefault("pipeline.retry_initial", d.Pipeline.RetryInitial)
	v.SetDefault("pipeline.retry_max", d.Pipeline.RetryMax)
	v.SetDefault("pipeline.retry_coefficient", d.Pipeline.RetryCoefficient)
	v.SetDefault("pipeline.max_attempts", d.Pipeline.MaxAttempts)
	v.SetDefault("pipeline.retry_jitter", d.Pipeline.RetryJitter)
	v.SetDefault("pipeline.raw_max_age", d.Pipeline.RawMaxAge)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.database", d.Store.Database)

	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.addr", d.Cache.Addr)
	v.SetDefault("cache.password", d.Cache.Password)
	v.SetDefault("cache.db", d.Cache.DB)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("session.provider", d.Session.Provider)
	v.SetDefault("session.headless", d.Session.Headless)
	v.SetDefault("session.control_url", d.Session.ControlURL)
	v.SetDefault("session.search_url", d.Session.SearchURL)
	v.SetDefault("session.navigation_timeout", d.Session.NavigationTimeout)

	v.SetDefault("reasoner.provider", d.Reasoner.Provider)
	v.SetDefault("reasoner.api_key", d.Reasoner.APIKey)
	v.SetDefault("reasoner.model", d.Reasoner.Model)
	v.SetDefault("reasoner.temperature", d.Reasoner.Temperature)
	v.SetDefault("reasoner.max_output_tokens", d.Reasoner.MaxOutputTokens)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.api_keys", d.Server.APIKeys)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.mcp_base_path", d.Server.MCPBasePath)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
