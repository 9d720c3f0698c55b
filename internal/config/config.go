// Package config handles configuration loading for bazaar.
// It supports YAML config files, a .env file and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. BAZAAR_API_PORT.
const EnvPrefix = "BAZAAR"

// Config represents the complete application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"      yaml:"api" json:"api"`
	NSE      NSEConfig      `mapstructure:"nse"      yaml:"nse" json:"nse"`
	YFinance YFinanceConfig `mapstructure:"yfinance" yaml:"yfinance" json:"yfinance"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache" json:"cache"`
	Movers   MoversConfig   `mapstructure:"movers"   yaml:"movers" json:"movers"`
	Stream   StreamConfig   `mapstructure:"stream"   yaml:"stream" json:"stream"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging" json:"logging"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host              string   `mapstructure:"host"                yaml:"host" json:"host"`
	Port              int      `mapstructure:"port"                yaml:"port" json:"port"`
	CORSOrigins       []string `mapstructure:"cors_origins"        yaml:"cors_origins" json:"cors_origins"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec" json:"request_timeout_sec"`
}

// NSEConfig configures the live-quote adapter.
type NSEConfig struct {
	BaseURL      string `mapstructure:"base_url"       yaml:"base_url" json:"base_url"`
	RateLimit    int    `mapstructure:"rate_limit"     yaml:"rate_limit" json:"rate_limit"` // requests per second
	TimeoutSec   int    `mapstructure:"timeout_sec"    yaml:"timeout_sec" json:"timeout_sec"`
	CookieTTLSec int    `mapstructure:"cookie_ttl_sec" yaml:"cookie_ttl_sec" json:"cookie_ttl_sec"`
}

// YFinanceConfig configures the historical/fundamentals adapter.
type YFinanceConfig struct {
	ChartURL   string `mapstructure:"chart_url"   yaml:"chart_url" json:"chart_url"`
	SummaryURL string `mapstructure:"summary_url" yaml:"summary_url" json:"summary_url"`
	ProfileURL string `mapstructure:"profile_url" yaml:"profile_url" json:"profile_url"`
	RateLimit  int    `mapstructure:"rate_limit"  yaml:"rate_limit" json:"rate_limit"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// CacheConfig holds reference-data cache settings.
type CacheConfig struct {
	ConstituentTTLSec int `mapstructure:"constituent_ttl_sec" yaml:"constituent_ttl_sec" json:"constituent_ttl_sec"`
}

// MoversConfig holds the historical batch backpressure policy.
type MoversConfig struct {
	BatchWidth     int `mapstructure:"batch_width"      yaml:"batch_width" json:"batch_width"`
	BatchPauseMS   int `mapstructure:"batch_pause_ms"   yaml:"batch_pause_ms" json:"batch_pause_ms"`
	CallTimeoutSec int `mapstructure:"call_timeout_sec" yaml:"call_timeout_sec" json:"call_timeout_sec"`
	DefaultLimit   int `mapstructure:"default_limit"    yaml:"default_limit" json:"default_limit"`
}

// StreamConfig controls the WebSocket snapshot refresher.
type StreamConfig struct {
	Enabled     bool `mapstructure:"enabled"      yaml:"enabled" json:"enabled"`
	IntervalSec int  `mapstructure:"interval_sec" yaml:"interval_sec" json:"interval_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       yaml:"level" json:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"      yaml:"format" json:"format"` // "text" or "json"
	File       string `mapstructure:"file"        yaml:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
}

// ConstituentTTL returns the constituent cache TTL as a duration.
func (c CacheConfig) ConstituentTTL() time.Duration {
	return time.Duration(c.ConstituentTTLSec) * time.Second
}

// BatchPause returns the inter-batch pause as a duration.
func (m MoversConfig) BatchPause() time.Duration {
	return time.Duration(m.BatchPauseMS) * time.Millisecond
}

// CallTimeout returns the per-symbol historical fetch timeout.
func (m MoversConfig) CallTimeout() time.Duration {
	return time.Duration(m.CallTimeoutSec) * time.Second
}

// Interval returns the snapshot refresh interval.
func (s StreamConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSec) * time.Second
}

// Addr returns host:port for the HTTP listener.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.bazaar/config.yaml (home directory)
//  3. /etc/bazaar/config.yaml (system)
//
// A .env file in the working directory is loaded into the process
// environment first. Environment variables override config file values.
// Format: BAZAAR_<SECTION>_<KEY>, e.g., BAZAAR_MOVERS_BATCH_WIDTH
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".bazaar"))
	v.AddConfigPath("/etc/bazaar")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port out of range: %d", c.API.Port))
	}
	if c.Cache.ConstituentTTLSec <= 0 {
		errs = append(errs, fmt.Errorf("cache.constituent_ttl_sec must be positive"))
	}
	if c.Movers.BatchWidth <= 0 {
		errs = append(errs, fmt.Errorf("movers.batch_width must be positive"))
	}
	if c.Movers.BatchPauseMS < 0 {
		errs = append(errs, fmt.Errorf("movers.batch_pause_ms must not be negative"))
	}
	if c.Stream.Enabled && c.Stream.IntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("stream.interval_sec must be positive when streaming is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.request_timeout_sec", 15)

	// Live-quote adapter
	v.SetDefault("nse.base_url", "https://www.nseindia.com")
	v.SetDefault("nse.rate_limit", 3)
	v.SetDefault("nse.timeout_sec", 30)
	v.SetDefault("nse.cookie_ttl_sec", 300)

	// Historical/fundamentals adapter
	v.SetDefault("yfinance.chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yfinance.summary_url", "https://query2.finance.yahoo.com/v10/finance/quoteSummary")
	v.SetDefault("yfinance.profile_url", "https://finance.yahoo.com/quote")
	v.SetDefault("yfinance.rate_limit", 20)
	v.SetDefault("yfinance.timeout_sec", 30)

	// Reference cache
	v.SetDefault("cache.constituent_ttl_sec", 24*60*60)

	// Movers backpressure
	v.SetDefault("movers.batch_width", 50)
	v.SetDefault("movers.batch_pause_ms", 200)
	v.SetDefault("movers.call_timeout_sec", 10)
	v.SetDefault("movers.default_limit", 10)

	// Snapshot stream
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.interval_sec", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
