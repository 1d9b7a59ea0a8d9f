// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Surfe  SurfeConfig  `yaml:"surfe" mapstructure:"surfe"`
	Poll   PollConfig   `yaml:"poll" mapstructure:"poll"`
	Search SearchConfig `yaml:"search" mapstructure:"search"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SurfeConfig holds Surfe API settings. Key is the bearer token; DelaySecs
// is the user-facing per-request spacing (0.1–5.0 seconds) and, when set,
// replaces the default rate limiter.
type SurfeConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst        int     `yaml:"burst" mapstructure:"burst"`
	DelaySecs    float64 `yaml:"delay_secs" mapstructure:"delay_secs"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffMSecs int     `yaml:"backoff_msecs" mapstructure:"backoff_msecs"`
}

// PollConfig configures the enrichment job poll loop.
type PollConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
	TimeoutSecs  int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Interval returns the wait between polls.
func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

// Timeout returns the overall polling budget.
func (c PollConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SearchConfig configures search pagination.
type SearchConfig struct {
	PageSize   int `yaml:"page_size" mapstructure:"page_size"`
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SURFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without another default still need one registered or
	// AutomaticEnv will not surface them during Unmarshal.
	v.SetDefault("surfe.key", "")
	v.SetDefault("surfe.delay_secs", 0.0)
	v.SetDefault("surfe.base_url", "https://api.surfe.com/v2")
	v.SetDefault("surfe.timeout_secs", 30)
	v.SetDefault("surfe.rate_per_sec", 10)
	v.SetDefault("surfe.burst", 20)
	v.SetDefault("surfe.max_retries", 3)
	v.SetDefault("surfe.backoff_msecs", 500)
	v.SetDefault("poll.interval_secs", 10)
	v.SetDefault("poll.timeout_secs", 300)
	v.SetDefault("search.page_size", 200)
	v.SetDefault("search.max_results", 2000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Surfe.DelaySecs != 0 && (cfg.Surfe.DelaySecs < 0.1 || cfg.Surfe.DelaySecs > 5.0) {
		return nil, eris.Errorf("config: surfe.delay_secs must be between 0.1 and 5.0, got %g", cfg.Surfe.DelaySecs)
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
