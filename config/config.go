package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Endpoint  EndpointConfig  `mapstructure:"endpoint"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Backoff   BackoffConfig   `mapstructure:"backoff"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Transport TransportConfig `mapstructure:"transport"`
	Redis     RedisConfig     `mapstructure:"redis"`
	State     StateConfig     `mapstructure:"state"`
	DLQ       DLQConfig       `mapstructure:"dlq"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type EndpointConfig struct {
	URL         string `mapstructure:"url"`
	CollectPath string `mapstructure:"collect_path"`
	PingPath    string `mapstructure:"ping_path"`
}

// CollectURL returns the full collector URL batches are posted to.
func (e EndpointConfig) CollectURL() string {
	return e.URL + e.CollectPath
}

// PingURL returns the full liveness probe URL.
func (e EndpointConfig) PingURL() string {
	return e.URL + e.PingPath
}

type QueueConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	Linger       time.Duration `mapstructure:"linger"`
	MaxEntries   int           `mapstructure:"max_entries"`
	RetryCeiling int           `mapstructure:"retry_ceiling"`
}

type BackoffConfig struct {
	Base time.Duration `mapstructure:"base"`
	Cap  time.Duration `mapstructure:"cap"`
}

type DispatchConfig struct {
	// MaxInFlight bounds concurrent transport attempts. Set to 1 for
	// fully sequential dispatch when strict delivery ordering matters.
	MaxInFlight int `mapstructure:"max_in_flight"`
}

type TransportConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Correlation bool          `mapstructure:"correlation"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type StateConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type DLQConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	MaxLen  int64 `mapstructure:"max_len"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint.url", "http://localhost:8200")
	v.SetDefault("endpoint.collect_path", "/collect")
	v.SetDefault("endpoint.ping_path", "/ping")
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.linger", "5s")
	v.SetDefault("queue.max_entries", 500)
	v.SetDefault("queue.retry_ceiling", 5)
	v.SetDefault("backoff.base", "1s")
	v.SetDefault("backoff.cap", "2m")
	v.SetDefault("dispatch.max_in_flight", 4)
	v.SetDefault("transport.timeout", "10s")
	v.SetDefault("transport.correlation", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("state.namespace", "default")
	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.max_len", 1000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("beacon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/beacon")
	}

	// Environment variables override
	v.SetEnvPrefix("BEACON")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration. It never consults config
// files or the environment, so it cannot fail and never returns nil.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	// Static defaults only; nothing here can fail to decode.
	_ = v.Unmarshal(cfg)
	return cfg
}
