package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Eventfinda  EventfindaConfig  `mapstructure:"eventfinda"`
	Query       QueryConfig       `mapstructure:"query"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Cache       CacheConfig       `mapstructure:"cache"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
	RateLimit      int `mapstructure:"rate_limit"` // requests per minute per IP
}

// EventfindaConfig configures the upstream event API client.
type EventfindaConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           int           `mapstructure:"timeout"` // seconds
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	FieldScope        string        `mapstructure:"field_scope"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

type BreakerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
	MaxRequests      uint32 `mapstructure:"max_requests"`
	Interval         int    `mapstructure:"interval"` // seconds
	Timeout          int    `mapstructure:"timeout"`  // seconds
}

type RetryConfig struct {
	MaxRetries        int `mapstructure:"max_retries"`
	InitialIntervalMs int `mapstructure:"initial_interval_ms"`
	MaxIntervalMs     int `mapstructure:"max_interval_ms"`
}

// QueryConfig holds the defaults applied to searches that leave them unset.
type QueryConfig struct {
	Fields   []string `mapstructure:"fields"`
	PageSize int      `mapstructure:"page_size"`
	MaxPages int      `mapstructure:"max_pages"`
}

type AggregationConfig struct {
	LatField  string `mapstructure:"lat_field"`
	LngField  string `mapstructure:"lng_field"`
	Precision int    `mapstructure:"precision"` // -1 = exact text
}

type CacheConfig struct {
	TTL int `mapstructure:"ttl"` // seconds, 0 disables
}

type NATSConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	StreamMaxAge int    `mapstructure:"stream_max_age"` // hours
}

type ValkeyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	return LoadWithFlags(service, nil)
}

// LoadWithFlags is Load with command-line flags bound on top. Flags are
// bound by their viper key, so a flag named "query.max_pages" overrides
// EVENTURES_QUERY_MAX_PAGES when set.
func LoadWithFlags(service string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Environment variables: EVENTURES_EVENTFINDA_USERNAME → eventfinda.username
	v.SetEnvPrefix("EVENTURES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.request_timeout", 45)
	v.SetDefault("server.rate_limit", 60)

	v.SetDefault("eventfinda.endpoint", "https://api.eventfinda.co.nz/v2/events.json")
	v.SetDefault("eventfinda.username", "")
	v.SetDefault("eventfinda.password", "")
	v.SetDefault("eventfinda.user_agent", service)
	v.SetDefault("eventfinda.timeout", 15)
	v.SetDefault("eventfinda.max_body_bytes", 8<<20)
	v.SetDefault("eventfinda.field_scope", "event")
	v.SetDefault("eventfinda.requests_per_second", 2.0)
	v.SetDefault("eventfinda.burst", 1)
	v.SetDefault("eventfinda.breaker.enabled", true)
	v.SetDefault("eventfinda.breaker.failure_threshold", 5)
	v.SetDefault("eventfinda.breaker.max_requests", 1)
	v.SetDefault("eventfinda.breaker.interval", 60)
	v.SetDefault("eventfinda.breaker.timeout", 30)
	v.SetDefault("eventfinda.retry.max_retries", 2)
	v.SetDefault("eventfinda.retry.initial_interval_ms", 500)
	v.SetDefault("eventfinda.retry.max_interval_ms", 5000)

	v.SetDefault("query.fields", []string{"name", "url", "point"})
	v.SetDefault("query.page_size", 20)
	v.SetDefault("query.max_pages", 5)

	v.SetDefault("aggregation.lat_field", "point.lat")
	v.SetDefault("aggregation.lng_field", "point.lng")
	v.SetDefault("aggregation.precision", -1)

	v.SetDefault("cache.ttl", 300)

	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_max_age", 24)

	v.SetDefault("valkey.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.key_prefix", "eventures:")

	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}

	if u, err := url.Parse(c.Eventfinda.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		shown := "<unparseable>"
		if err == nil {
			shown = u.Redacted()
		}
		errs = append(errs, fmt.Sprintf("eventfinda.endpoint must be an http(s) URL, got %q", shown))
	} else if u.User != nil {
		errs = append(errs, "eventfinda.endpoint must not embed credentials")
	}
	if c.Eventfinda.Username == "" {
		errs = append(errs, "eventfinda.username is required")
	}
	if c.Eventfinda.Password == "" {
		errs = append(errs, "eventfinda.password is required")
	}
	if c.Eventfinda.Timeout <= 0 {
		errs = append(errs, "eventfinda.timeout must be positive")
	}
	if c.Eventfinda.MaxBodyBytes <= 0 {
		errs = append(errs, "eventfinda.max_body_bytes must be positive")
	}
	if c.Eventfinda.RequestsPerSecond < 0 {
		errs = append(errs, "eventfinda.requests_per_second must not be negative")
	}
	if c.Eventfinda.Retry.MaxRetries < 0 {
		errs = append(errs, "eventfinda.retry.max_retries must not be negative")
	}

	if len(c.Query.Fields) == 0 {
		errs = append(errs, "query.fields must not be empty")
	}
	if c.Query.PageSize <= 0 || c.Query.PageSize > 20 {
		errs = append(errs, fmt.Sprintf("query.page_size must be 1-20, got %d", c.Query.PageSize))
	}
	if c.Query.MaxPages <= 0 {
		errs = append(errs, "query.max_pages must be positive")
	}

	if c.Aggregation.LatField == "" || c.Aggregation.LngField == "" {
		errs = append(errs, "aggregation.lat_field and aggregation.lng_field are required")
	}
	if c.Aggregation.Precision < -1 || c.Aggregation.Precision > 10 {
		errs = append(errs, fmt.Sprintf("aggregation.precision must be -1..10, got %d", c.Aggregation.Precision))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
