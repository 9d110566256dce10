package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/trogers1052/trading-journal/internal/analytics"
)

// Prefix is prepended to every environment variable name
const Prefix = "JOURNAL"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Kafka    KafkaConfig    `envconfig:"KAFKA"`
	Share    ShareConfig    `envconfig:"SHARE"`
	Stats    StatsConfig    `envconfig:"STATS"`
	Logging  LoggingConfig  `envconfig:"LOG"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host          string `envconfig:"HOST" default:"localhost"`
	Port          string `envconfig:"PORT" default:"5432"`
	User          string `envconfig:"USER" default:"postgres"`
	Password      string `envconfig:"PASSWORD" default:"postgres"`
	DBName        string `envconfig:"NAME" default:"trading_journal"`
	SSLMode       string `envconfig:"SSLMODE" default:"disable"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"db/migrations"`
}

// ConnectionString returns the PostgreSQL connection string
func (d DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// RedisConfig holds the statistics cache configuration
type RedisConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Addr     string        `envconfig:"ADDR" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	StatsTTL time.Duration `envconfig:"STATS_TTL" default:"5m"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `envconfig:"ENABLED" default:"true"`
	Brokers     []string `envconfig:"BROKERS" default:"localhost:9092"`
	ImportTopic string   `envconfig:"IMPORT_TOPIC" default:"trade-imports"`
	EventsTopic string   `envconfig:"EVENTS_TOPIC" default:"journal-events"`
	GroupID     string   `envconfig:"GROUP_ID" default:"trading-journal"`
}

// ShareConfig holds share link configuration
type ShareConfig struct {
	TTL            time.Duration `envconfig:"TTL" default:"10m"`
	PurgeInterval  time.Duration `envconfig:"PURGE_INTERVAL" default:"1h"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// StatsConfig holds the calendar and ratio conventions of the statistics engine
type StatsConfig struct {
	Timezone           string `envconfig:"TIMEZONE" default:"Local"`
	WeekStartsOn       string `envconfig:"WEEK_STARTS_ON" default:"monday"`
	WinRateDenominator string `envconfig:"WIN_RATE_DENOMINATOR" default:"total"`
	IncludeWeekends    bool   `envconfig:"INCLUDE_WEEKENDS" default:"false"`
}

// Options converts the settings into analytics options
func (s StatsConfig) Options() (analytics.Options, error) {
	opts := analytics.DefaultOptions()

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return opts, fmt.Errorf("invalid stats timezone %q: %w", s.Timezone, err)
	}
	opts.Location = loc

	if opts.WeekStartsOn, err = analytics.ParseWeekday(s.WeekStartsOn); err != nil {
		return opts, err
	}
	if opts.WinRateDenominator, err = analytics.ParseWinRateDenominator(s.WinRateDenominator); err != nil {
		return opts, err
	}
	opts.IncludeWeekends = s.IncludeWeekends
	return opts, nil
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
	Output string `envconfig:"OUTPUT" default:"stdout"`
}

// Load reads configuration from JOURNAL_* environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Stats.Options(); err != nil {
		return err
	}
	if c.Share.TTL <= 0 {
		return fmt.Errorf("share ttl must be positive, got %s", c.Share.TTL)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}
	return nil
}
