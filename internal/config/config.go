package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	PunchSourceDatabase  = "database"
	PunchSourceTimeClock = "timeclock"

	// MaxDirectoryChunkSize mirrors the cap document stores put on "IN" filters.
	MaxDirectoryChunkSize = 30
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	OAuth2Google OAuth2GoogleConfig
	Presence     PresenceConfig
	TimeClock    TimeClockConfig
	Terminal     TerminalConfig
	NATS         NATSConfig
}

type DatabaseConfig struct {
	Host          string `env:"DB_HOST" envDefault:"localhost"`
	Port          int    `env:"DB_PORT" envDefault:"5432"`
	User          string `env:"DB_USER" envDefault:"postgres"`
	Password      string `env:"DB_PASSWORD"`
	Name          string `env:"DB_NAME" envDefault:"cmlabs-presence"`
	SSLMode       string `env:"DB_SSL_MODE" envDefault:"disable"`
	RunMigrations bool   `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string `env:"JWT_SECRET_KEY"`
	AccessExpiration string `env:"JWT_ACCESS_EXPIRATION_TIME" envDefault:"8h"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int      `env:"APP_PORT" envDefault:"8080"`
	Env         string   `env:"APP_ENV" envDefault:"development"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type OAuth2GoogleConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"email,profile"`
}

// PresenceConfig drives the reconciliation job.
type PresenceConfig struct {
	Cadence            time.Duration `env:"PRESENCE_CADENCE" envDefault:"5m"`
	TimezoneName       string        `env:"PRESENCE_TIMEZONE" envDefault:"Asia/Jakarta"`
	PassTimeout        time.Duration `env:"PRESENCE_PASS_TIMEOUT" envDefault:"2m"`
	PunchSource        string        `env:"PRESENCE_PUNCH_SOURCE" envDefault:"database"`
	DirectoryChunkSize int           `env:"PRESENCE_DIRECTORY_CHUNK_SIZE" envDefault:"30"`

	// Location is resolved from TimezoneName by Validate.
	Location *time.Location `env:"-"`
}

// TimeClockConfig points at the external time-and-attendance API.
type TimeClockConfig struct {
	BaseURL  string        `env:"TIMECLOCK_BASE_URL"`
	APIKey   string        `env:"TIMECLOCK_API_KEY"`
	PageSize int           `env:"TIMECLOCK_PAGE_SIZE" envDefault:"500"`
	Timeout  time.Duration `env:"TIMECLOCK_HTTP_TIMEOUT" envDefault:"30s"`
}

// TerminalConfig guards the punch ingestion endpoint.
type TerminalConfig struct {
	APIKey string `env:"TERMINAL_API_KEY"`
}

type NATSConfig struct {
	URL     string `env:"NATS_URL"`
	Subject string `env:"NATS_ERROR_SUBJECT" envDefault:"presence.errors.write"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration and resolves derived fields
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	if c.Presence.Cadence <= 0 {
		return fmt.Errorf("PRESENCE_CADENCE must be positive")
	}
	if c.Presence.PassTimeout <= 0 {
		return fmt.Errorf("PRESENCE_PASS_TIMEOUT must be positive")
	}
	loc, err := time.LoadLocation(c.Presence.TimezoneName)
	if err != nil {
		return fmt.Errorf("invalid PRESENCE_TIMEZONE: %w", err)
	}
	c.Presence.Location = loc

	if c.Presence.DirectoryChunkSize <= 0 || c.Presence.DirectoryChunkSize > MaxDirectoryChunkSize {
		return fmt.Errorf("PRESENCE_DIRECTORY_CHUNK_SIZE must be between 1 and %d", MaxDirectoryChunkSize)
	}

	switch c.Presence.PunchSource {
	case PunchSourceDatabase:
	case PunchSourceTimeClock:
		if c.TimeClock.BaseURL == "" {
			return fmt.Errorf("TIMECLOCK_BASE_URL is required when PRESENCE_PUNCH_SOURCE=timeclock")
		}
		if c.TimeClock.PageSize <= 0 {
			return fmt.Errorf("TIMECLOCK_PAGE_SIZE must be positive")
		}
	default:
		return fmt.Errorf("unsupported PRESENCE_PUNCH_SOURCE: %q", c.Presence.PunchSource)
	}

	return nil
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.OAuth2Google.ClientID != "" && c.OAuth2Google.ClientSecret != "" && c.OAuth2Google.RedirectURL != ""
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LogLevel maps LOG_LEVEL onto a slog level
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
