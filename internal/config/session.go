package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/crmlive/internal/crm"
)

// Feed drivers.
const (
	DriverRealtime = "realtime"
	DriverPostgres = "postgres"
	DriverAMQP     = "amqp"
	DriverMemory   = "memory"
)

// Session is the per-session sessions/<name>/config.toml.
type Session struct {
	API      APIConfig    `toml:"api"`
	Operator crm.Operator `toml:"operator"`
	Feed     FeedConfig   `toml:"feed"`
	Log      LogConfig    `toml:"log"`
}

// APIConfig points at the CRM REST backend.
type APIConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// FeedConfig selects and configures the message change feed.
type FeedConfig struct {
	Driver   string         `toml:"driver"`
	Realtime RealtimeConfig `toml:"realtime"`
	Postgres PostgresConfig `toml:"postgres"`
	AMQP     AMQPConfig     `toml:"amqp"`
}

// RealtimeConfig is the hosted real-time service.
type RealtimeConfig struct {
	URL       string        `toml:"url"`
	APIKey    string        `toml:"api_key"`
	Schema    string        `toml:"schema"`
	Table     string        `toml:"table"`
	Heartbeat time.Duration `toml:"heartbeat"`
}

// PostgresConfig is the LISTEN/NOTIFY source.
type PostgresConfig struct {
	DSN     string `toml:"dsn"`
	Channel string `toml:"channel"`
}

// AMQPConfig is the RabbitMQ source.
type AMQPConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// LogConfig controls the daemon logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultSession returns the settings used when no file exists.
func DefaultSession() *Session {
	return &Session{
		API:  APIConfig{Timeout: 30 * time.Second},
		Feed: FeedConfig{Driver: DriverRealtime},
		Log:  LogConfig{Level: "info"},
	}
}

// LoadSession reads a session file on top of the defaults. A missing file
// is not an error.
func LoadSession(path string) (*Session, error) {
	cfg := DefaultSession()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// SaveSession writes a session file.
func SaveSession(path string, cfg *Session) error {
	return writeTOML(path, cfg)
}

// Validate checks the settings the daemon cannot start without.
func (s *Session) Validate() error {
	var errs []error
	if s.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(s.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", s.API.BaseURL))
	}
	if s.Operator.ID == "" {
		errs = append(errs, errors.New("operator.id is required"))
	}

	switch s.Feed.Driver {
	case DriverRealtime:
		if s.Feed.Realtime.URL == "" {
			errs = append(errs, errors.New("feed.realtime.url is required"))
		}
	case DriverPostgres:
		if s.Feed.Postgres.DSN == "" {
			errs = append(errs, errors.New("feed.postgres.dsn is required"))
		}
	case DriverAMQP:
		if s.Feed.AMQP.URL == "" {
			errs = append(errs, errors.New("feed.amqp.url is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown feed.driver %q", s.Feed.Driver))
	}
	return errors.Join(errs...)
}
