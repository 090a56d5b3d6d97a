package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRMLIVE_"

// LoadDotenv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are kept.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides s with CRMLIVE_* variables from lookup (os.LookupEnv
// in production).
func (s *Session) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("API_URL", &s.API.BaseURL)
	dur("API_TIMEOUT", &s.API.Timeout)
	str("OPERATOR_ID", &s.Operator.ID)
	str("OPERATOR_EMAIL", &s.Operator.Email)
	str("OPERATOR_NAME", &s.Operator.Name)
	str("OPERATOR_PHONE", &s.Operator.PhoneNumber)
	str("FEED_DRIVER", &s.Feed.Driver)
	str("REALTIME_URL", &s.Feed.Realtime.URL)
	str("REALTIME_API_KEY", &s.Feed.Realtime.APIKey)
	dur("REALTIME_HEARTBEAT", &s.Feed.Realtime.Heartbeat)
	str("PG_DSN", &s.Feed.Postgres.DSN)
	str("PG_CHANNEL", &s.Feed.Postgres.Channel)
	str("AMQP_URL", &s.Feed.AMQP.URL)
	str("AMQP_EXCHANGE", &s.Feed.AMQP.Exchange)
	str("LOG_LEVEL", &s.Log.Level)
}
