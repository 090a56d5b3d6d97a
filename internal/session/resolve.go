package session

import (
	"os"

	"github.com/matheus3301/crmlive/internal/config"
)

// SessionEnv selects the session when no --session flag is given.
const SessionEnv = "CRMLIVE_SESSION"

const DefaultSessionName = "main"

// Resolve picks the session name: the --session flag, then $CRMLIVE_SESSION,
// then default_session from the global config.toml, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if name := os.Getenv(SessionEnv); name != "" {
		return name
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
