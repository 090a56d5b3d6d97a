package session

import (
	"os"

	"github.com/matheus3301/crmlive/internal/config"
)

// LoadConfig loads the session's settings: defaults, then the session's
// config.toml, then .env files and CRMLIVE_* variables.
func LoadConfig(name string) (*config.Session, error) {
	cfg, err := config.LoadSession(SessionConfigPath(name))
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotenv(EnvPaths(name)...); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}
