package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/sosrelay/internal/database"
)

// Connection converts DatabaseConfig into the database package representation.
func (c DatabaseConfig) Connection() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		cfg.Host = strings.TrimSpace(c.Postgres.Host)
		cfg.Port = c.Postgres.Port
		cfg.Name = strings.TrimSpace(c.Postgres.Database)
		cfg.User = strings.TrimSpace(c.Postgres.Username)
		cfg.Password = c.Postgres.Password
	case "mysql":
		cfg.Host = strings.TrimSpace(c.MySQL.Host)
		cfg.Port = c.MySQL.Port
		cfg.Name = strings.TrimSpace(c.MySQL.Database)
		cfg.User = strings.TrimSpace(c.MySQL.Username)
		cfg.Password = c.MySQL.Password
	}
	return cfg
}

func (c DatabaseConfig) validate() error {
	cfg := c.Connection()
	switch cfg.Driver {
	case "sqlite":
		if cfg.Path == "" && cfg.DSN == "" {
			return errors.New("config: database.path or database.dsn is required")
		}
	case "postgres", "mysql":
		if cfg.DSN == "" && cfg.Host == "" {
			return fmt.Errorf("config: database.dsn or database.%s.host is required", cfg.Driver)
		}
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Driver)
	}
	return nil
}
