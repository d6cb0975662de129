package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// buildPostgresDSN renders the keyword/value connection string pgx accepts.
// Keys are emitted sorted so the DSN is stable across runs, which keeps
// connection logs diffable.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres requires a user and a database name")
	}

	kv := map[string]string{
		"host":    cfg.Host,
		"port":    fmt.Sprintf("%d", cfg.Port),
		"user":    cfg.User,
		"dbname":  cfg.Name,
		"sslmode": "disable",
	}
	if cfg.Host == "" {
		kv["host"] = "localhost"
	}
	if cfg.Port == 0 {
		kv["port"] = "5432"
	}
	if cfg.Password != "" {
		kv["password"] = cfg.Password
	}
	for key, value := range cfg.Options {
		kv[key] = value
	}

	keys := make([]string, 0, len(kv))
	for key := range kv {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%s", key, kv[key])
	}
	return b.String(), nil
}
