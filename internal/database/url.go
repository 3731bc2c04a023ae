package database

import (
	"fmt"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ParseURL splits DATABASE_URL into a driver and the DSN that driver takes.
// postgres:// and postgresql:// URLs are passed through whole; sqlite://path
// yields the bare path.
func ParseURL(raw string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url has no path")
		}
		return DriverSQLite, path, nil
	}
	return "", "", fmt.Errorf("unsupported database url scheme in %q", redact(raw))
}

func redact(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[:i+3] + "..."
	}
	return "..."
}
