package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedDSN is returned for database URLs with an unknown scheme.
var ErrUnsupportedDSN = errors.New("unsupported database url")

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// parseDSN maps a DATABASE_URL onto a database/sql driver name and data source.
func parseDSN(dsn string) (driver string, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		source = strings.TrimPrefix(dsn, "sqlite://")
		if source == "" {
			return "", "", fmt.Errorf("%w: %q has no path", ErrUnsupportedDSN, dsn)
		}
		return driverSQLite, source, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return driverSQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"):
		return driverSQLite, dsn, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
}

// rebind rewrites ? placeholders to $n for postgres.
func rebind(driver, query string) string {
	if driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
