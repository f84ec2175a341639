// Package sqlstore persists weather readings to a relational table.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the database engine behind a connection. Its value is
// also the database/sql driver name.
type Dialect string

const (
	MySQL      Dialect = "mysql"
	PostgreSQL Dialect = "postgres"
	SQLite     Dialect = "sqlite3"
)

// Connection wraps a database handle with its dialect.
type Connection struct {
	db      *sql.DB
	Dialect Dialect
}

// Connect opens and pings a database from a URL string. Supported schemes:
// postgres, postgresql, mysql and sqlite.
func Connect(ctx context.Context, dbURL string) (*Connection, error) {
	dialect, dsn, err := parseURL(dbURL)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "connect", Err: err}
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "connect", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &domain.PersistenceError{Op: "connect", Err: fmt.Errorf("ping %s: %w", dialect, err)}
	}

	return &Connection{db: db, Dialect: dialect}, nil
}

// NewConnection wraps an already opened handle.
func NewConnection(db *sql.DB, dialect Dialect) *Connection {
	return &Connection{db: db, Dialect: dialect}
}

// Close closes the database connection.
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB instance.
func (c *Connection) DB() *sql.DB {
	return c.db
}

func parseURL(dbURL string) (Dialect, string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		// lib/pq accepts the URL form directly.
		return PostgreSQL, dbURL, nil

	case "mysql":
		// go-sql-driver/mysql wants user:pass@tcp(host)/db?params with the
		// credentials unescaped.
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		dsn := cfg.FormatDSN()
		if u.RawQuery != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + u.RawQuery
		}
		return MySQL, dsn, nil

	case "sqlite", "sqlite3":
		// sqlite:relative.db, sqlite::memory:, sqlite://data/weather.db, sqlite:///abs/weather.db
		dsn := u.Opaque
		if dsn == "" {
			dsn = u.Host + u.Path
		}
		if dsn == "" {
			return "", "", fmt.Errorf("invalid database URL: missing sqlite path")
		}
		if u.RawQuery != "" {
			dsn += "?" + u.RawQuery
		}
		return SQLite, dsn, nil

	default:
		return "", "", fmt.Errorf("unsupported database type: %s", u.Scheme)
	}
}

func quoteIdentifier(identifier string, dialect Dialect) string {
	switch dialect {
	case MySQL:
		return fmt.Sprintf("`%s`", identifier)
	default:
		return fmt.Sprintf(`"%s"`, identifier)
	}
}

func placeholders(n int, dialect Dialect) []string {
	out := make([]string, n)
	for i := range out {
		if dialect == PostgreSQL {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}
