package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
)

// Loader appends weather readings to the destination table.
// It implements pipeline.Loader.
type Loader struct {
	conn   *Connection
	table  string
	logger *slog.Logger
}

// NewLoader creates a Loader writing to table. The name must already be a
// validated plain identifier; it is quoted but not escaped.
func NewLoader(conn *Connection, table string, logger *slog.Logger) *Loader {
	return &Loader{conn: conn, table: table, logger: logger}
}

// EnsureTable creates the destination table if it is missing.
func (l *Loader) EnsureTable(ctx context.Context) error {
	query := l.createTableSQL()
	l.logger.Debug("executing sql", "query", query)
	if _, err := l.conn.db.ExecContext(ctx, query); err != nil {
		return &domain.PersistenceError{Op: "create table", Err: err}
	}
	return nil
}

// Load ensures the table exists and inserts one row, all in a single
// transaction. Nothing is visible unless the commit succeeds.
func (l *Loader) Load(ctx context.Context, reading domain.WeatherReading) error {
	if l.conn == nil || l.conn.db == nil {
		return &domain.PersistenceError{Op: "begin", Err: fmt.Errorf("sql: database is closed")}
	}

	tx, err := l.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	create := l.createTableSQL()
	l.logger.Debug("executing sql", "query", create)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return &domain.PersistenceError{Op: "create table", Err: err}
	}

	insert := l.insertSQL()
	l.logger.Debug("executing sql", "query", insert)
	if _, err := tx.ExecContext(ctx, insert, reading.Temperature, reading.Windspeed); err != nil {
		return &domain.PersistenceError{Op: "insert", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "commit", Err: err}
	}

	l.logger.Info("reading stored", "table", l.table,
		"temperature", reading.Temperature, "windspeed", reading.Windspeed)
	return nil
}

// Count returns the number of rows in the destination table.
func (l *Loader) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(l.table, l.conn.Dialect))

	var n int64
	if err := l.conn.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &domain.PersistenceError{Op: "query", Err: err}
	}
	return n, nil
}

func (l *Loader) createTableSQL() string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (temperature FLOAT, windspeed FLOAT)",
		quoteIdentifier(l.table, l.conn.Dialect),
	)
}

func (l *Loader) insertSQL() string {
	return fmt.Sprintf(
		"INSERT INTO %s (temperature, windspeed) VALUES (%s)",
		quoteIdentifier(l.table, l.conn.Dialect),
		strings.Join(placeholders(2, l.conn.Dialect), ", "),
	)
}
