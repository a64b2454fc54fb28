// Package database centralises sqlx connection helpers.  Two drivers are
// supported: go-sql-driver/mysql for production (also MariaDB), and the
// pure-Go modernc.org/sqlite for embedded installs and tests.
//
// Public entry points:
//
//	Open(ctx, dialect, dsn)               – quick helper with conservative pool sizes.
//	OpenWithOptions(ctx, dialect, dsn, o) – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Options tunes a connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra Ping attempts after the first
	RetryBackoff    time.Duration // doubled after every failed attempt
}

// DefaultOptions returns 15 max open, 5 idle, a 30-minute lifetime, and two
// ping retries.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(ctx context.Context, d Dialect, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, d, dsn, DefaultOptions())
}

// OpenWithOptions opens and pings a pool.  SQLite pools are pinned to a
// single connection: the database is single-writer, and an in-memory DSN
// would otherwise hand every connection its own empty database.
func OpenWithOptions(ctx context.Context, d Dialect, dsn string, o Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, err
	}

	if d == SQLite {
		o.MaxOpenConns, o.MaxIdleConns = 1, 1
		o.ConnMaxLifetime = 0
	}
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	backoff := o.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= o.Retries {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	_ = db.Close()
	return nil, fmt.Errorf("database: ping %s: %w", d, err)
}

// MySQLDSN splices password into dsn and forces parseTime so DATETIME
// columns scan into time.Time.  An empty password leaves the DSN's own
// credentials in place.
func MySQLDSN(dsn, password string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("database: parse dsn: %w", err)
	}
	if password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
