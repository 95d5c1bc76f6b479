package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nijaru/yt-blog/config"
	"github.com/nijaru/yt-blog/errors"
	"github.com/sirupsen/logrus"
)

// Dialect identifies the SQL flavor behind a *sql.DB.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    source_title TEXT NOT NULL,
    source_link TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_owner ON articles(owner_id, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    source_title TEXT NOT NULL,
    source_link TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_owner ON articles(owner_id, created_at);
`

// Open connects to the configured database, applies pool settings and
// bootstraps the schema.
func Open(cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	const op = "db.Open"

	dialect := Dialect(cfg.Driver)
	dsn := cfg.DSN

	switch dialect {
	case SQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, "", errors.Internal(op, err, "Failed to create database directory")
		}
		dsn = sqliteDSN(dsn)
	case Postgres:
	default:
		return nil, "", errors.Internal(op, nil, fmt.Sprintf("Unsupported database driver %q", cfg.Driver))
	}

	logrus.WithField("driver", dialect).Info("Initializing database")

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, "", errors.Internal(op, err, "Failed to open database")
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", errors.Internal(op, err, "Failed to connect to database")
	}

	if err := execSchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, "", err
	}

	return db, dialect, nil
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), os.ModePerm)
}

// sqliteDSN appends the connection parameters every pooled connection needs.
// Pragmas set with Exec would only reach one connection.
func sqliteDSN(dsn string) string {
	params := "_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

func execSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	const op = "db.execSchema"

	schema := sqliteSchema
	if dialect == Postgres {
		schema = postgresSchema
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Internal(op, err, "Failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("Failed to execute schema statement: %s", stmt))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal(op, err, "Failed to commit schema transaction")
	}

	return nil
}
