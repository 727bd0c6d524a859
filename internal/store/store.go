package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS = 5000

	sqliteMaxOpenConns   = 1
	sqliteMaxIdleConns   = 1
	postgresMaxOpenConns = 20
	postgresMaxIdleConns = 5
	connMaxLifetime      = 5 * time.Minute
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements Queries on top of a connection or transaction.
type queries struct {
	conn    dbtx
	dialect Dialect
}

// Store wraps the metadata database.
type Store struct {
	*queries
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database at databaseURL and applies pending migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	st, err := Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// Connect opens and pings the database without touching the schema.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	dialect, dsn, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, err
	}
	configureDB(db, dialect)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	return &Store{
		queries: &queries{conn: db, dialect: dialect},
		db:      db,
		dialect: dialect,
	}, nil
}

// Dialect reports which backend the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn inside a transaction and commits when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(q Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&queries{conn: tx, dialect: s.dialect}); err != nil {
		return err
	}
	return tx.Commit()
}

func configureDB(db *sql.DB, dialect Dialect) {
	switch dialect {
	case DialectPostgres:
		db.SetMaxOpenConns(postgresMaxOpenConns)
		db.SetMaxIdleConns(postgresMaxIdleConns)
	default:
		// SQLite only supports one writer.
		db.SetMaxOpenConns(sqliteMaxOpenConns)
		db.SetMaxIdleConns(sqliteMaxIdleConns)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.conn.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.conn.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.conn.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}
