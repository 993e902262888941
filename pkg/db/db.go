package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "riz/pkg/db/migrations"
)

const (
	// DefaultTimeout is used when executing queries to avoid leaking resources on hung calls.
	DefaultTimeout = 5 * time.Second
)

// Handle bundles the pgx pool with a GORM session sharing the same connections.
type Handle struct {
	Pool *pgxpool.Pool
	ORM  *gorm.DB
	sql  *sql.DB
}

// Open creates a new pgx connection pool using the provided DSN.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Connect opens the pool and layers a GORM session on top of it.
func Connect(ctx context.Context, dsn string) (*Handle, error) {
	pool, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, err
	}

	return &Handle{Pool: pool, ORM: orm, sql: sqlDB}, nil
}

// Close releases the sql.DB adapter and the underlying pool.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	var err error
	if h.sql != nil {
		err = h.sql.Close()
	}
	if h.Pool != nil {
		h.Pool.Close()
	}
	return err
}

// Migrate applies every pending migration registered in the migrations package
// and returns the versions that were applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	provider, closeFn, err := newProvider(pool)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, err
	}
	return versions(results), nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	provider, closeFn, err := newProvider(pool)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	result, err := provider.Down(ctx)
	if err != nil {
		return nil, err
	}
	return versions([]*goose.MigrationResult{result}), nil
}

func newProvider(pool *pgxpool.Pool) (*goose.Provider, func(), error) {
	if pool == nil {
		return nil, nil, errors.New("nil pool provided")
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, nil)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return provider, func() { _ = sqlDB.Close() }, nil
}

func versions(results []*goose.MigrationResult) []int64 {
	out := make([]int64, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, r.Source.Version)
	}
	return out
}

// Exec executes a statement with the default timeout applied.
func Exec(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (pgconn.CommandTag, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	return pool.Exec(ctx, query, args...)
}

// Get retrieves a single row into dest with the default timeout applied.
func Get(ctx context.Context, pool *pgxpool.Pool, dest any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	return pgxscan.Get(ctx, pool, dest, query, args...)
}

// Select retrieves multiple rows into dest with the default timeout applied.
func Select(ctx context.Context, pool *pgxpool.Pool, dest any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	return pgxscan.Select(ctx, pool, dest, query, args...)
}

// Ping ensures the database is reachable with the default timeout.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	return pool.Ping(ctx)
}
