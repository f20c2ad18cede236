// Package walletdb implements the PostgreSQL wallet store: tracked
// accounts, scanned blocks with their commitment tree snapshots,
// received and spent notes, per-note witnesses, and a compact-block
// cache. It satisfies the scanner's WalletStore and BlockSource
// boundaries.
package walletdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artemii235/librustzcash/sapling"
)

// Common errors
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrInvalidData       = errors.New("invalid data")
	ErrDBConnection      = errors.New("database connection error")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// DB is a wallet store backed by PostgreSQL
type DB struct {
	pool   *pgxpool.Pool
	params sapling.Params
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "zscan",
		Password: "",
		Database: "zscan",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// New connects a wallet store using the given configuration
func New(ctx context.Context, cfg *Config, params sapling.Params) (*DB, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)
	return Open(ctx, connString, params)
}

// Open connects a wallet store using a raw connection string
func Open(ctx context.Context, connString string, params sapling.Params) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &DB{pool: pool, params: params}, nil
}

// Params returns the protocol parameters the store was opened with
func (db *DB) Params() sapling.Params {
	return db.params
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.pool.Close()
}
