package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/config"
)

// PostgresDB wraps the sqlx database connection
type PostgresDB struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresDB creates a new PostgreSQL connection
func NewPostgresDB(cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	return &PostgresDB{
		db:     db,
		logger: logger,
	}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	position     BIGSERIAL,
	address      TEXT PRIMARY KEY,
	eth_balance  TEXT NOT NULL DEFAULT '0',
	fetch_error  TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS wallet_transfers (
	wallet_address  TEXT NOT NULL REFERENCES wallets(address) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	from_address    TEXT NOT NULL,
	to_address      TEXT NOT NULL,
	token_address   TEXT NOT NULL,
	token_id        TEXT NOT NULL,
	price           TEXT NOT NULL,
	block_timestamp TIMESTAMPTZ NOT NULL,
	block_number    BIGINT NOT NULL DEFAULT 0,
	tx_hash         TEXT NOT NULL DEFAULT '',
	tx_type         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (wallet_address, seq)
);

CREATE INDEX IF NOT EXISTS idx_wallet_transfers_token ON wallet_transfers (wallet_address, token_address);

CREATE TABLE IF NOT EXISTS collector_state (
	id           SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	status       TEXT NOT NULL,
	cursor       INTEGER NOT NULL DEFAULT 0,
	total        INTEGER NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the wallet and collector tables if they are missing
func (p *PostgresDB) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// DB returns the underlying sqlx.DB
func (p *PostgresDB) DB() *sqlx.DB {
	return p.db
}

// HealthCheck performs a health check on the database
func (p *PostgresDB) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
