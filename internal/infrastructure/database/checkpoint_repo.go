package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure CheckpointRepo implements CheckpointRepository
var _ repositories.CheckpointRepository = (*CheckpointRepo)(nil)

// CheckpointRepo keeps the collector state next to the collected wallets
type CheckpointRepo struct {
	db *sqlx.DB
}

// NewCheckpointRepo creates a new checkpoint repository
func NewCheckpointRepo(db *sqlx.DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

// Load returns the saved collector state and wallets, nil if nothing was saved
func (r *CheckpointRepo) Load(ctx context.Context) (*entities.Checkpoint, error) {
	var state entities.CollectionState
	query := `SELECT status, cursor, total, failed_count, last_error, updated_at FROM collector_state WHERE id = 1`

	if err := r.db.GetContext(ctx, &state, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get collector state: %w", err)
	}

	wallets, err := listWallets(ctx, r.db)
	if err != nil {
		return nil, err
	}

	return &entities.Checkpoint{State: state, Wallets: wallets}, nil
}

// Save writes the collector state and wallets atomically
func (r *CheckpointRepo) Save(ctx context.Context, checkpoint *entities.Checkpoint) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	state := checkpoint.State
	query := `
		INSERT INTO collector_state (id, status, cursor, total, failed_count, last_error, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cursor = EXCLUDED.cursor,
			total = EXCLUDED.total,
			failed_count = EXCLUDED.failed_count,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		state.Status,
		state.Cursor,
		state.Total,
		state.FailedCount,
		state.LastError,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert collector state: %w", err)
	}

	if err := saveWallets(ctx, tx, checkpoint.Wallets); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
