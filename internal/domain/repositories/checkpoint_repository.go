package repositories

import (
	"context"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// CheckpointRepository persists collection progress so a run can resume
type CheckpointRepository interface {
	// Load returns the last checkpoint, nil if none was saved
	Load(ctx context.Context) (*entities.Checkpoint, error)

	// Save persists the checkpoint, replacing the previous one
	Save(ctx context.Context, checkpoint *entities.Checkpoint) error
}
