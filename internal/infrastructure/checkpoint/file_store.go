package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure FileStore implements CheckpointRepository
var _ repositories.CheckpointRepository = (*FileStore)(nil)

// FileStore keeps the checkpoint as a single JSON document on disk
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a checkpoint store backed by the file at path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the checkpoint file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the checkpoint, nil if the file does not exist
func (s *FileStore) Load(ctx context.Context) (*entities.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp entities.Checkpoint
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &cp.Wallets); err != nil {
			return nil, fmt.Errorf("failed to decode wallet list %s: %w", s.path, err)
		}
	} else if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", s.path, err)
	}

	// A wallet list without state is treated as finished work
	if cp.State.Status == "" {
		cp.State.Status = entities.CollectionCheckpointed
		cp.State.Cursor = len(cp.Wallets)
		cp.State.Total = len(cp.Wallets)
		s.logger.Info("Loaded wallet list without collection state",
			zap.String("path", s.path),
			zap.Int("wallets", len(cp.Wallets)),
		)
	}

	return &cp, nil
}

// Save replaces the checkpoint file atomically
func (s *FileStore) Save(ctx context.Context, cp *entities.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}

	s.logger.Debug("Wrote checkpoint",
		zap.String("path", s.path),
		zap.String("status", string(cp.State.Status)),
		zap.Int("wallets", len(cp.Wallets)),
	)

	return nil
}
