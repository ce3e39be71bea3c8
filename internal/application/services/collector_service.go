package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/nft-hold-analyzer/internal/config"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// ErrInvalidTransition indicates a collection state change that is not allowed
var ErrInvalidTransition = errors.New("invalid collection state transition")

// CollectorService fetches wallet data in batches and checkpoints progress
type CollectorService struct {
	transfers   repositories.TransferSource
	balances    repositories.BalanceSource
	checkpoints repositories.CheckpointRepository
	config      config.CollectorConfig
	logger      *zap.Logger

	state   entities.CollectionState
	wallets []entities.WalletInput
}

// NewCollectorService creates a new collector service
func NewCollectorService(
	transfers repositories.TransferSource,
	balances repositories.BalanceSource,
	checkpoints repositories.CheckpointRepository,
	cfg config.CollectorConfig,
	logger *zap.Logger,
) *CollectorService {
	return &CollectorService{
		transfers:   transfers,
		balances:    balances,
		checkpoints: checkpoints,
		config:      cfg,
		logger:      logger,
		state:       entities.CollectionState{Status: entities.CollectionNotStarted},
	}
}

// State returns the current collection state
func (s *CollectorService) State() entities.CollectionState {
	return s.state
}

// Collect fetches every address not covered by the last checkpoint and
// returns the full dataset, previously saved wallets first.
func (s *CollectorService) Collect(ctx context.Context, addresses []string) ([]entities.WalletInput, error) {
	if err := s.resume(ctx, len(addresses)); err != nil {
		return nil, err
	}

	if s.state.Status == entities.CollectionComplete && s.state.Cursor == len(addresses) {
		s.logger.Info("Collection already complete", zap.Int("wallets", len(s.wallets)))
		return s.wallets, nil
	}

	lastCheckpoint := s.state.Cursor
	for s.state.Cursor < len(addresses) {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, err)
		}

		if err := s.transition(entities.CollectionFetchingBatch); err != nil {
			return nil, err
		}

		end := s.state.Cursor + s.config.BatchSize
		if end > len(addresses) {
			end = len(addresses)
		}
		batch := addresses[s.state.Cursor:end]

		wallets := s.fetchBatch(ctx, batch)
		for i, w := range wallets {
			if w.FetchError != "" {
				s.state.FailedCount++
				s.logger.Warn("Error collecting NFT transactions",
					zap.String("address", w.Address),
					zap.String("error", w.FetchError),
				)
				continue
			}
			s.logger.Info("Collected NFT transactions",
				zap.String("address", w.Address),
				zap.Int("progress", s.state.Cursor+i+1),
				zap.Int("total", len(addresses)),
				zap.Int("transactions", len(w.Transactions)),
			)
		}

		s.wallets = append(s.wallets, wallets...)
		s.state.Cursor = end
		collectorCursor.Set(float64(s.state.Cursor))

		if s.state.Cursor-lastCheckpoint >= s.config.CheckpointEvery {
			if err := s.checkpoint(ctx, entities.CollectionCheckpointed); err != nil {
				return nil, s.fail(ctx, err)
			}
			lastCheckpoint = s.state.Cursor
		}
	}

	if err := s.checkpoint(ctx, entities.CollectionComplete); err != nil {
		return nil, s.fail(ctx, err)
	}

	s.logger.Info("All NFT transactions collected",
		zap.Int("wallets", len(s.wallets)),
		zap.Int("failed", s.state.FailedCount),
	)

	return s.wallets, nil
}

// resume loads the last checkpoint, if any, and positions the cursor after it
func (s *CollectorService) resume(ctx context.Context, total int) error {
	cp, err := s.checkpoints.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	s.state.Total = total
	if cp == nil {
		s.logger.Info("No checkpoint found, starting collection", zap.Int("total", total))
		return nil
	}

	s.wallets = cp.Wallets
	s.state.Status = cp.State.Status
	s.state.FailedCount = cp.State.FailedCount
	s.state.Cursor = cp.State.Cursor
	if s.state.Cursor > total {
		s.state.Cursor = total
	}

	s.logger.Info("Loaded saved wallet data",
		zap.String("status", string(cp.State.Status)),
		zap.Int("cursor", s.state.Cursor),
		zap.Int("total", total),
		zap.Int("wallets", len(cp.Wallets)),
	)

	return nil
}

// fetchBatch fetches a batch of wallets concurrently and waits for all of them.
// One failed wallet never cancels the others.
func (s *CollectorService) fetchBatch(ctx context.Context, addresses []string) []entities.WalletInput {
	wallets := make([]entities.WalletInput, len(addresses))

	var g errgroup.Group
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			wallets[i] = s.fetchWallet(ctx, addr)
			return nil
		})
	}
	_ = g.Wait()

	return wallets
}

func (s *CollectorService) fetchWallet(ctx context.Context, address string) entities.WalletInput {
	start := time.Now()
	defer func() {
		walletFetchDuration.Observe(time.Since(start).Seconds())
	}()

	wallet := entities.WalletInput{
		Address:      address,
		EthBalance:   "0",
		Transactions: []entities.TransferRecord{},
	}

	balance, err := s.balances.GetEthBalance(ctx, address)
	if err != nil {
		walletsFetchedTotal.WithLabelValues("failed").Inc()
		wallet.FetchError = fmt.Sprintf("failed to get balance: %v", err)
		return wallet
	}
	wallet.EthBalance = balance

	transfers, err := s.transfers.FetchTransfers(ctx, strings.ToLower(address))
	if err != nil {
		walletsFetchedTotal.WithLabelValues("failed").Inc()
		wallet.FetchError = fmt.Sprintf("failed to fetch transfers: %v", err)
		return wallet
	}
	wallet.Transactions = transfers

	walletsFetchedTotal.WithLabelValues("ok").Inc()
	transfersFetchedTotal.Add(float64(len(transfers)))

	return wallet
}

// checkpoint moves to status and persists the collected wallets
func (s *CollectorService) checkpoint(ctx context.Context, status entities.CollectionStatus) error {
	previous := s.state.Status
	if err := s.transition(status); err != nil {
		return err
	}
	s.state.UpdatedAt = time.Now().UTC()

	if err := s.checkpoints.Save(ctx, &entities.Checkpoint{State: s.state, Wallets: s.wallets}); err != nil {
		s.state.Status = previous
		checkpointsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	checkpointsTotal.WithLabelValues("ok").Inc()

	s.logger.Info("Saved checkpoint",
		zap.String("status", string(status)),
		zap.Int("cursor", s.state.Cursor),
		zap.Int("wallets", len(s.wallets)),
	)

	return nil
}

// fail records the failure and tries to keep the progress made so far
func (s *CollectorService) fail(ctx context.Context, cause error) error {
	if s.state.Status == entities.CollectionComplete {
		return cause
	}
	s.state.Status = entities.CollectionFailed
	s.state.LastError = cause.Error()
	s.state.UpdatedAt = time.Now().UTC()

	// The run context may already be cancelled
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.checkpoints.Save(saveCtx, &entities.Checkpoint{State: s.state, Wallets: s.wallets}); err != nil {
		s.logger.Error("Failed to save checkpoint after failure", zap.Error(err))
	}

	return cause
}

func (s *CollectorService) transition(next entities.CollectionStatus) error {
	if !s.state.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state.Status, next)
	}
	s.state.Status = next
	return nil
}
