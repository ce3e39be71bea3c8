package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/nft-hold-analyzer/internal/config"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure LogSource implements TransferSource
var _ repositories.TransferSource = (*LogSource)(nil)

// LogReader is the subset of the node client the log source needs
type LogReader interface {
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// LogSource reconstructs a wallet's NFT transfers from ERC-721 Transfer logs
type LogSource struct {
	client LogReader
	config config.CollectorConfig
	logger *zap.Logger
}

// NewLogSource creates a new log based transfer source
func NewLogSource(client LogReader, cfg config.CollectorConfig, logger *zap.Logger) *LogSource {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &LogSource{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// FetchTransfers returns every NFT transfer from or to the wallet within the lookback window
func (s *LogSource) FetchTransfers(ctx context.Context, walletAddress string) ([]entities.TransferRecord, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("invalid wallet address %q", walletAddress)
	}
	walletTopic := common.BytesToHash(common.HexToAddress(walletAddress).Bytes())

	latest, err := s.client.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	toBlock := int64(latest)
	fromBlock := toBlock - s.config.LookbackBlocks
	if fromBlock < 0 {
		fromBlock = 0
	}

	seen := make(map[string]struct{})
	var logs []types.Log

	for _, r := range SplitBlockRange(fromBlock, toBlock, s.config.LogBatchSize) {
		for _, query := range walletQueries(walletTopic, r) {
			batch, err := s.client.GetLogs(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch logs for blocks %d-%d: %w", r.From, r.To, err)
			}
			for _, log := range batch {
				if !IsNFTTransferEvent(log) {
					continue
				}
				key := fmt.Sprintf("%s:%d", log.TxHash.Hex(), log.Index)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				logs = append(logs, log)
			}
		}
	}

	if len(logs) == 0 {
		return []entities.TransferRecord{}, nil
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	// Collect unique block numbers and fetch timestamps concurrently
	blockNumbers := make(map[uint64]struct{})
	for _, log := range logs {
		blockNumbers[log.BlockNumber] = struct{}{}
	}

	blockTimestamps, err := s.fetchBlockTimestamps(ctx, blockNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block timestamps: %w", err)
	}

	transfers, failedIndices := ParseNFTTransferLogs(logs, blockTimestamps)
	if len(failedIndices) > 0 {
		s.logger.Warn("Failed to parse some logs",
			zap.String("wallet", walletAddress),
			zap.Int("failed_count", len(failedIndices)),
			zap.Int("total_logs", len(logs)),
		)
	}

	s.logger.Debug("Fetched NFT transfers from logs",
		zap.String("wallet", walletAddress),
		zap.Int64("from_block", fromBlock),
		zap.Int64("to_block", toBlock),
		zap.Int("transfer_count", len(transfers)),
	)

	return transfers, nil
}

// walletQueries builds one query for transfers sent by and one for transfers received by the wallet
func walletQueries(walletTopic common.Hash, r BlockRange) []ethereum.FilterQuery {
	from := big.NewInt(r.From)
	to := big.NewInt(r.To)
	return []ethereum.FilterQuery{
		{
			FromBlock: from,
			ToBlock:   to,
			Topics:    [][]common.Hash{{TransferEventSignature}, {walletTopic}},
		},
		{
			FromBlock: from,
			ToBlock:   to,
			Topics:    [][]common.Hash{{TransferEventSignature}, nil, {walletTopic}},
		},
	}
}

// fetchBlockTimestamps fetches timestamps for multiple blocks concurrently
func (s *LogSource) fetchBlockTimestamps(ctx context.Context, blockNumbers map[uint64]struct{}) (map[uint64]time.Time, error) {
	timestamps := make(map[uint64]time.Time)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.WorkerCount)

	for blockNum := range blockNumbers {
		blockNum := blockNum // capture
		g.Go(func() error {
			timestamp, err := s.client.GetBlockTimestamp(ctx, blockNum)
			if err != nil {
				return fmt.Errorf("failed to get timestamp for block %d: %w", blockNum, err)
			}

			mu.Lock()
			timestamps[blockNum] = timestamp
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return timestamps, nil
}

// BlockRange represents a range of blocks to fetch
type BlockRange struct {
	From int64
	To   int64
}

// SplitBlockRange splits a range into batches
func SplitBlockRange(fromBlock, toBlock int64, batchSize int) []BlockRange {
	if fromBlock > toBlock || batchSize < 1 {
		return nil
	}

	var ranges []BlockRange
	for current := fromBlock; current <= toBlock; current += int64(batchSize) {
		end := current + int64(batchSize) - 1
		if end > toBlock {
			end = toBlock
		}
		ranges = append(ranges, BlockRange{From: current, To: end})
	}

	return ranges
}
