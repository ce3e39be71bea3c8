package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/config"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure Client implements BalanceSource
var _ repositories.BalanceSource = (*Client)(nil)

// balanceDecimals is the precision of the ETH balance shown in reports
const balanceDecimals = 3

// Client wraps the Ethereum client with retry logic and utilities
type Client struct {
	client  *ethclient.Client
	config  config.EthereumConfig
	logger  *zap.Logger
	chainID *big.Int
}

// NewClient creates a new Ethereum client
func NewClient(cfg config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if chainID.Int64() != cfg.ChainID {
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, chainID.Int64())
	}

	logger.Info("Connected to Ethereum node",
		zap.String("rpc_url", cfg.RPCURL),
		zap.Int64("chain_id", chainID.Int64()),
	)

	return &Client{
		client:  client,
		config:  cfg,
		logger:  logger,
		chainID: chainID,
	}, nil
}

// Close closes the Ethereum client connection
func (c *Client) Close() {
	c.client.Close()
}

// retry runs fn until it succeeds or the retry budget is spent
func retry[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		callCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		result, err = fn(callCtx)
		cancel()
		if err == nil {
			return result, nil
		}

		c.logger.Warn("Ethereum call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return result, fmt.Errorf("failed to %s after %d retries: %w", op, c.config.MaxRetries, err)
}

// GetLatestBlockNumber returns the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return retry(ctx, c, "get latest block number", c.client.BlockNumber)
}

// GetBlockTimestamp returns the timestamp of a block
func (c *Client) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := retry(ctx, c, fmt.Sprintf("get header %d", blockNumber), func(ctx context.Context) (*types.Header, error) {
		return c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	})
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// GetLogs retrieves logs matching the filter query
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return retry(ctx, c, "get logs", func(ctx context.Context) ([]types.Log, error) {
		return c.client.FilterLogs(ctx, query)
	})
}

// GetBalance returns the wei balance of an account at the latest block
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	account := common.HexToAddress(address)
	return retry(ctx, c, "get balance", func(ctx context.Context) (*big.Int, error) {
		return c.client.BalanceAt(ctx, account, nil)
	})
}

// GetEthBalance returns the balance of an account in ether with three decimals
func (c *Client) GetEthBalance(ctx context.Context, address string) (string, error) {
	wei, err := c.GetBalance(ctx, strings.TrimSpace(address))
	if err != nil {
		return "", err
	}
	return FormatEther(wei, balanceDecimals), nil
}

// CallContract executes a read-only contract call at the latest block
func (c *Client) CallContract(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &contract, Data: data}
	return retry(ctx, c, "call contract", func(ctx context.Context) ([]byte, error) {
		return c.client.CallContract(ctx, msg, nil)
	})
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// HealthCheck checks if the node is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.BlockNumber(ctx)
	return err
}

// FormatEther converts wei into ether with a fixed number of decimals
func FormatEther(wei *big.Int, places int32) string {
	return decimal.NewFromBigInt(wei, -18).StringFixed(places)
}
