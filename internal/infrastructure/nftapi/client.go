package nftapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/config"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure Client implements TransferSource
var _ repositories.TransferSource = (*Client)(nil)

// ErrTooManyPages indicates the cursor chain did not end within the page limit
var ErrTooManyPages = errors.New("too many transfer pages")

// Client fetches NFT transfer history from an Infura-style NFT API
type Client struct {
	httpClient *http.Client
	config     config.NFTAPIConfig
	chainID    int64
	limiter    ratelimit.Limiter
	logger     *zap.Logger
}

// NewClient creates a new NFT API client
func NewClient(cfg config.NFTAPIConfig, chainID int64, logger *zap.Logger) *Client {
	rps := cfg.RateLimitRPS
	if rps < 1 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		config:     cfg,
		chainID:    chainID,
		limiter:    ratelimit.New(rps),
		logger:     logger,
	}
}

// transferPage is one page of the transfers endpoint
type transferPage struct {
	Total     int           `json:"total"`
	PageSize  int           `json:"pageSize"`
	Network   string        `json:"network"`
	Cursor    *string       `json:"cursor"`
	Transfers []apiTransfer `json:"transfers"`
}

// apiTransfer is a transfer as returned by the API
type apiTransfer struct {
	TokenAddress    string     `json:"tokenAddress"`
	TokenID         string     `json:"tokenId"`
	FromAddress     string     `json:"fromAddress"`
	ToAddress       string     `json:"toAddress"`
	ContractType    string     `json:"contractType"`
	Price           flexString `json:"price"`
	Quantity        string     `json:"quantity"`
	BlockNumber     flexString `json:"blockNumber"`
	BlockTimestamp  string     `json:"blockTimestamp"`
	BlockHash       string     `json:"blockHash"`
	TransactionHash string     `json:"transactionHash"`
	TransactionType string     `json:"transactionType"`
}

// FetchTransfers follows the cursor chain and returns every transfer of the wallet
func (c *Client) FetchTransfers(ctx context.Context, walletAddress string) ([]entities.TransferRecord, error) {
	var transfers []entities.TransferRecord
	cursor := ""

	for page := 0; ; page++ {
		if page >= c.config.MaxPages {
			return nil, fmt.Errorf("%w: wallet %s exceeded %d pages", ErrTooManyPages, walletAddress, c.config.MaxPages)
		}

		result, err := c.fetchPage(ctx, walletAddress, cursor)
		if err != nil {
			return nil, err
		}

		for _, t := range result.Transfers {
			transfers = append(transfers, t.toRecord())
		}

		c.logger.Debug("Fetched transfer page",
			zap.String("wallet", walletAddress),
			zap.Int("page", page+1),
			zap.Int("transfers", len(result.Transfers)),
		)

		if result.Cursor == nil || *result.Cursor == "" {
			break
		}
		cursor = *result.Cursor
	}

	if transfers == nil {
		transfers = []entities.TransferRecord{}
	}
	return transfers, nil
}

// fetchPage fetches one page, retrying transient failures
func (c *Client) fetchPage(ctx context.Context, walletAddress, cursor string) (*transferPage, error) {
	endpoint := c.pageURL(walletAddress, cursor)

	var page *transferPage
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		page, err = c.doRequest(ctx, endpoint)
		if err == nil {
			return page, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}

		c.logger.Warn("Failed to fetch transfer page, retrying",
			zap.String("wallet", walletAddress),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch transfers after %d retries: %w", c.config.MaxRetries, err)
}

func (c *Client) doRequest(ctx context.Context, endpoint string) (*transferPage, error) {
	c.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.SetBasicAuth(c.config.APIKey, c.config.APISecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page transferPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode transfer page: %w", err)
	}

	return &page, nil
}

func (c *Client) pageURL(walletAddress, cursor string) string {
	endpoint := fmt.Sprintf("%s/networks/%d/accounts/%s/assets/transfers",
		strings.TrimRight(c.config.BaseURL, "/"), c.chainID, url.PathEscape(walletAddress))
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}
	return endpoint
}

func (t apiTransfer) toRecord() entities.TransferRecord {
	record := entities.TransferRecord{
		FromAddress:     t.FromAddress,
		ToAddress:       t.ToAddress,
		TokenAddress:    t.TokenAddress,
		TokenID:         t.TokenID,
		Price:           string(t.Price),
		TransactionHash: t.TransactionHash,
		TransactionType: t.TransactionType,
	}
	// A transfer without a sale reports no price
	if record.Price == "" {
		record.Price = "0"
	}
	if n, err := strconv.ParseInt(string(t.BlockNumber), 10, 64); err == nil {
		record.BlockNumber = n
	}
	// An unparsable timestamp stays zero and fails validation downstream
	if ts, err := time.Parse(time.RFC3339, t.BlockTimestamp); err == nil {
		record.BlockTimestamp = ts
	}
	return record
}

// StatusError is returned for non-200 API responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed when repeated
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// flexString accepts a JSON string or number; null decodes to ""
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}
