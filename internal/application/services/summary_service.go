package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/application/report"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// SummaryCache stores rendered API responses
type SummaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SummaryService serves NFT summaries of collected wallets
type SummaryService struct {
	walletRepo repositories.WalletRepository
	analyzer   *AnalyzerService
	formatter  *report.Formatter
	cache      SummaryCache
	cacheTTL   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewSummaryService creates a new summary service
func NewSummaryService(
	walletRepo repositories.WalletRepository,
	analyzer *AnalyzerService,
	formatter *report.Formatter,
	cache SummaryCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		walletRepo: walletRepo,
		analyzer:   analyzer,
		formatter:  formatter,
		cache:      cache,
		cacheTTL:   cacheTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the clock used as the hold time reference
func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

// LongestHeldDTO is the API representation of the longest held NFT
type LongestHeldDTO struct {
	ContractAddress string `json:"contract_address,omitempty"`
	TokenID         string `json:"token_id,omitempty"`
	HoldDays        int64  `json:"hold_days"`
}

// WalletNFTSummaryDTO is the API representation of a wallet summary.
// Values that are not available are null.
type WalletNFTSummaryDTO struct {
	WalletAddress         string         `json:"wallet_address"`
	EthBalance            string         `json:"eth_balance"`
	TotalHoldings         int            `json:"total_holdings"`
	TotalSpentWei         *string        `json:"total_spent_wei"`
	TotalSpentEth         *string        `json:"total_spent_eth"`
	HighestBuyingPriceWei *string        `json:"highest_buying_price_wei"`
	HighestBuyingPriceEth *string        `json:"highest_buying_price_eth"`
	MintedCount           int            `json:"minted_count"`
	PurchasedCount        int            `json:"purchased_count"`
	AverageHoldDays       *int64         `json:"average_hold_days"`
	LongestHeld           LongestHeldDTO `json:"longest_held"`
	Error                 string         `json:"error,omitempty"`
	EvaluatedAt           string         `json:"evaluated_at"`
}

// WalletNFTSummaryResponse wraps a wallet summary for API response
type WalletNFTSummaryResponse struct {
	Data WalletNFTSummaryDTO `json:"data"`
}

// HoldingDTO is the API representation of a holding record
type HoldingDTO struct {
	ContractAddress string  `json:"contract_address"`
	TokenID         string  `json:"token_id"`
	Minted          bool    `json:"minted"`
	Purchased       bool    `json:"purchased"`
	BuyingPriceWei  *string `json:"buying_price_wei"`
	HoldDays        []int64 `json:"hold_days"`
}

// HoldingsResponse wraps the holdings of a wallet for API response
type HoldingsResponse struct {
	Data []HoldingDTO `json:"data"`
	Meta HoldingsMeta `json:"meta"`
}

// HoldingsMeta contains metadata about a holdings response
type HoldingsMeta struct {
	WalletAddress string `json:"wallet_address"`
	Total         int    `json:"total"`
	EvaluatedAt   string `json:"evaluated_at"`
}

// TransferDTO is the API representation of a stored transfer
type TransferDTO struct {
	TxHash         string `json:"tx_hash,omitempty"`
	BlockNumber    int64  `json:"block_number"`
	BlockTimestamp string `json:"block_timestamp"`
	TokenAddress   string `json:"token_address"`
	TokenID        string `json:"token_id"`
	FromAddress    string `json:"from_address"`
	ToAddress      string `json:"to_address"`
	Price          string `json:"price"`
}

// TransfersResponse is a page of stored wallet transfers
type TransfersResponse struct {
	Transfers []TransferDTO `json:"transfers"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	HasMore   bool          `json:"has_more"`
}

// GetWalletSummary computes the summary of a stored wallet, nil if the wallet is unknown
func (s *SummaryService) GetWalletSummary(ctx context.Context, walletAddress string) (*WalletNFTSummaryResponse, error) {
	walletAddress = strings.ToLower(walletAddress)

	// Generate cache key
	cacheKey := SummaryCacheKey(walletAddress)

	// Try cache first
	var cached WalletNFTSummaryResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	wallet, err := s.walletRepo.GetWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, nil
	}

	now := s.now()
	summary := s.analyzer.Summarize(*wallet, now)

	response := &WalletNFTSummaryResponse{
		Data: toSummaryDTO(&summary, now),
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetHoldings returns the reconstructed holdings of a stored wallet, nil if the wallet is unknown
func (s *SummaryService) GetHoldings(ctx context.Context, walletAddress string) (*HoldingsResponse, error) {
	walletAddress = strings.ToLower(walletAddress)

	wallet, err := s.walletRepo.GetWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, nil
	}

	now := s.now()
	summary := s.analyzer.Summarize(*wallet, now)
	if summary.Failed() {
		return nil, summary.Err
	}

	holdings := make([]HoldingDTO, len(summary.Holdings))
	for i, h := range summary.Holdings {
		days := make([]int64, len(h.HoldTimes))
		for j, d := range h.HoldTimes {
			days[j] = report.RoundDays(d)
		}
		holdings[i] = HoldingDTO{
			ContractAddress: h.Asset.ContractAddress,
			TokenID:         h.Asset.TokenID,
			Minted:          h.Minted,
			Purchased:       h.Purchased,
			BuyingPriceWei:  bigString(h.BuyingPrice),
			HoldDays:        days,
		}
	}

	return &HoldingsResponse{
		Data: holdings,
		Meta: HoldingsMeta{
			WalletAddress: walletAddress,
			Total:         len(holdings),
			EvaluatedAt:   now.UTC().Format(time.RFC3339),
		},
	}, nil
}

// GetTransfers returns a page of the stored transfers of a wallet
func (s *SummaryService) GetTransfers(ctx context.Context, filter entities.TransferFilter) (*TransfersResponse, error) {
	filter.WalletAddress = strings.ToLower(filter.WalletAddress)

	// Fetch one extra row to detect a following page
	limit := filter.Limit
	filter.Limit = limit + 1

	transfers, err := s.walletRepo.GetTransfers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	hasMore := len(transfers) > limit
	if hasMore {
		transfers = transfers[:limit]
	}

	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = TransferDTO{
			TxHash:         t.TransactionHash,
			BlockNumber:    t.BlockNumber,
			BlockTimestamp: t.BlockTimestamp.UTC().Format(time.RFC3339),
			TokenAddress:   t.TokenAddress,
			TokenID:        t.TokenID,
			FromAddress:    t.FromAddress,
			ToAddress:      t.ToAddress,
			Price:          t.Price,
		}
	}

	return &TransfersResponse{
		Transfers: dtos,
		Limit:     limit,
		Offset:    filter.Offset,
		HasMore:   hasMore,
	}, nil
}

// GetReport renders the tabular report over every stored wallet
func (s *SummaryService) GetReport(ctx context.Context) (string, error) {
	wallets, err := s.walletRepo.ListWallets(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list wallets: %w", err)
	}

	summaries, err := s.analyzer.SummarizeAll(ctx, wallets, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to summarize wallets: %w", err)
	}

	return s.formatter.Format(ctx, summaries), nil
}

// SummaryCacheKey is the cache key of a wallet's summary response
func SummaryCacheKey(walletAddress string) string {
	return fmt.Sprintf("nft_summary:%s", strings.ToLower(walletAddress))
}

func toSummaryDTO(s *entities.WalletSummary, now time.Time) WalletNFTSummaryDTO {
	dto := WalletNFTSummaryDTO{
		WalletAddress: s.Address,
		EthBalance:    s.EthBalance,
		EvaluatedAt:   now.UTC().Format(time.RFC3339),
	}
	if s.Failed() {
		dto.Error = s.Err.Error()
		return dto
	}

	dto.TotalHoldings = s.TotalHoldings
	dto.MintedCount = s.MintedCount
	dto.PurchasedCount = s.PurchasedCount
	dto.TotalSpentWei = bigString(s.TotalPurchased)
	dto.HighestBuyingPriceWei = bigString(s.HighestBuyingPrice)
	if eth, err := report.FormatEther(s.TotalPurchased); err == nil {
		dto.TotalSpentEth = &eth
	}
	if eth, err := report.FormatEther(s.HighestBuyingPrice); err == nil {
		dto.HighestBuyingPriceEth = &eth
	}
	if s.AverageHoldTime != nil {
		days := report.RoundDays(*s.AverageHoldTime)
		dto.AverageHoldDays = &days
	}

	dto.LongestHeld.HoldDays = report.RoundDays(s.LongestHeld.HoldTime)
	if s.LongestHeld.Asset != nil {
		dto.LongestHeld.ContractAddress = s.LongestHeld.Asset.ContractAddress
		dto.LongestHeld.TokenID = s.LongestHeld.Asset.TokenID
	}

	return dto
}

func bigString(v *big.Int) *string {
	if v == nil {
		return nil
	}
	str := v.String()
	return &str
}
