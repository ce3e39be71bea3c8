package report

import (
	"context"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

const (
	// NotAvailable is written in place of values that cannot be computed
	NotAvailable = "NaN"

	fieldDelimiter = ","
	rowDelimiter   = "\n"

	etherDecimals = 18
	day           = 24 * time.Hour
)

// Header is the fixed column header of the report
var Header = []string{
	"Address",
	"ethBalance (ETH)",
	"Total Holding NFTs (nft count)",
	"Total spend ETH (ETH)",
	"Highest Buying Price (ETH)",
	"Minted NFTs (nft count)",
	"Purchased NFTs (nft count)",
	"Average Hold days (days)",
	"Longest Hold NFT (contractAddr/tokenId/days)",
}

// Formatter renders wallet summaries as a delimited text table.
// Values are joined as-is: a field containing the delimiter corrupts its row.
type Formatter struct {
	namer  repositories.CollectionNamer
	logger *zap.Logger
}

// NewFormatter creates a formatter. namer may be nil, in which case the
// longest held asset is shown by contract address.
func NewFormatter(namer repositories.CollectionNamer, logger *zap.Logger) *Formatter {
	return &Formatter{
		namer:  namer,
		logger: logger,
	}
}

// Format renders the summaries without collection name lookups
func Format(summaries []entities.WalletSummary) string {
	return NewFormatter(nil, zap.NewNop()).Format(context.Background(), summaries)
}

// Format renders the header and one row per summary
func (f *Formatter) Format(ctx context.Context, summaries []entities.WalletSummary) string {
	rows := make([]string, 0, len(summaries)+1)
	rows = append(rows, strings.Join(Header, fieldDelimiter))
	for i := range summaries {
		rows = append(rows, strings.Join(f.Row(ctx, &summaries[i]), fieldDelimiter))
	}
	return strings.Join(rows, rowDelimiter)
}

// Write renders the report into w
func (f *Formatter) Write(ctx context.Context, w io.Writer, summaries []entities.WalletSummary) error {
	_, err := io.WriteString(w, f.Format(ctx, summaries))
	return err
}

// Row renders the fields of one summary in header order
func (f *Formatter) Row(ctx context.Context, s *entities.WalletSummary) []string {
	if s.Failed() {
		f.logger.Warn("Wallet summary unavailable",
			zap.String("address", s.Address),
			zap.Error(s.Err),
		)
		return []string{
			s.Address,
			s.EthBalance,
			NotAvailable,
			NotAvailable,
			NotAvailable,
			NotAvailable,
			NotAvailable,
			NotAvailable,
			NotAvailable + "/" + NotAvailable + "/" + NotAvailable,
		}
	}

	totalPurchased, err := FormatEther(s.TotalPurchased)
	if err != nil {
		f.logger.Debug("Total spend not available", zap.String("address", s.Address))
	}
	highestBuyingPrice, err := FormatEther(s.HighestBuyingPrice)
	if err != nil {
		f.logger.Debug("Highest buying price not available", zap.String("address", s.Address))
	}

	averageDays := NotAvailable
	if s.AverageHoldTime != nil {
		averageDays = strconv.FormatInt(RoundDays(*s.AverageHoldTime), 10)
	}

	return []string{
		s.Address,
		s.EthBalance,
		strconv.Itoa(s.TotalHoldings),
		totalPurchased,
		highestBuyingPrice,
		strconv.Itoa(s.MintedCount),
		strconv.Itoa(s.PurchasedCount),
		averageDays,
		f.longestHeldField(ctx, s.LongestHeld),
	}
}

// longestHeldField renders <collection-or-contract>/<tokenId>/<days>
func (f *Formatter) longestHeldField(ctx context.Context, longest entities.LongestHold) string {
	days := strconv.FormatInt(RoundDays(longest.HoldTime), 10)
	if longest.Asset == nil {
		return NotAvailable + "/" + NotAvailable + "/" + days
	}

	collection := longest.Asset.ContractAddress
	if f.namer != nil {
		name, err := f.namer.CollectionName(ctx, longest.Asset.ContractAddress)
		if err != nil {
			f.logger.Debug("Collection name lookup failed, using contract address",
				zap.String("contract", longest.Asset.ContractAddress),
				zap.Error(err),
			)
		} else if name != "" {
			collection = name
		}
	}

	return collection + "/" + longest.Asset.TokenID + "/" + days
}

// FormatEther converts a wei amount into ether with two decimals.
// A nil amount yields NotAvailable and ErrNotAvailable.
func FormatEther(wei *big.Int) (string, error) {
	if wei == nil {
		return NotAvailable, ErrNotAvailable
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).StringFixed(2), nil
}

// RoundDays converts a duration into whole days, rounding halves up
func RoundDays(d time.Duration) int64 {
	return int64(math.Floor(float64(d)/float64(day) + 0.5))
}
