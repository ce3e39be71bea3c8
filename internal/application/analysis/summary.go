package analysis

import (
	"fmt"
	"math/big"
	"time"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// Summarize computes the NFT statistics of one wallet as of now
func Summarize(wallet entities.WalletInput, now time.Time) (*entities.WalletSummary, error) {
	if wallet.FetchError != "" {
		return nil, fmt.Errorf("%w: %s", ErrFetchFailed, wallet.FetchError)
	}

	holdings, total, err := BuildHoldings(wallet, now)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", wallet.Address, err)
	}

	summary := &entities.WalletSummary{
		Address:            wallet.Address,
		EthBalance:         wallet.EthBalance,
		TotalHoldings:      len(holdings),
		TotalPurchased:     total,
		HighestBuyingPrice: highestBuyingPrice(holdings),
		AverageHoldTime:    averageHoldTime(holdings),
		LongestHeld:        longestHeld(holdings),
		Holdings:           holdings,
	}

	for _, h := range holdings {
		if h.Minted {
			summary.MintedCount++
		}
		if h.Purchased {
			summary.PurchasedCount++
		}
	}

	return summary, nil
}

// SummarizeAll summarizes every wallet in order.
// A wallet that fails keeps its place with Err set.
func SummarizeAll(wallets []entities.WalletInput, now time.Time) []entities.WalletSummary {
	summaries := make([]entities.WalletSummary, len(wallets))
	for i, w := range wallets {
		summaries[i] = SummarizeOrMark(w, now)
	}
	return summaries
}

// SummarizeOrMark returns the wallet summary, or a marked summary carrying the error
func SummarizeOrMark(wallet entities.WalletInput, now time.Time) entities.WalletSummary {
	summary, err := Summarize(wallet, now)
	if err != nil {
		return entities.WalletSummary{
			Address:    wallet.Address,
			EthBalance: wallet.EthBalance,
			Err:        err,
		}
	}
	return *summary
}

// averageHoldTime is the mean over holdings of each holding's mean hold time
func averageHoldTime(holdings []entities.HoldingRecord) *time.Duration {
	if len(holdings) == 0 {
		return nil
	}
	means := make([]time.Duration, len(holdings))
	for i := range holdings {
		means[i] = holdings[i].MeanHoldTime()
	}
	avg := entities.MeanDuration(means)
	return &avg
}

// longestHeld finds the largest single hold time; ties keep the earliest record
func longestHeld(holdings []entities.HoldingRecord) entities.LongestHold {
	var longest entities.LongestHold
	for i := range holdings {
		holdTime := holdings[i].LongestHoldTime()
		if holdTime > longest.HoldTime {
			asset := holdings[i].Asset
			longest = entities.LongestHold{Asset: &asset, HoldTime: holdTime}
		}
	}
	return longest
}

// highestBuyingPrice is the largest positive buying price, nil if there is none
func highestBuyingPrice(holdings []entities.HoldingRecord) *big.Int {
	var highest *big.Int
	for _, h := range holdings {
		if h.BuyingPrice == nil || h.BuyingPrice.Sign() <= 0 {
			continue
		}
		if highest == nil || h.BuyingPrice.Cmp(highest) > 0 {
			highest = h.BuyingPrice
		}
	}
	if highest == nil {
		return nil
	}
	return new(big.Int).Set(highest)
}
