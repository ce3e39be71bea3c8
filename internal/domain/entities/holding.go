package entities

import (
	"math/big"
	"strings"
	"time"
)

// AssetIdentity identifies one NFT across its lifetime
type AssetIdentity struct {
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
}

// NewAssetIdentity builds a lowercase-normalized identity
func NewAssetIdentity(contractAddress, tokenID string) AssetIdentity {
	return AssetIdentity{
		ContractAddress: strings.ToLower(contractAddress),
		TokenID:         strings.ToLower(tokenID),
	}
}

// String renders the identity as contract/tokenId
func (a AssetIdentity) String() string {
	return a.ContractAddress + "/" + a.TokenID
}

// HoldingRecord aggregates every incoming transfer of one asset into a wallet.
// Minted, Purchased and BuyingPrice are fixed by the first incoming transfer;
// later transfers of the same asset only append to HoldTimes.
type HoldingRecord struct {
	Asset       AssetIdentity
	HoldTimes   []time.Duration
	Minted      bool
	Purchased   bool
	BuyingPrice *big.Int // nil when the first incoming price was not numeric
}

// MeanHoldTime returns the mean of the record's hold time samples
func (h *HoldingRecord) MeanHoldTime() time.Duration {
	return MeanDuration(h.HoldTimes)
}

// MeanDuration averages durations without overflowing the int64 sum.
// Zero for an empty slice.
func MeanDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sum := new(big.Int)
	for _, d := range durations {
		sum.Add(sum, big.NewInt(int64(d)))
	}
	sum.Quo(sum, big.NewInt(int64(len(durations))))
	return time.Duration(sum.Int64())
}

// LongestHoldTime returns the largest hold time sample
func (h *HoldingRecord) LongestHoldTime() time.Duration {
	var longest time.Duration
	for i, d := range h.HoldTimes {
		if i == 0 || d > longest {
			longest = d
		}
	}
	return longest
}
