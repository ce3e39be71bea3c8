package entities

import (
	"math/big"
	"time"
)

// WalletInput is the collected dataset for one wallet
type WalletInput struct {
	Address      string           `json:"address"`
	EthBalance   string           `json:"ethBalance"`
	Transactions []TransferRecord `json:"transactions"`
	FetchError   string           `json:"fetchError,omitempty"`
}

// LongestHold is the single longest observed hold of a wallet.
// Asset is nil for wallets without holdings.
type LongestHold struct {
	Asset    *AssetIdentity
	HoldTime time.Duration
}

// WalletSummary holds the per-wallet NFT statistics.
// Nil amounts and durations mean the value is not available.
type WalletSummary struct {
	Address            string
	EthBalance         string
	TotalHoldings      int
	TotalPurchased     *big.Int       // nil when a price was not numeric
	HighestBuyingPrice *big.Int       // nil when no holding has a positive buying price
	AverageHoldTime    *time.Duration // nil when the wallet has no holdings
	LongestHeld        LongestHold
	MintedCount        int
	PurchasedCount     int
	Holdings           []HoldingRecord

	// Err is set when the wallet could not be summarized
	Err error
}

// Failed reports whether the summary carries an error instead of statistics
func (s *WalletSummary) Failed() bool {
	return s.Err != nil
}
