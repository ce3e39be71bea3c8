package entities

import (
	"time"
)

// NullAddress is the sender of every minted token
const NullAddress = "0x0000000000000000000000000000000000000000"

// TransferRecord represents one observed transfer of a single NFT unit
type TransferRecord struct {
	FromAddress     string    `json:"fromAddress" db:"from_address"`
	ToAddress       string    `json:"toAddress" db:"to_address"`
	TokenAddress    string    `json:"tokenAddress" db:"token_address"`
	TokenID         string    `json:"tokenId" db:"token_id"`
	Price           string    `json:"price" db:"price"` // Raw wei, may be non-numeric
	BlockTimestamp  time.Time `json:"blockTimestamp" db:"block_timestamp"`
	BlockNumber     int64     `json:"blockNumber,omitempty" db:"block_number"`
	TransactionHash string    `json:"transactionHash,omitempty" db:"tx_hash"`
	TransactionType string    `json:"transactionType,omitempty" db:"tx_type"`
}

// TransferFilter contains filters for querying stored wallet transfers
type TransferFilter struct {
	WalletAddress string
	TokenAddress  *string
	FromTime      *time.Time
	ToTime        *time.Time
	Limit         int
	Offset        int
}

// DefaultTransferFilter returns a filter with sensible defaults
func DefaultTransferFilter(walletAddress string) TransferFilter {
	return TransferFilter{
		WalletAddress: walletAddress,
		Limit:         10000,
		Offset:        0,
	}
}
