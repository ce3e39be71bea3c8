package testutil

import (
	"time"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// Common test addresses
const (
	BAYCAddress   = "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"
	PunksAddress  = "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb"
	AzukiAddress  = "0xed5af388653567af2f388e6224dc7c4b3241c544"
	AliceAddress  = "0x1111111111111111111111111111111111111111"
	BobAddress    = "0x2222222222222222222222222222222222222222"
	CharlieAddr   = "0x3333333333333333333333333333333333333333"
	OneEtherInWei = "1000000000000000000"
)

// ReferenceTime is the fixed "now" used across tests
var ReferenceTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// CreateTestTransfer creates a purchase of BAYC #1 by Alice from Bob, 10 days before ReferenceTime
func CreateTestTransfer(opts ...TransferOption) entities.TransferRecord {
	t := entities.TransferRecord{
		FromAddress:     BobAddress,
		ToAddress:       AliceAddress,
		TokenAddress:    BAYCAddress,
		TokenID:         "1",
		Price:           OneEtherInWei,
		BlockTimestamp:  ReferenceTime.Add(-10 * 24 * time.Hour),
		BlockNumber:     18000000,
		TransactionHash: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TransactionType: "TRANSFER",
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

type TransferOption func(*entities.TransferRecord)

func WithFromAddress(addr string) TransferOption {
	return func(t *entities.TransferRecord) {
		t.FromAddress = addr
	}
}

func WithToAddress(addr string) TransferOption {
	return func(t *entities.TransferRecord) {
		t.ToAddress = addr
	}
}

func WithTokenAddress(addr string) TransferOption {
	return func(t *entities.TransferRecord) {
		t.TokenAddress = addr
	}
}

func WithTokenID(id string) TransferOption {
	return func(t *entities.TransferRecord) {
		t.TokenID = id
	}
}

func WithPrice(wei string) TransferOption {
	return func(t *entities.TransferRecord) {
		t.Price = wei
	}
}

// WithAge sets the block timestamp to age before ReferenceTime
func WithAge(age time.Duration) TransferOption {
	return func(t *entities.TransferRecord) {
		t.BlockTimestamp = ReferenceTime.Add(-age)
	}
}

func WithBlockTimestamp(ts time.Time) TransferOption {
	return func(t *entities.TransferRecord) {
		t.BlockTimestamp = ts
	}
}

// AsMint makes the transfer a mint to its recipient
func AsMint() TransferOption {
	return func(t *entities.TransferRecord) {
		t.FromAddress = entities.NullAddress
		t.Price = "0"
		t.TransactionType = "MINT"
	}
}

// CreateTestWallet creates a collected wallet holding the given transfers
func CreateTestWallet(address string, transfers ...entities.TransferRecord) entities.WalletInput {
	if transfers == nil {
		transfers = []entities.TransferRecord{}
	}
	return entities.WalletInput{
		Address:      address,
		EthBalance:   "1.250",
		Transactions: transfers,
	}
}

// Days returns n days as a duration
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
