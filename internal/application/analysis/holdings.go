package analysis

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// holdingSet keeps holding records in first-seen order
type holdingSet struct {
	index   map[entities.AssetIdentity]int
	records []entities.HoldingRecord
}

func newHoldingSet() *holdingSet {
	return &holdingSet{index: make(map[entities.AssetIdentity]int)}
}

// observe records one incoming transfer of an asset
func (s *holdingSet) observe(tx entities.TransferRecord, holdTime time.Duration) {
	asset := entities.NewAssetIdentity(tx.TokenAddress, tx.TokenID)

	i, ok := s.index[asset]
	if !ok {
		minted := IsMint(tx)
		price, _ := ParseWei(tx.Price)
		s.records = append(s.records, entities.HoldingRecord{
			Asset:       asset,
			Minted:      minted,
			Purchased:   !minted,
			BuyingPrice: price,
		})
		i = len(s.records) - 1
		s.index[asset] = i
	}

	s.records[i].HoldTimes = append(s.records[i].HoldTimes, holdTime)
}

// BuildHoldings reconstructs the holding records of a wallet from its transfers.
// It also returns the sum of every transfer price, nil once any price is not numeric.
func BuildHoldings(wallet entities.WalletInput, now time.Time) ([]entities.HoldingRecord, *big.Int, error) {
	holdings := newHoldingSet()
	total := new(big.Int)

	for i, tx := range wallet.Transactions {
		if err := validateTransfer(tx); err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		// Every transfer counts towards the total, whatever its direction
		if total != nil {
			price, ok := ParseWei(tx.Price)
			if ok {
				total.Add(total, price)
			} else {
				total = nil
			}
		}

		if !IsIncoming(tx, wallet.Address) {
			continue
		}
		holdings.observe(tx, now.Sub(tx.BlockTimestamp))
	}

	return holdings.records, total, nil
}

func validateTransfer(tx entities.TransferRecord) error {
	switch {
	case strings.TrimSpace(tx.TokenAddress) == "":
		return fmt.Errorf("%w: missing token address", ErrMalformedTransfer)
	case strings.TrimSpace(tx.TokenID) == "":
		return fmt.Errorf("%w: missing token id", ErrMalformedTransfer)
	case strings.TrimSpace(tx.ToAddress) == "":
		return fmt.Errorf("%w: missing recipient", ErrMalformedTransfer)
	case tx.BlockTimestamp.IsZero():
		return fmt.Errorf("%w: missing block timestamp", ErrMalformedTransfer)
	}
	return nil
}

// IsMint reports whether the transfer originates from the null address
func IsMint(tx entities.TransferRecord) bool {
	return len(tx.FromAddress) == len(entities.NullAddress) &&
		strings.EqualFold(tx.FromAddress[:2], "0x") &&
		common.IsHexAddress(tx.FromAddress) &&
		common.HexToAddress(tx.FromAddress) == (common.Address{})
}

// IsIncoming reports whether the wallet is the recipient of the transfer
func IsIncoming(tx entities.TransferRecord, walletAddress string) bool {
	return strings.EqualFold(tx.ToAddress, walletAddress)
}

// ParseWei parses a decimal wei amount. It returns false for non-numeric input.
func ParseWei(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, false
	}
	return v, true
}
