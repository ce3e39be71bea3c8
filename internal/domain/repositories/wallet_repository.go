package repositories

import (
	"context"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// WalletRepository defines the interface for collected wallet data
type WalletRepository interface {
	// SaveWallets stores wallets and replaces their transfer history
	SaveWallets(ctx context.Context, wallets []entities.WalletInput) error

	// GetWallet retrieves a wallet with its transfers, nil if unknown
	GetWallet(ctx context.Context, address string) (*entities.WalletInput, error)

	// ListWallets retrieves every stored wallet with its transfers, in insertion order
	ListWallets(ctx context.Context) ([]entities.WalletInput, error)

	// GetTransfers retrieves stored transfers matching the filter
	GetTransfers(ctx context.Context, filter entities.TransferFilter) ([]entities.TransferRecord, error)
}
