package repositories

import (
	"context"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// TransferSource retrieves the NFT transfer history of a wallet
type TransferSource interface {
	FetchTransfers(ctx context.Context, walletAddress string) ([]entities.TransferRecord, error)
}

// BalanceSource retrieves the ETH balance of a wallet as a decimal string
type BalanceSource interface {
	GetEthBalance(ctx context.Context, walletAddress string) (string, error)
}

// CollectionNamer resolves a human readable collection name for a contract
type CollectionNamer interface {
	CollectionName(ctx context.Context, contractAddress string) (string, error)
}
