package ethereum

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// TransferEventSignature is the keccak256 hash of Transfer(address,address,uint256).
// ERC-721 shares it with ERC-20 but indexes the token id as a fourth topic.
var TransferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// ParseNFTTransfer parses an ERC-721 Transfer log into a transfer record
func ParseNFTTransfer(log types.Log, blockTimestamp time.Time) (*entities.TransferRecord, error) {
	// Validate log has correct topic structure
	if len(log.Topics) != 4 {
		return nil, fmt.Errorf("invalid number of topics: expected 4, got %d", len(log.Topics))
	}

	// Verify this is a Transfer event
	if log.Topics[0] != TransferEventSignature {
		return nil, fmt.Errorf("not a Transfer event")
	}

	// Topics[1] = from, Topics[2] = to (padded to 32 bytes), Topics[3] = token id
	fromAddress := common.BytesToAddress(log.Topics[1].Bytes())
	toAddress := common.BytesToAddress(log.Topics[2].Bytes())
	tokenID := new(big.Int).SetBytes(log.Topics[3].Bytes())

	return &entities.TransferRecord{
		FromAddress:     strings.ToLower(fromAddress.Hex()),
		ToAddress:       strings.ToLower(toAddress.Hex()),
		TokenAddress:    strings.ToLower(log.Address.Hex()),
		TokenID:         tokenID.String(),
		Price:           "0", // logs carry no sale price
		BlockTimestamp:  blockTimestamp,
		BlockNumber:     int64(log.BlockNumber),
		TransactionHash: log.TxHash.Hex(),
		TransactionType: transferType(fromAddress),
	}, nil
}

// ParseNFTTransferLogs parses multiple logs into transfer records.
// Returns parsed transfers and a list of failed log indices.
func ParseNFTTransferLogs(logs []types.Log, blockTimestamps map[uint64]time.Time) ([]entities.TransferRecord, []int) {
	transfers := make([]entities.TransferRecord, 0, len(logs))
	failedIndices := make([]int, 0)

	for i, log := range logs {
		timestamp, ok := blockTimestamps[log.BlockNumber]
		if !ok {
			failedIndices = append(failedIndices, i)
			continue
		}

		transfer, err := ParseNFTTransfer(log, timestamp)
		if err != nil {
			failedIndices = append(failedIndices, i)
			continue
		}

		transfers = append(transfers, *transfer)
	}

	return transfers, failedIndices
}

// IsNFTTransferEvent checks if a log is an ERC-721 Transfer event
func IsNFTTransferEvent(log types.Log) bool {
	return len(log.Topics) == 4 && log.Topics[0] == TransferEventSignature
}

func transferType(from common.Address) string {
	if from == (common.Address{}) {
		return "MINT"
	}
	return "TRANSFER"
}
