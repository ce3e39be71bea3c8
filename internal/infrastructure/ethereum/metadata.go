/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure CollectionNameFetcher implements CollectionNamer
var _ repositories.CollectionNamer = (*CollectionNameFetcher)(nil)

// ContractCaller executes read-only contract calls
type ContractCaller interface {
	CallContract(ctx context.Context, contract common.Address, data []byte) ([]byte, error)
}

// CollectionNameFetcher resolves NFT collection names via eth_call and
// remembers every answer, failed lookups included, for the process lifetime
type CollectionNameFetcher struct {
	caller ContractCaller
	logger *zap.Logger

	mu    sync.Mutex
	names map[string]string
}

// NewCollectionNameFetcher creates a new collection name fetcher
func NewCollectionNameFetcher(caller ContractCaller, logger *zap.Logger) *CollectionNameFetcher {
	return &CollectionNameFetcher{
		caller: caller,
		logger: logger,
		names:  make(map[string]string),
	}
}

// name() -> 0x06fdde03
var nameSig = common.FromHex("0x06fdde03")

// CollectionName returns the ERC-721 name() of a contract.
// An empty name means the contract did not provide one.
func (f *CollectionNameFetcher) CollectionName(ctx context.Context, contractAddress string) (string, error) {
	key := strings.ToLower(contractAddress)

	f.mu.Lock()
	name, ok := f.names[key]
	f.mu.Unlock()
	if ok {
		return name, nil
	}

	if !common.IsHexAddress(key) {
		return "", fmt.Errorf("invalid contract address %q", contractAddress)
	}

	result, err := f.caller.CallContract(ctx, common.HexToAddress(key), nameSig)
	if err == nil {
		name, err = decodeStringOrBytes32(result)
	}
	if err != nil {
		f.logger.Debug("Failed to fetch collection name",
			zap.String("contract", key),
			zap.Error(err),
		)
		name = ""
	}

	// Names containing the report delimiter would split the row
	name = strings.ReplaceAll(name, ",", " ")

	f.mu.Lock()
	f.names[key] = name
	f.mu.Unlock()

	return name, nil
}

// decodeStringOrBytes32 decodes a response that could be either:
// 1. ABI-encoded string: offset (32 bytes) + length (32 bytes) + data (padded to 32 bytes)
// 2. bytes32: raw 32 bytes
func decodeStringOrBytes32(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty data")
	}

	// If data is less than 32 bytes, invalid
	if len(data) < 32 {
		return "", fmt.Errorf("data too short: %d bytes", len(data))
	}

	// Try to decode as ABI-encoded string first
	if len(data) >= 64 {
		offset := new(big.Int).SetBytes(data[:32])
		if offset.Uint64() == 32 {
			length := new(big.Int).SetBytes(data[32:64])
			strLen := int(length.Uint64())

			if strLen == 0 {
				return "", nil
			}

			if len(data) >= 64+strLen {
				strData := data[64 : 64+strLen]
				return strings.TrimRight(string(strData), "\x00"), nil
			}
		}
	}

	// Fallback: treat as bytes32
	result := bytes.TrimRight(data[:32], "\x00")

	if isPrintableASCII(result) {
		return string(result), nil
	}

	// Return hex representation if not printable
	return "0x" + hex.EncodeToString(data[:32]), nil
}

// isPrintableASCII checks if all bytes are printable ASCII characters
func isPrintableASCII(data []byte) bool {
	for _, b := range data {
		if b < 32 || b > 126 {
			return false
		}
	}
	return len(data) > 0
}
