/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const baycAddress = "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"

// abiString encodes s as an ABI string return value (up to 32 bytes)
func abiString(s string) []byte {
	data := make([]byte, 96)
	data[31] = 32
	data[63] = byte(len(s))
	copy(data[64:], s)
	return data
}

type fakeCaller struct {
	calls  int
	result []byte
	err    error
}

func (f *fakeCaller) CallContract(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	f.calls++
	return f.result, f.err
}

func TestDecodeStringOrBytes32(t *testing.T) {
	bytes32Name, _ := hex.DecodeString("50756e6b73000000000000000000000000000000000000000000000000000000")

	tests := []struct {
		name     string
		input    []byte
		expected string
		wantErr  bool
	}{
		{name: "ABI-encoded collection name", input: abiString("BoredApeYachtClub"), expected: "BoredApeYachtClub"},
		{name: "ABI-encoded empty string", input: abiString(""), expected: ""},
		{name: "bytes32 name", input: bytes32Name, expected: "Punks"},
		{name: "binary bytes32 falls back to hex", input: make([]byte, 32), expected: "0x" + hex.EncodeToString(make([]byte, 32))},
		{name: "empty input", input: []byte{}, wantErr: true},
		{name: "short input", input: []byte{0x01, 0x02, 0x03}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := decodeStringOrBytes32(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestIsPrintableASCII(t *testing.T) {
	tests := []struct {
		input    []byte
		expected bool
	}{
		{[]byte("Azuki"), true},
		{[]byte("Test\x00Name"), false},
		{[]byte("Test\x7FName"), false},
		{[]byte{}, false},
	}

	for _, tt := range tests {
		if got := isPrintableASCII(tt.input); got != tt.expected {
			t.Errorf("isPrintableASCII(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNameSelector(t *testing.T) {
	if got := hex.EncodeToString(nameSig); got != "06fdde03" {
		t.Errorf("expected 06fdde03, got %s", got)
	}
}

func TestCollectionNameFetcher_CachesName(t *testing.T) {
	caller := &fakeCaller{result: abiString("BoredApeYachtClub")}
	fetcher := NewCollectionNameFetcher(caller, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name, err := fetcher.CollectionName(ctx, "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "BoredApeYachtClub" {
			t.Errorf("expected BoredApeYachtClub, got %q", name)
		}
	}

	if caller.calls != 1 {
		t.Errorf("expected 1 contract call, got %d", caller.calls)
	}
}

func TestCollectionNameFetcher_CallFailureYieldsEmptyName(t *testing.T) {
	caller := &fakeCaller{err: errors.New("execution reverted")}
	fetcher := NewCollectionNameFetcher(caller, zap.NewNop())

	name, err := fetcher.CollectionName(context.Background(), baycAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "" {
		t.Errorf("expected empty name, got %q", name)
	}

	// Failed lookups are remembered too
	_, _ = fetcher.CollectionName(context.Background(), baycAddress)
	if caller.calls != 1 {
		t.Errorf("expected 1 contract call, got %d", caller.calls)
	}
}

func TestCollectionNameFetcher_StripsDelimiter(t *testing.T) {
	caller := &fakeCaller{result: abiString("Apes, Inc")}
	fetcher := NewCollectionNameFetcher(caller, zap.NewNop())

	name, err := fetcher.CollectionName(context.Background(), baycAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Apes  Inc" {
		t.Errorf("expected delimiter replaced, got %q", name)
	}
}

func TestCollectionNameFetcher_InvalidAddress(t *testing.T) {
	fetcher := NewCollectionNameFetcher(&fakeCaller{}, zap.NewNop())

	if _, err := fetcher.CollectionName(context.Background(), "not-an-address"); err == nil {
		t.Error("expected error for invalid address")
	}
}
