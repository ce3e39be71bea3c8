package report

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/testutil"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test amount " + s)
	}
	return v
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func sampleSummary() entities.WalletSummary {
	asset := entities.NewAssetIdentity(testutil.BAYCAddress, "7804")
	return entities.WalletSummary{
		Address:            testutil.AliceAddress,
		EthBalance:         "1.250",
		TotalHoldings:      3,
		TotalPurchased:     wei("2345000000000000000"),
		HighestBuyingPrice: wei("1500000000000000000"),
		AverageHoldTime:    durationPtr(testutil.Days(12) + 13*time.Hour),
		LongestHeld:        entities.LongestHold{Asset: &asset, HoldTime: testutil.Days(40)},
		MintedCount:        1,
		PurchasedCount:     2,
	}
}

func TestFormat_HeaderAndRow(t *testing.T) {
	out := Format([]entities.WalletSummary{sampleSummary()})

	rows := strings.Split(out, "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "Address,ethBalance (ETH),Total Holding NFTs (nft count),Total spend ETH (ETH),"+
		"Highest Buying Price (ETH),Minted NFTs (nft count),Purchased NFTs (nft count),"+
		"Average Hold days (days),Longest Hold NFT (contractAddr/tokenId/days)", rows[0])
	assert.Equal(t, testutil.AliceAddress+",1.250,3,2.35,1.50,1,2,13,"+testutil.BAYCAddress+"/7804/40", rows[1])
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, strings.Join(Header, ","), Format(nil))
}

func TestFormat_NoFiniteHighestPrice(t *testing.T) {
	s := sampleSummary()
	s.HighestBuyingPrice = nil

	row := strings.Split(Format([]entities.WalletSummary{s}), "\n")[1]
	fields := strings.Split(row, ",")

	assert.Equal(t, NotAvailable, fields[4])
	assert.NotContains(t, row, "Infinity")
}

func TestFormat_NoHoldings(t *testing.T) {
	s := entities.WalletSummary{
		Address:        testutil.BobAddress,
		EthBalance:     "0.000",
		TotalPurchased: big.NewInt(0),
	}

	row := strings.Split(Format([]entities.WalletSummary{s}), "\n")[1]
	assert.Equal(t, testutil.BobAddress+",0.000,0,0.00,NaN,0,0,NaN,NaN/NaN/0", row)
}

func TestFormat_NonNumericTotal(t *testing.T) {
	s := sampleSummary()
	s.TotalPurchased = nil

	fields := strings.Split(strings.Split(Format([]entities.WalletSummary{s}), "\n")[1], ",")
	assert.Equal(t, NotAvailable, fields[3])
	assert.Equal(t, "1.50", fields[4], "other cells still render")
}

func TestFormat_FailedWalletIsMarked(t *testing.T) {
	failed := entities.WalletSummary{
		Address:    testutil.CharlieAddr,
		EthBalance: "0",
		Err:        errors.New("malformed transfer"),
	}

	rows := strings.Split(Format([]entities.WalletSummary{sampleSummary(), failed}), "\n")
	require.Len(t, rows, 3)
	assert.Equal(t, testutil.CharlieAddr+",0,NaN,NaN,NaN,NaN,NaN,NaN,NaN/NaN/NaN", rows[2])
}

func TestFormatter_CollectionNames(t *testing.T) {
	ctx := context.Background()

	named := NewFormatter(&testutil.MockCollectionNamer{
		Names: map[string]string{testutil.BAYCAddress: "BoredApeYachtClub"},
	}, zap.NewNop())
	fields := named.Row(ctx, ptr(sampleSummary()))
	assert.Equal(t, "BoredApeYachtClub/7804/40", fields[8])

	unnamed := NewFormatter(&testutil.MockCollectionNamer{Names: map[string]string{}}, zap.NewNop())
	fields = unnamed.Row(ctx, ptr(sampleSummary()))
	assert.Equal(t, testutil.BAYCAddress+"/7804/40", fields[8])

	failing := NewFormatter(&testutil.MockCollectionNamer{Err: errors.New("rpc down")}, zap.NewNop())
	fields = failing.Row(ctx, ptr(sampleSummary()))
	assert.Equal(t, testutil.BAYCAddress+"/7804/40", fields[8])
}

func TestFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(nil, zap.NewNop()).Write(context.Background(), &buf, []entities.WalletSummary{sampleSummary()})
	require.NoError(t, err)
	assert.Equal(t, Format([]entities.WalletSummary{sampleSummary()}), buf.String())
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei      *big.Int
		expected string
	}{
		{big.NewInt(0), "0.00"},
		{wei("1000000000000000000"), "1.00"},
		{wei("1005000000000000000"), "1.01"},
		{wei("4999999999999999"), "0.00"},
		{wei("123456789000000000000"), "123.46"},
	}

	for _, tt := range tests {
		got, err := FormatEther(tt.wei)
		assert.NoError(t, err)
		assert.Equal(t, tt.expected, got, "wei %s", tt.wei)
	}

	got, err := FormatEther(nil)
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, NotAvailable, got)
}

func TestRoundDays(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected int64
	}{
		{0, 0},
		{11 * time.Hour, 0},
		{12 * time.Hour, 1},
		{testutil.Days(2) + 11*time.Hour + 59*time.Minute, 2},
		{testutil.Days(2) + 12*time.Hour, 3},
		{testutil.Days(365), 365},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RoundDays(tt.d), "duration %s", tt.d)
	}
}

func ptr(s entities.WalletSummary) *entities.WalletSummary {
	return &s
}
