package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/application/analysis"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/testutil"
)

func TestAnalyzerService_SummarizeAllPreservesOrder(t *testing.T) {
	wallets := make([]entities.WalletInput, 20)
	for i := range wallets {
		transfers := make([]entities.TransferRecord, i%4)
		for j := range transfers {
			transfers[j] = testutil.CreateTestTransfer(testutil.WithTokenID(fmt.Sprint(j)))
		}
		wallets[i] = testutil.CreateTestWallet(testutil.AliceAddress, transfers...)
		wallets[i].Address = fmt.Sprintf("0x%040d", i)
		for j := range wallets[i].Transactions {
			wallets[i].Transactions[j].ToAddress = wallets[i].Address
		}
	}
	wallets[7].FetchError = "timeout"

	service := NewAnalyzerService(4, zap.NewNop())
	summaries, err := service.SummarizeAll(context.Background(), wallets, testutil.ReferenceTime)
	require.NoError(t, err)
	require.Len(t, summaries, len(wallets))

	for i, s := range summaries {
		assert.Equal(t, wallets[i].Address, s.Address)
		if i == 7 {
			assert.ErrorIs(t, s.Err, analysis.ErrFetchFailed)
			continue
		}
		assert.Equal(t, i%4, s.TotalHoldings, "wallet %d", i)
	}
}

func TestAnalyzerService_MatchesSequentialSummary(t *testing.T) {
	wallets := []entities.WalletInput{
		testutil.CreateTestWallet(testutil.AliceAddress, testutil.CreateTestTransfer(), testutil.CreateTestTransfer(testutil.AsMint(), testutil.WithTokenID("9"))),
		testutil.CreateTestWallet(testutil.BobAddress),
	}

	service := NewAnalyzerService(0, zap.NewNop())
	got, err := service.SummarizeAll(context.Background(), wallets, testutil.ReferenceTime)
	require.NoError(t, err)

	assert.Equal(t, analysis.SummarizeAll(wallets, testutil.ReferenceTime), got)
}

func TestAnalyzerService_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewAnalyzerService(2, zap.NewNop())
	_, err := service.SummarizeAll(ctx, []entities.WalletInput{testutil.CreateTestWallet(testutil.AliceAddress)}, testutil.ReferenceTime)
	assert.ErrorIs(t, err, context.Canceled)
}
