package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/nft-hold-analyzer/internal/application/analysis"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// AnalyzerService summarizes collected wallets
type AnalyzerService struct {
	workerCount int
	logger      *zap.Logger
}

// NewAnalyzerService creates a new analyzer service
func NewAnalyzerService(workerCount int, logger *zap.Logger) *AnalyzerService {
	if workerCount < 1 {
		workerCount = 1
	}
	return &AnalyzerService{
		workerCount: workerCount,
		logger:      logger,
	}
}

// SummarizeAll summarizes every wallet as of now, preserving input order.
// Wallets are independent, so they are summarized concurrently; a wallet that
// fails is kept in place with its error set and does not stop the others.
func (s *AnalyzerService) SummarizeAll(ctx context.Context, wallets []entities.WalletInput, now time.Time) ([]entities.WalletSummary, error) {
	summaries := make([]entities.WalletSummary, len(wallets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	for i := range wallets {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			summaries[i] = s.Summarize(wallets[i], now)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for i := range summaries {
		if summaries[i].Failed() {
			failed++
		}
	}

	s.logger.Info("Summarized wallets",
		zap.Int("wallets", len(wallets)),
		zap.Int("failed", failed),
	)

	return summaries, nil
}

// Summarize summarizes one wallet, marking it failed instead of returning an error
func (s *AnalyzerService) Summarize(wallet entities.WalletInput, now time.Time) entities.WalletSummary {
	summary := analysis.SummarizeOrMark(wallet, now)
	if summary.Failed() {
		walletsSummarizedTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("Failed to summarize wallet",
			zap.String("address", wallet.Address),
			zap.Error(summary.Err),
		)
		return summary
	}

	walletsSummarizedTotal.WithLabelValues("ok").Inc()
	holdingsReconstructedTotal.Add(float64(summary.TotalHoldings))

	s.logger.Debug("Summarized wallet",
		zap.String("address", wallet.Address),
		zap.Int("transactions", len(wallet.Transactions)),
		zap.Int("holdings", summary.TotalHoldings),
	)

	return summary
}
