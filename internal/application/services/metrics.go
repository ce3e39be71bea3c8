package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walletsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_wallets_fetched_total",
			Help: "Total number of wallets fetched, by result",
		},
		[]string{"result"},
	)

	transfersFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_transfers_fetched_total",
			Help: "Total number of NFT transfers fetched",
		},
	)

	walletFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_wallet_fetch_duration_seconds",
			Help:    "Time taken to fetch balance and transfers of one wallet",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	collectorCursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collector_cursor",
			Help: "Index of the next wallet address to fetch",
		},
	)

	checkpointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_checkpoints_total",
			Help: "Total number of checkpoints written, by result",
		},
		[]string{"result"},
	)

	walletsSummarizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_wallets_summarized_total",
			Help: "Total number of wallets summarized, by result",
		},
		[]string{"result"},
	)

	holdingsReconstructedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analyzer_holdings_reconstructed_total",
			Help: "Total number of holding records reconstructed",
		},
	)
)
