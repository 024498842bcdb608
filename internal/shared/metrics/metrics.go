// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	auctionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_engine_auctions_created_total",
		Help: "Auctions created and committed.",
	})

	bidsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_engine_bids_accepted_total",
		Help: "Bids accepted, by payment instrument.",
	}, []string{"instrument"})

	bidsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_engine_bids_rejected_total",
		Help: "Bids rejected, by error kind.",
	}, []string{"reason"})

	auctionsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_engine_auctions_settled_total",
		Help: "Auctions settled, split by whether a winner existed.",
	}, []string{"outcome"})

	withdrawals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_engine_escrow_withdrawals_total",
		Help: "Escrow withdrawals that moved funds, by payment instrument.",
	}, []string{"instrument"})

	unitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_engine_operation_seconds",
		Help:    "Wall time of engine operations, including waiting for the serialization point.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"operation", "result"})
)

func AuctionCreated() {
	auctionsCreated.Inc()
}

func BidAccepted(instrument string) {
	bidsAccepted.WithLabelValues(instrument).Inc()
}

func BidRejected(reason string) {
	bidsRejected.WithLabelValues(reason).Inc()
}

func AuctionSettled(withWinner bool) {
	outcome := "unsold"
	if withWinner {
		outcome = "sold"
	}
	auctionsSettled.WithLabelValues(outcome).Inc()
}

func FundsWithdrawn(instrument string) {
	withdrawals.WithLabelValues(instrument).Inc()
}

// ObserveOperation records how long an engine operation took and whether it failed.
func ObserveOperation(operation string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	unitDuration.WithLabelValues(operation, result).Observe(seconds)
}
