// Package oracle provides in-process price feeds for the normalizer.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/pricing/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Feed is a single price aggregator: the latest USD answer for one instrument,
// reported with answerDecimals of precision (8 for the usual USD feeds).
type Feed struct {
	mu                 sync.RWMutex
	answer             decimal.Decimal
	answerDecimals     int32
	instrumentDecimals int32
	updatedAt          time.Time
	round              uint64
}

// NewFeed creates a feed with an initial answer. instrumentDecimals is the
// precision of the instrument's raw amounts (6 for USDC-like tokens, 18 for native).
func NewFeed(answer decimal.Decimal, answerDecimals, instrumentDecimals int32) *Feed {
	return &Feed{
		answer:             answer,
		answerDecimals:     answerDecimals,
		instrumentDecimals: instrumentDecimals,
		updatedAt:          time.Now().UTC(),
		round:              1,
	}
}

// NewUSDFeed is a feed with 8-decimal answers built from a plain USD price ("3000", "0.99").
func NewUSDFeed(priceUSD decimal.Decimal, instrumentDecimals int32) *Feed {
	return NewFeed(priceUSD.Shift(domain.CommonUnitDecimals).Truncate(0), domain.CommonUnitDecimals, instrumentDecimals)
}

// SetAnswer publishes a new round.
func (f *Feed) SetAnswer(answer decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answer = answer
	f.updatedAt = time.Now().UTC()
	f.round++
	log.Debug("price feed updated",
		zap.Stringer("answer", answer),
		zap.Uint64("round", f.round),
	)
}

// LatestRound returns the current answer, its round number and when it was set.
func (f *Feed) LatestRound() (decimal.Decimal, uint64, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.answer, f.round, f.updatedAt
}

// Quote implements domain.Oracle. The answer is rescaled to the common unit's precision.
func (f *Feed) Quote(_ context.Context, instrument ids.InstrumentID) (domain.Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.answer.IsNegative() {
		return domain.Quote{}, fmt.Errorf("%w: feed for %s answered %s", domain.ErrInvalidQuote, instrument, f.answer)
	}
	return domain.Quote{
		Price:    f.answer.Shift(domain.CommonUnitDecimals - f.answerDecimals).Truncate(0),
		Decimals: f.instrumentDecimals,
	}, nil
}
