package domain

import (
	"context"
	"fmt"
	"sync"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// CommonUnitDecimals is the fixed-point precision of the common unit of account:
// one USD is 10^8 common units, matching the 8-decimal oracle answers.
const CommonUnitDecimals = 8

var (
	ErrUnknownInstrument = errkind.New(errkind.ErrNotFound, "unknown payment instrument")
	ErrInvalidQuote      = errkind.New(errkind.ErrInvalidArgument, "invalid price quote")
)

// Quote is the price of one whole unit of an instrument, in common units,
// together with the instrument's decimal precision.
type Quote struct {
	Price    decimal.Decimal
	Decimals int32
}

// Oracle is the price source for one or more instruments. Freshness is the
// oracle's concern; the normalizer trusts whatever it answers.
type Oracle interface {
	Quote(ctx context.Context, instrument ids.InstrumentID) (Quote, error)
}

// USD converts a plain USD amount (e.g. "1010.5") into common units, truncating.
func USD(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(CommonUnitDecimals).Truncate(0)
}

// Normalizer converts raw instrument amounts into the common unit of account.
// It keeps one oracle reference per registered instrument.
type Normalizer struct {
	mu      sync.RWMutex
	oracles map[ids.InstrumentID]Oracle
}

func NewNormalizer() *Normalizer {
	return &Normalizer{oracles: make(map[ids.InstrumentID]Oracle)}
}

// Register points instrument at oracle, replacing any previous reference.
func (n *Normalizer) Register(instrument ids.InstrumentID, oracle Oracle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.oracles[instrument] = oracle
}

// Registered reports whether instrument has an oracle reference.
func (n *Normalizer) Registered(instrument ids.InstrumentID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.oracles[instrument]
	return ok
}

// Normalize returns raw * price / 10^decimals in common units.
//
// decimal.Decimal is arbitrary precision, so the product never overflows, and the
// division is an exact decimal shift. The result is truncated toward zero: a bid may be
// valued a few common-unit fractions under its economic value, never over it.
func (n *Normalizer) Normalize(ctx context.Context, instrument ids.InstrumentID, raw decimal.Decimal) (decimal.Decimal, error) {
	n.mu.RLock()
	oracle, ok := n.oracles[instrument]
	n.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrument)
	}

	q, err := oracle.Quote(ctx, instrument)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote %s: %w", instrument, err)
	}
	if q.Price.IsNegative() || q.Decimals < 0 {
		return decimal.Zero, fmt.Errorf("%w: %s price=%s decimals=%d", ErrInvalidQuote, instrument, q.Price, q.Decimals)
	}

	return raw.Mul(q.Price).Shift(-q.Decimals).Truncate(0), nil
}
