// Package api exposes the in-process ledger over HTTP for development networks:
// deploy instruments with a price feed, mint balances and assets, grant approvals.
package api

import (
	"fmt"
	"sync"

	"github.com/cristianortiz/multiCurrencyAuction/internal/ledger/memory"
	pricing "github.com/cristianortiz/multiCurrencyAuction/internal/pricing/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/pricing/infra/oracle"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var ErrInvalidPrice = errkind.New(errkind.ErrInvalidArgument, "price must be positive")

// Network bundles the ledger with the quote feeds registered for each instrument.
type Network struct {
	Bank   *memory.Bank
	Assets *memory.Assets

	prices *pricing.Normalizer
	mu     sync.RWMutex
	feeds  map[ids.InstrumentID]*oracle.Feed
}

func NewNetwork(bank *memory.Bank, assets *memory.Assets, prices *pricing.Normalizer) *Network {
	return &Network{
		Bank:   bank,
		Assets: assets,
		prices: prices,
		feeds:  make(map[ids.InstrumentID]*oracle.Feed),
	}
}

// InstrumentSpec describes an instrument to deploy. PriceUSD is a plain USD price.
type InstrumentSpec struct {
	ID       ids.InstrumentID `json:"id"`
	Symbol   string           `json:"symbol"`
	Decimals int32            `json:"decimals"`
	PriceUSD decimal.Decimal  `json:"price_usd"`
	Native   bool             `json:"native"`
}

// InstrumentInfo is a deployed instrument with its current feed answer.
type InstrumentInfo struct {
	ID       ids.InstrumentID `json:"id"`
	Symbol   string           `json:"symbol"`
	Decimals int32            `json:"decimals"`
	Native   bool             `json:"native"`
	PriceUSD decimal.Decimal  `json:"price_usd"`
	Round    uint64           `json:"round"`
}

// Deploy creates the instrument and registers its quote feed with the normalizer.
func (n *Network) Deploy(spec InstrumentSpec) (InstrumentInfo, error) {
	if !spec.PriceUSD.IsPositive() {
		return InstrumentInfo{}, fmt.Errorf("%w: %s", ErrInvalidPrice, spec.PriceUSD)
	}
	if spec.Decimals < 0 || spec.Decimals > 36 {
		return InstrumentInfo{}, errkind.New(errkind.ErrInvalidArgument, fmt.Sprintf("decimals out of range: %d", spec.Decimals))
	}

	var (
		tok *memory.Token
		err error
	)
	if spec.Native {
		tok, err = n.Bank.DeployNative(spec.Symbol, spec.Decimals)
	} else {
		if spec.ID == "" || spec.ID == ids.Native {
			return InstrumentInfo{}, errkind.New(errkind.ErrInvalidArgument, "token id is required and must not be the native id")
		}
		tok, err = n.Bank.DeployToken(spec.ID, spec.Symbol, spec.Decimals)
	}
	if err != nil {
		return InstrumentInfo{}, err
	}

	feed := oracle.NewUSDFeed(spec.PriceUSD, spec.Decimals)
	n.mu.Lock()
	n.feeds[tok.ID()] = feed
	n.mu.Unlock()
	n.prices.Register(tok.ID(), feed)

	log.Info("Instrument deployed",
		zap.String("instrument", tok.ID().String()),
		zap.String("symbol", tok.Symbol()),
		zap.Int32("decimals", tok.Decimals()),
		zap.Stringer("priceUSD", spec.PriceUSD),
	)
	return n.info(tok), nil
}

// SetPrice publishes a new USD price on the instrument's feed.
func (n *Network) SetPrice(id ids.InstrumentID, priceUSD decimal.Decimal) (InstrumentInfo, error) {
	if !priceUSD.IsPositive() {
		return InstrumentInfo{}, fmt.Errorf("%w: %s", ErrInvalidPrice, priceUSD)
	}
	tok, err := n.Bank.Token(id)
	if err != nil {
		return InstrumentInfo{}, err
	}
	feed, err := n.feed(id)
	if err != nil {
		return InstrumentInfo{}, err
	}
	feed.SetAnswer(pricing.USD(priceUSD))
	return n.info(tok), nil
}

// Instruments lists deployed instruments in id order.
func (n *Network) Instruments() []InstrumentInfo {
	tokens := n.Bank.Tokens()
	out := make([]InstrumentInfo, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, n.info(tok))
	}
	return out
}

func (n *Network) feed(id ids.InstrumentID) (*oracle.Feed, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	feed, ok := n.feeds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pricing.ErrUnknownInstrument, id)
	}
	return feed, nil
}

func (n *Network) info(tok *memory.Token) InstrumentInfo {
	info := InstrumentInfo{
		ID:       tok.ID(),
		Symbol:   tok.Symbol(),
		Decimals: tok.Decimals(),
		Native:   tok.Native(),
	}
	if feed, err := n.feed(tok.ID()); err == nil {
		answer, round, _ := feed.LatestRound()
		info.PriceUSD = answer.Shift(-pricing.CommonUnitDecimals)
		info.Round = round
	}
	return info
}
