package domain

import (
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// AuctionState is derived from the record and the current time; only Settled is stored.
type AuctionState string

const (
	StateActive AuctionState = "active"
	// StateExpired means the end time has passed but nobody has settled the auction yet.
	StateExpired AuctionState = "expired"
	StateSettled AuctionState = "settled"
)

// Auction is the canonical record of one auction. Values are in the common unit,
// amounts in raw units of HighestBidInstrument.
type Auction struct {
	ID                   ids.AuctionID
	Seller               ids.Account
	Asset                ids.AssetRef
	ReserveValue         decimal.Decimal
	CreatedAt            time.Time
	EndTime              time.Time
	HighestBidder        ids.Account
	HighestBidAmount     decimal.Decimal
	HighestBidInstrument ids.InstrumentID
	HighestBidValue      decimal.Decimal
	BidCount             int
	Settled              bool
	SettledAt            *time.Time
}

func newAuction(id ids.AuctionID, seller ids.Account, asset ids.AssetRef, reserve decimal.Decimal, now time.Time, duration time.Duration) *Auction {
	return &Auction{
		ID:               id,
		Seller:           seller,
		Asset:            asset,
		ReserveValue:     reserve,
		CreatedAt:        now,
		EndTime:          now.Add(duration),
		HighestBidAmount: decimal.Zero,
		HighestBidValue:  reserve, // before any bid the reserve is the bar to beat
	}
}

// HasBidder reports whether any bid was accepted.
func (a *Auction) HasBidder() bool {
	return !a.HighestBidder.IsZero()
}

// State derives the lifecycle state at now.
func (a *Auction) State(now time.Time) AuctionState {
	switch {
	case a.Settled:
		return StateSettled
	case !now.Before(a.EndTime):
		return StateExpired
	default:
		return StateActive
	}
}

// checkBiddable fails unless the auction accepts bids at now.
func (a *Auction) checkBiddable(now time.Time) error {
	if a.Settled {
		return ErrAuctionAlreadySettled
	}
	if !now.Before(a.EndTime) {
		return ErrAuctionExpired
	}
	return nil
}

// checkEndable fails unless the auction can be settled at now.
func (a *Auction) checkEndable(now time.Time) error {
	if a.Settled {
		return ErrAuctionAlreadySettled
	}
	if now.Before(a.EndTime) {
		return ErrAuctionStillActive
	}
	return nil
}

// MinimumNextValue is the lowest value a new bid must reach.
func (a *Auction) MinimumNextValue(increment decimal.Decimal) decimal.Decimal {
	return a.HighestBidValue.Add(increment)
}
