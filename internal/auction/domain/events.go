package domain

import (
	"context"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// Event is an observation emitted once the operation producing it has committed.
type Event interface {
	EventName() string
	Auction() ids.AuctionID
}

type AuctionCreated struct {
	AuctionID    ids.AuctionID
	Seller       ids.Account
	Asset        ids.AssetRef
	ReserveValue decimal.Decimal
	EndTime      time.Time
	CreatedAt    time.Time
}

// EscrowCredit describes the refund booked for a superseded bid.
type EscrowCredit struct {
	Account    ids.Account
	Instrument ids.InstrumentID
	Amount     decimal.Decimal
}

type BidAccepted struct {
	AuctionID  ids.AuctionID
	Bidder     ids.Account
	Value      decimal.Decimal
	Instrument ids.InstrumentID
	Amount     decimal.Decimal
	PlacedAt   time.Time
	Outbid     *EscrowCredit
}

// AuctionEnded carries Winner == ids.NoAccount when nobody bid; FinalValue is then the reserve.
type AuctionEnded struct {
	AuctionID  ids.AuctionID
	Winner     ids.Account
	FinalValue decimal.Decimal
	Seller     ids.Account
	Instrument ids.InstrumentID
	Amount     decimal.Decimal
	EndedAt    time.Time
}

type FundsWithdrawn struct {
	AuctionID   ids.AuctionID
	Account     ids.Account
	Instrument  ids.InstrumentID
	Amount      decimal.Decimal
	WithdrawnAt time.Time
}

func (e AuctionCreated) EventName() string      { return "auction_created" }
func (e AuctionCreated) Auction() ids.AuctionID { return e.AuctionID }
func (e BidAccepted) EventName() string         { return "bid_accepted" }
func (e BidAccepted) Auction() ids.AuctionID    { return e.AuctionID }
func (e AuctionEnded) EventName() string        { return "auction_ended" }
func (e AuctionEnded) Auction() ids.AuctionID   { return e.AuctionID }
func (e FundsWithdrawn) EventName() string      { return "funds_withdrawn" }
func (e FundsWithdrawn) Auction() ids.AuctionID { return e.AuctionID }

// Publisher consumes committed observations (indexers, live feeds, metrics).
// Publish must not call back into the engine.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Publishers fans an observation out to every member, in order.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, ev Event) {
	for _, p := range ps {
		p.Publish(ctx, ev)
	}
}
