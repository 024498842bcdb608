package domain

import (
	"context"
	"time"

	escrow "github.com/cristianortiz/multiCurrencyAuction/internal/escrow/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// AssetCustody moves non-fungible assets in and out of the engine's custody.
// Both calls run inside the caller's atomic unit and may re-enter the engine.
type AssetCustody interface {
	TransferToEngine(ctx context.Context, asset ids.AssetRef, from ids.Account) error
	TransferFromEngine(ctx context.Context, asset ids.AssetRef, to ids.Account) error
}

// PaymentInstrument moves raw amounts of one instrument between accounts and the engine.
// Pull requires prior authorization by from (except for the native instrument).
type PaymentInstrument interface {
	Pull(ctx context.Context, from ids.Account, amount decimal.Decimal) error
	Push(ctx context.Context, to ids.Account, amount decimal.Decimal) error
}

// PaymentInstruments resolves the capability for an instrument id.
type PaymentInstruments interface {
	Instrument(id ids.InstrumentID) (PaymentInstrument, error)
}

// Valuer converts raw instrument amounts to the common unit of account.
type Valuer interface {
	Normalize(ctx context.Context, instrument ids.InstrumentID, raw decimal.Decimal) (decimal.Decimal, error)
}

// Escrow books refunds for superseded bids.
type Escrow interface {
	Credit(ctx context.Context, key escrow.Key, amount decimal.Decimal) error
}

// Clock is the authoritative time source.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// BidRepository stores and reads the accepted-bid history.
type BidRepository interface {
	GetBidsByAuctionID(ctx context.Context, auctionID ids.AuctionID) ([]*Bid, error)
}
