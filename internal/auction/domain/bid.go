package domain

import (
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is one accepted bid as recorded in the bid history.
type Bid struct {
	ID         uuid.UUID
	AuctionID  ids.AuctionID
	Bidder     ids.Account
	Instrument ids.InstrumentID
	Amount     decimal.Decimal
	Value      decimal.Decimal
	PlacedAt   time.Time
}

// NewBid creates a history entry from an accepted-bid observation.
func NewBid(id uuid.UUID, ev BidAccepted) *Bid {
	return &Bid{
		ID:         id,
		AuctionID:  ev.AuctionID,
		Bidder:     ev.Bidder,
		Instrument: ev.Instrument,
		Amount:     ev.Amount,
		Value:      ev.Value,
		PlacedAt:   ev.PlacedAt,
	}
}
