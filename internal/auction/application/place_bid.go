package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/metrics"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceBidDTO is the input of PlaceBid. Amount is in raw units of Instrument.
type PlaceBidDTO struct {
	AuctionID  ids.AuctionID
	Bidder     ids.Account
	Instrument ids.InstrumentID
	Amount     decimal.Decimal
}

// PlaceBid pulls the bid funds into custody and, when the normalized value clears the
// standing bid plus the minimum increment, makes it the highest bid. The previous
// highest bid becomes withdrawable by its bidder.
func (e *Engine) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (domain.BidAccepted, error) {
	log.Info("Executing PlaceBid",
		zap.Uint64("auctionID", uint64(cmd.AuctionID)),
		zap.String("bidder", cmd.Bidder.String()),
		zap.String("instrument", cmd.Instrument.String()),
		zap.Stringer("amount", cmd.Amount),
	)

	var accepted domain.BidAccepted
	err := e.run(ctx, "bid", func(ctx context.Context, now time.Time) error {
		ev, err := e.registry.PlaceBid(ctx, cmd.AuctionID, cmd.Bidder, cmd.Instrument, cmd.Amount, now)
		if err != nil {
			return err
		}
		accepted = ev
		e.publish(ctx, ev)
		txn.AfterCommit(ctx, func() { metrics.BidAccepted(cmd.Instrument.String()) })
		return nil
	})
	if err != nil {
		metrics.BidRejected(reason(err))
		return domain.BidAccepted{}, fmt.Errorf("place bid on auction %d: %w", cmd.AuctionID, err)
	}

	return accepted, nil
}
