package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/metrics"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"go.uber.org/zap"
)

// EndAuction settles an expired auction. Anyone may call it: the outcome depends only
// on the clock and the bids already accepted. The settled flag is set before any
// transfer, so a collaborator re-entering EndAuction gets ErrAuctionAlreadySettled.
func (e *Engine) EndAuction(ctx context.Context, id ids.AuctionID, caller ids.Account) (domain.AuctionEnded, error) {
	log.Info("Executing EndAuction",
		zap.Uint64("auctionID", uint64(id)),
		zap.String("caller", caller.String()),
	)

	var ended domain.AuctionEnded
	err := e.run(ctx, "end", func(ctx context.Context, now time.Time) error {
		a, err := e.registry.MarkSettled(ctx, id, now)
		if err != nil {
			return err
		}

		ev := domain.AuctionEnded{
			AuctionID:  a.ID,
			Winner:     a.HighestBidder,
			FinalValue: a.HighestBidValue,
			Seller:     a.Seller,
			EndedAt:    now,
		}

		if !a.HasBidder() {
			if err := e.custody.TransferFromEngine(ctx, a.Asset, a.Seller); err != nil {
				return fmt.Errorf("return asset %s to seller: %w", a.Asset, errkind.Transfer(err))
			}
			e.settled(ctx, ev)
			ended = ev
			return nil
		}

		if err := e.custody.TransferFromEngine(ctx, a.Asset, a.HighestBidder); err != nil {
			return fmt.Errorf("deliver asset %s to winner: %w", a.Asset, errkind.Transfer(err))
		}
		pi, err := e.payments.Instrument(a.HighestBidInstrument)
		if err != nil {
			return fmt.Errorf("resolve payout instrument %s: %w", a.HighestBidInstrument, errkind.Transfer(err))
		}
		if err := pi.Push(ctx, a.Seller, a.HighestBidAmount); err != nil {
			return fmt.Errorf("pay seller: %w", errkind.Transfer(err))
		}

		ev.Instrument = a.HighestBidInstrument
		ev.Amount = a.HighestBidAmount
		e.settled(ctx, ev)
		ended = ev
		return nil
	})
	if err != nil {
		log.Warn("EndAuction failed",
			zap.Uint64("auctionID", uint64(id)),
			zap.String("caller", caller.String()),
			zap.Error(err),
		)
		return domain.AuctionEnded{}, fmt.Errorf("end auction %d: %w", id, err)
	}

	log.Info("Auction settled",
		zap.Uint64("auctionID", uint64(id)),
		zap.String("winner", ended.Winner.String()),
		zap.Stringer("finalValue", ended.FinalValue),
	)
	return ended, nil
}

func (e *Engine) settled(ctx context.Context, ev domain.AuctionEnded) {
	e.publish(ctx, ev)
	txn.AfterCommit(ctx, func() { metrics.AuctionSettled(!ev.Winner.IsZero()) })
}
