package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	escrow "github.com/cristianortiz/multiCurrencyAuction/internal/escrow/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/metrics"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Withdraw pays out account's refundable balance in instrument for one auction.
// Nothing owed is not an error: it returns zero and moves nothing. The escrow entry is
// zeroed before the push, so a push that re-enters Withdraw finds nothing left.
func (e *Engine) Withdraw(ctx context.Context, id ids.AuctionID, instrument ids.InstrumentID, account ids.Account) (decimal.Decimal, error) {
	paid := decimal.Zero
	err := e.run(ctx, "withdraw", func(ctx context.Context, now time.Time) error {
		if _, err := e.registry.Get(id); err != nil {
			return err
		}
		key := escrow.Key{AuctionID: id, Account: account, Instrument: instrument}
		amount := e.escrow.Withdraw(ctx, key)
		if amount.IsZero() {
			return nil
		}

		pi, err := e.payments.Instrument(instrument)
		if err != nil {
			return fmt.Errorf("resolve instrument %s: %w", instrument, errkind.Transfer(err))
		}
		if err := pi.Push(ctx, account, amount); err != nil {
			return fmt.Errorf("refund %s %s: %w", amount, instrument, errkind.Transfer(err))
		}

		paid = amount
		txn.AfterCommit(ctx, func() { metrics.FundsWithdrawn(instrument.String()) })
		e.publish(ctx, domain.FundsWithdrawn{
			AuctionID:   id,
			Account:     account,
			Instrument:  instrument,
			Amount:      amount,
			WithdrawnAt: now,
		})
		return nil
	})
	if err != nil {
		log.Warn("Withdraw failed",
			zap.Uint64("auctionID", uint64(id)),
			zap.String("account", account.String()),
			zap.String("instrument", instrument.String()),
			zap.Error(err),
		)
		return decimal.Zero, fmt.Errorf("withdraw from auction %d: %w", id, err)
	}

	if paid.IsPositive() {
		log.Info("Escrow withdrawn",
			zap.Uint64("auctionID", uint64(id)),
			zap.String("account", account.String()),
			zap.String("instrument", instrument.String()),
			zap.Stringer("amount", paid),
		)
	}
	return paid, nil
}
