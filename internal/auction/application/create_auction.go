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

// CreateAuctionDTO is the input of CreateAuction. ReserveValue is in common units.
type CreateAuctionDTO struct {
	Seller       ids.Account
	Asset        ids.AssetRef
	ReserveValue decimal.Decimal
	Duration     time.Duration
}

// CreateAuction takes the asset into custody and opens a new auction.
func (e *Engine) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (domain.AuctionCreated, error) {
	log.Info("Executing CreateAuction",
		zap.String("seller", cmd.Seller.String()),
		zap.Stringer("asset", cmd.Asset),
		zap.Stringer("reserveValue", cmd.ReserveValue),
		zap.Duration("duration", cmd.Duration),
	)

	var created domain.AuctionCreated
	err := e.run(ctx, "create", func(ctx context.Context, now time.Time) error {
		ev, err := e.registry.Create(ctx, cmd.Seller, cmd.Asset, cmd.ReserveValue, cmd.Duration, now)
		if err != nil {
			return err
		}
		created = ev
		e.publish(ctx, ev)
		txn.AfterCommit(ctx, metrics.AuctionCreated)
		return nil
	})
	if err != nil {
		return domain.AuctionCreated{}, fmt.Errorf("create auction: %w", err)
	}

	log.Info("Auction created",
		zap.Uint64("auctionID", uint64(created.AuctionID)),
		zap.Time("endTime", created.EndTime),
	)
	return created, nil
}
