package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const projectionQueueSize = 1024

// Projection writes committed observations into the read model. It is a
// domain.Publisher: Publish only enqueues, a single worker applies events in order,
// one transaction per event.
type Projection struct {
	pool     *pgxpool.Pool
	auctions *AuctionRepository
	bids     *BidRepository
	escrow   *EscrowRepository
	queue    chan domain.Event
}

func NewProjection(pool *pgxpool.Pool, bids *BidRepository) *Projection {
	return &Projection{
		pool:     pool,
		auctions: NewAuctionRepository(),
		bids:     bids,
		escrow:   NewEscrowRepository(),
		queue:    make(chan domain.Event, projectionQueueSize),
	}
}

// Publish implements domain.Publisher. When the queue is full the event is dropped
// and logged; the in-memory engine stays authoritative.
func (p *Projection) Publish(_ context.Context, ev domain.Event) {
	select {
	case p.queue <- ev:
	default:
		log.Error("Projection queue full, dropping event",
			zap.String("event", ev.EventName()),
			zap.Uint64("auctionID", uint64(ev.Auction())),
		)
	}
}

// Run applies queued events until ctx is cancelled.
func (p *Projection) Run(ctx context.Context) {
	log.Info("Projection worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Projection worker stopped", zap.Int("pending", len(p.queue)))
			return
		case ev := <-p.queue:
			if err := p.apply(ctx, ev); err != nil {
				log.Error("Projection failed to apply event",
					zap.String("event", ev.EventName()),
					zap.Uint64("auctionID", uint64(ev.Auction())),
					zap.Error(err),
				)
			}
		}
	}
}

func (p *Projection) apply(ctx context.Context, ev domain.Event) (err error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("projection: failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("projection: failed to commit transaction: %w", commitErr)
		}
	}()

	switch e := ev.(type) {
	case domain.AuctionCreated:
		err = p.auctions.SaveCreated(ctx, tx, e)
	case domain.BidAccepted:
		err = p.applyBid(ctx, tx, e)
	case domain.AuctionEnded:
		err = p.auctions.MarkEnded(ctx, tx, e)
	case domain.FundsWithdrawn:
		err = p.escrow.Clear(ctx, tx, e.AuctionID, e.Account, e.Instrument)
	default:
		log.Debug("Projection ignoring event", zap.String("event", ev.EventName()))
	}
	return err
}

func (p *Projection) applyBid(ctx context.Context, tx pgx.Tx, ev domain.BidAccepted) error {
	if err := p.bids.Save(ctx, tx, domain.NewBid(uuid.New(), ev)); err != nil {
		return fmt.Errorf("save bid: %w", err)
	}
	if err := p.auctions.ApplyBid(ctx, tx, ev); err != nil {
		return fmt.Errorf("update auction: %w", err)
	}
	if ev.Outbid != nil {
		if err := p.escrow.Credit(ctx, tx, ev.AuctionID, ev.Outbid.Account, ev.Outbid.Instrument, ev.Outbid.Amount); err != nil {
			return fmt.Errorf("credit escrow: %w", err)
		}
	}
	return nil
}
