package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/jackc/pgx/v5"
)

// AuctionRepository keeps the auctions table in step with committed observations.
// All writes run inside the caller's transaction.
type AuctionRepository struct{}

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository() *AuctionRepository {
	return &AuctionRepository{}
}

// SaveCreated inserts the row for a new auction. Replaying the same observation is a no-op.
func (r *AuctionRepository) SaveCreated(ctx context.Context, tx pgx.Tx, ev domain.AuctionCreated) error {
	query := `
        INSERT INTO auctions (id, seller, asset_collection, asset_token_id, reserve_value, highest_bid_value, end_time, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $5::numeric, $6, $7)
        ON CONFLICT (id) DO NOTHING
    `
	_, err := tx.Exec(ctx, query,
		int64(ev.AuctionID),
		ev.Seller.String(),
		ev.Asset.Collection,
		ev.Asset.TokenID,
		ev.ReserveValue.String(),
		ev.EndTime,
		ev.CreatedAt,
	)
	return err
}

// ApplyBid records the new highest bid.
func (r *AuctionRepository) ApplyBid(ctx context.Context, tx pgx.Tx, ev domain.BidAccepted) error {
	query := `
        UPDATE auctions
        SET
            highest_bidder = $2,
            highest_bid_instrument = $3,
            highest_bid_amount = $4::numeric,
            highest_bid_value = $5::numeric,
            bid_count = bid_count + 1,
            updated_at = NOW()
        WHERE id = $1
    `
	tag, err := tx.Exec(ctx, query,
		int64(ev.AuctionID),
		ev.Bidder.String(),
		ev.Instrument.String(),
		ev.Amount.String(),
		ev.Value.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrAuctionNotFound, ev.AuctionID)
	}
	return nil
}

// MarkEnded freezes the row with the settlement outcome.
func (r *AuctionRepository) MarkEnded(ctx context.Context, tx pgx.Tx, ev domain.AuctionEnded) error {
	query := `
        UPDATE auctions
        SET
            settled = TRUE,
            winner = NULLIF($2, ''),
            final_value = $3::numeric,
            settled_at = $4,
            updated_at = NOW()
        WHERE id = $1
    `
	tag, err := tx.Exec(ctx, query,
		int64(ev.AuctionID),
		ev.Winner.String(),
		ev.FinalValue.String(),
		ev.EndedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrAuctionNotFound, ev.AuctionID)
	}
	return nil
}
