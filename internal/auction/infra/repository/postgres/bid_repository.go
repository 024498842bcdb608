package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BidRepository implements domain.BidRepository interface
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Save inserts one accepted bid; the auction row is updated by the caller in the same tx.
func (r *BidRepository) Save(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder, instrument, amount, value, placed_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
        ON CONFLICT (id) DO NOTHING
    `
	_, err := tx.Exec(ctx, query,
		bid.ID,
		int64(bid.AuctionID),
		bid.Bidder.String(),
		bid.Instrument.String(),
		bid.Amount.String(),
		bid.Value.String(),
		bid.PlacedAt,
	)
	return err
}

// GetBidsByAuctionID returns the bid history of one auction, oldest first.
func (r *BidRepository) GetBidsByAuctionID(ctx context.Context, auctionID ids.AuctionID) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder, instrument, amount::text, value::text, placed_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY placed_at ASC, created_at ASC
    `
	rows, err := r.pool.Query(ctx, query, int64(auctionID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]*domain.Bid, 0)
	for rows.Next() {
		var (
			bid        domain.Bid
			id         int64
			bidder     string
			instrument string
			amount     string
			value      string
		)
		err := rows.Scan(
			&bid.ID,
			&id,
			&bidder,
			&instrument,
			&amount,
			&value,
			&bid.PlacedAt,
		)
		if err != nil {
			return nil, err
		}
		bid.AuctionID = ids.AuctionID(id)
		bid.Bidder = ids.Account(bidder)
		bid.Instrument = ids.InstrumentID(instrument)
		if bid.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bid %s amount: %w", bid.ID, err)
		}
		if bid.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("bid %s value: %w", bid.ID, err)
		}
		bids = append(bids, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bids, nil
}
