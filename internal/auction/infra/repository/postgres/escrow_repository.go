package postgres

import (
	"context"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EscrowRepository mirrors the escrow ledger's withdrawable balances.
type EscrowRepository struct{}

func NewEscrowRepository() *EscrowRepository {
	return &EscrowRepository{}
}

// Credit adds amount to the entry, creating it when absent.
func (r *EscrowRepository) Credit(ctx context.Context, tx pgx.Tx, auctionID ids.AuctionID, account ids.Account, instrument ids.InstrumentID, amount decimal.Decimal) error {
	query := `
        INSERT INTO escrow_entries (auction_id, account, instrument, amount)
        VALUES ($1, $2, $3, $4::numeric)
        ON CONFLICT (auction_id, account, instrument) DO UPDATE
        SET
            amount = escrow_entries.amount + EXCLUDED.amount,
            updated_at = NOW()
    `
	_, err := tx.Exec(ctx, query, int64(auctionID), account.String(), instrument.String(), amount.String())
	return err
}

// Clear zeroes the entry after a withdrawal.
func (r *EscrowRepository) Clear(ctx context.Context, tx pgx.Tx, auctionID ids.AuctionID, account ids.Account, instrument ids.InstrumentID) error {
	query := `
        UPDATE escrow_entries
        SET amount = 0, updated_at = NOW()
        WHERE auction_id = $1 AND account = $2 AND instrument = $3
    `
	_, err := tx.Exec(ctx, query, int64(auctionID), account.String(), instrument.String())
	return err
}
