package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	escrow "github.com/cristianortiz/multiCurrencyAuction/internal/escrow/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// AuctionStateDTO is the output DTO exposing an auction to HTTP and websocket clients.
type AuctionStateDTO struct {
	AuctionID            ids.AuctionID    `json:"auction_id"`
	Seller               ids.Account      `json:"seller"`
	Asset                ids.AssetRef     `json:"asset"`
	ReserveValue         decimal.Decimal  `json:"reserve_value"`
	CreatedAt            time.Time        `json:"created_at"`
	EndTime              time.Time        `json:"end_time"`
	State                string           `json:"state"`
	HighestBidder        ids.Account      `json:"highest_bidder,omitempty"`
	HighestBidInstrument ids.InstrumentID `json:"highest_bid_instrument,omitempty"`
	HighestBidAmount     decimal.Decimal  `json:"highest_bid_amount"`
	HighestBidValue      decimal.Decimal  `json:"highest_bid_value"`
	MinimumNextValue     decimal.Decimal  `json:"minimum_next_value"`
	BidCount             int              `json:"bid_count"`
	SettledAt            *time.Time       `json:"settled_at,omitempty"`
}

// EscrowEntryDTO is one withdrawable balance.
type EscrowEntryDTO struct {
	AuctionID  ids.AuctionID    `json:"auction_id"`
	Account    ids.Account      `json:"account"`
	Instrument ids.InstrumentID `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
}

// ParamsDTO exposes the engine constants.
type ParamsDTO struct {
	MinIncrement       decimal.Decimal `json:"min_increment"`
	CommonUnitDecimals int32           `json:"common_unit_decimals"`
	NextAuctionID      ids.AuctionID   `json:"next_auction_id"`
}

func (e *Engine) toDTO(a domain.Auction, now time.Time) *AuctionStateDTO {
	return &AuctionStateDTO{
		AuctionID:            a.ID,
		Seller:               a.Seller,
		Asset:                a.Asset,
		ReserveValue:         a.ReserveValue,
		CreatedAt:            a.CreatedAt,
		EndTime:              a.EndTime,
		State:                string(a.State(now)),
		HighestBidder:        a.HighestBidder,
		HighestBidInstrument: a.HighestBidInstrument,
		HighestBidAmount:     a.HighestBidAmount,
		HighestBidValue:      a.HighestBidValue,
		MinimumNextValue:     a.MinimumNextValue(e.registry.MinIncrement()),
		BidCount:             a.BidCount,
		SettledAt:            a.SettledAt,
	}
}

// view runs fn against committed state, or inside the unit open in ctx.
func (e *Engine) view(ctx context.Context, fn func(ctx context.Context, now time.Time) error) error {
	return e.exec.View(ctx, func(ctx context.Context) error {
		return fn(ctx, e.clock.Now())
	})
}

// Auction returns the current state of one auction.
func (e *Engine) Auction(ctx context.Context, id ids.AuctionID) (*AuctionStateDTO, error) {
	var state *AuctionStateDTO
	err := e.view(ctx, func(_ context.Context, now time.Time) error {
		a, err := e.registry.Get(id)
		if err != nil {
			return fmt.Errorf("get auction %d: %w", id, err)
		}
		state = e.toDTO(a, now)
		return nil
	})
	return state, err
}

// Auctions lists every auction in creation order.
func (e *Engine) Auctions(ctx context.Context) []*AuctionStateDTO {
	var out []*AuctionStateDTO
	_ = e.view(ctx, func(_ context.Context, now time.Time) error {
		all := e.registry.List()
		out = make([]*AuctionStateDTO, 0, len(all))
		for _, a := range all {
			out = append(out, e.toDTO(a, now))
		}
		return nil
	})
	return out
}

// FundsToWithdraw returns what account can currently withdraw in instrument.
func (e *Engine) FundsToWithdraw(ctx context.Context, id ids.AuctionID, account ids.Account, instrument ids.InstrumentID) (decimal.Decimal, error) {
	owed := decimal.Zero
	err := e.view(ctx, func(context.Context, time.Time) error {
		if _, err := e.registry.Get(id); err != nil {
			return fmt.Errorf("funds to withdraw: %w", err)
		}
		owed = e.escrow.Balance(escrow.Key{AuctionID: id, Account: account, Instrument: instrument})
		return nil
	})
	return owed, err
}

// EscrowEntries lists the outstanding refunds of one auction.
func (e *Engine) EscrowEntries(ctx context.Context, id ids.AuctionID) ([]EscrowEntryDTO, error) {
	var out []EscrowEntryDTO
	err := e.view(ctx, func(context.Context, time.Time) error {
		if _, err := e.registry.Get(id); err != nil {
			return fmt.Errorf("escrow entries: %w", err)
		}
		entries := e.escrow.Entries(id)
		out = make([]EscrowEntryDTO, 0, len(entries))
		for _, en := range entries {
			out = append(out, EscrowEntryDTO{
				AuctionID:  en.AuctionID,
				Account:    en.Account,
				Instrument: en.Instrument,
				Amount:     en.Amount,
			})
		}
		return nil
	})
	return out, err
}

// EscrowTotal sums the outstanding refunds of one auction in one instrument.
func (e *Engine) EscrowTotal(ctx context.Context, id ids.AuctionID, instrument ids.InstrumentID) decimal.Decimal {
	total := decimal.Zero
	_ = e.view(ctx, func(context.Context, time.Time) error {
		total = e.escrow.Total(id, instrument)
		return nil
	})
	return total
}

// exists reports ErrAuctionNotFound for an id the registry never issued.
func (e *Engine) exists(ctx context.Context, id ids.AuctionID) error {
	return e.view(ctx, func(context.Context, time.Time) error {
		_, err := e.registry.Get(id)
		return err
	})
}

func (e *Engine) NextAuctionID(ctx context.Context) ids.AuctionID {
	var next ids.AuctionID
	_ = e.view(ctx, func(context.Context, time.Time) error {
		next = e.registry.NextAuctionID()
		return nil
	})
	return next
}

// MinIncrement is fixed at construction and needs no view.
func (e *Engine) MinIncrement() decimal.Decimal {
	return e.registry.MinIncrement()
}
