package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	escrow "github.com/cristianortiz/multiCurrencyAuction/internal/escrow/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Registry owns the auction records. Records live in an arena indexed by id-1 and are
// never deleted; settlement freezes them.
//
// Mutating methods must run inside a txn unit: every change registers its undo, and
// collaborator calls (asset custody, fund pulls) happen inside the same unit.
type Registry struct {
	mu           sync.RWMutex
	auctions     []*Auction
	valuer       Valuer
	escrow       Escrow
	custody      AssetCustody
	payments     PaymentInstruments
	minIncrement decimal.Decimal
}

// NewRegistry wires the registry to its collaborators. minIncrement is in common units.
func NewRegistry(valuer Valuer, esc Escrow, custody AssetCustody, payments PaymentInstruments, minIncrement decimal.Decimal) *Registry {
	return &Registry{
		valuer:       valuer,
		escrow:       esc,
		custody:      custody,
		payments:     payments,
		minIncrement: minIncrement,
	}
}

// MinIncrement is the flat common-unit increment every new bid must add.
func (r *Registry) MinIncrement() decimal.Decimal {
	return r.minIncrement
}

// NextAuctionID is the id the next created auction will receive.
func (r *Registry) NextAuctionID() ids.AuctionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ids.AuctionID(len(r.auctions) + 1)
}

// Create pulls the asset into custody and opens an auction ending at now+duration.
func (r *Registry) Create(ctx context.Context, seller ids.Account, asset ids.AssetRef, reserve decimal.Decimal, duration time.Duration, now time.Time) (AuctionCreated, error) {
	switch {
	case duration <= 0:
		return AuctionCreated{}, ErrInvalidDuration
	case reserve.IsNegative():
		return AuctionCreated{}, ErrInvalidReserve
	case seller.IsZero():
		return AuctionCreated{}, ErrInvalidAccount
	case seller.IsEngine():
		return AuctionCreated{}, ErrCustodyAccount
	case asset.IsZero():
		return AuctionCreated{}, ErrInvalidAsset
	}

	if err := r.custody.TransferToEngine(ctx, asset, seller); err != nil {
		log.Warn("Create auction: asset custody transfer failed",
			zap.String("seller", seller.String()),
			zap.Stringer("asset", asset),
			zap.Error(err),
		)
		return AuctionCreated{}, fmt.Errorf("pull asset %s into custody: %w", asset, errkind.Transfer(err))
	}

	r.mu.Lock()
	id := ids.AuctionID(len(r.auctions) + 1)
	a := newAuction(id, seller, asset, reserve.Truncate(0), now, duration)
	r.auctions = append(r.auctions, a)
	r.mu.Unlock()

	txn.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if n := len(r.auctions); n > 0 && r.auctions[n-1] == a {
			r.auctions = r.auctions[:n-1]
		}
	})

	return AuctionCreated{
		AuctionID:    a.ID,
		Seller:       a.Seller,
		Asset:        a.Asset,
		ReserveValue: a.ReserveValue,
		EndTime:      a.EndTime,
		CreatedAt:    a.CreatedAt,
	}, nil
}

// PlaceBid pulls the bid funds, values them and, if they beat the standing bid by the
// minimum increment, makes them the new highest bid. The superseded bid is credited
// to escrow for its bidder, in its own instrument.
func (r *Registry) PlaceBid(ctx context.Context, id ids.AuctionID, bidder ids.Account, instrument ids.InstrumentID, raw decimal.Decimal, now time.Time) (BidAccepted, error) {
	if !raw.IsPositive() || !raw.Equal(raw.Truncate(0)) {
		return BidAccepted{}, ErrInvalidAmount
	}
	if bidder.IsZero() {
		return BidAccepted{}, ErrInvalidAccount
	}
	if bidder.IsEngine() {
		return BidAccepted{}, ErrCustodyAccount
	}

	a, err := r.record(id)
	if err != nil {
		return BidAccepted{}, err
	}
	if err := r.checkBiddable(a, now); err != nil {
		return BidAccepted{}, err
	}

	pi, err := r.payments.Instrument(instrument)
	if err != nil {
		return BidAccepted{}, fmt.Errorf("resolve instrument %s: %w", instrument, err)
	}
	if err := pi.Pull(ctx, bidder, raw); err != nil {
		log.Warn("Bid rejected: pulling funds failed",
			zap.Uint64("auctionID", uint64(id)),
			zap.String("bidder", bidder.String()),
			zap.String("instrument", instrument.String()),
			zap.Stringer("amount", raw),
			zap.Error(err),
		)
		return BidAccepted{}, fmt.Errorf("pull bid funds: %w", errkind.Transfer(err))
	}

	value, err := r.valuer.Normalize(ctx, instrument, raw)
	if err != nil {
		return BidAccepted{}, err
	}

	// The pull may have re-entered the engine; everything below reads the record fresh.
	if err := r.checkBiddable(a, now); err != nil {
		return BidAccepted{}, err
	}

	r.mu.RLock()
	prev := *a
	r.mu.RUnlock()

	required := prev.MinimumNextValue(r.minIncrement)
	if value.LessThan(required) {
		log.Warn("Bid rejected: value too low",
			zap.Uint64("auctionID", uint64(id)),
			zap.String("bidder", bidder.String()),
			zap.Stringer("value", value),
			zap.Stringer("required", required),
		)
		return BidAccepted{}, fmt.Errorf("%w: value %s, required %s", ErrBidTooLow, value, required)
	}

	ev := BidAccepted{
		AuctionID:  id,
		Bidder:     bidder,
		Value:      value,
		Instrument: instrument,
		Amount:     raw,
		PlacedAt:   now,
	}

	if prev.HasBidder() {
		key := escrow.Key{AuctionID: id, Account: prev.HighestBidder, Instrument: prev.HighestBidInstrument}
		if err := r.escrow.Credit(ctx, key, prev.HighestBidAmount); err != nil {
			return BidAccepted{}, fmt.Errorf("credit outbid funds: %w", err)
		}
		ev.Outbid = &EscrowCredit{
			Account:    prev.HighestBidder,
			Instrument: prev.HighestBidInstrument,
			Amount:     prev.HighestBidAmount,
		}
	}

	r.mu.Lock()
	a.HighestBidder = bidder
	a.HighestBidAmount = raw
	a.HighestBidInstrument = instrument
	a.HighestBidValue = value
	a.BidCount++
	r.mu.Unlock()
	txn.OnRollback(ctx, func() { r.restore(a, prev) })

	log.Info("Bid placed successfully",
		zap.Uint64("auctionID", uint64(id)),
		zap.String("bidder", bidder.String()),
		zap.String("instrument", instrument.String()),
		zap.Stringer("amount", raw),
		zap.Stringer("value", value),
	)
	return ev, nil
}

// MarkSettled flips the settled flag (once, and only after the end time) and returns the
// record as it stood. It performs no transfers: the caller moves asset and payment after
// this returns, so a reentrant settle attempt already sees the auction as settled.
func (r *Registry) MarkSettled(ctx context.Context, id ids.AuctionID, now time.Time) (Auction, error) {
	a, err := r.record(id)
	if err != nil {
		return Auction{}, err
	}

	r.mu.Lock()
	if err := a.checkEndable(now); err != nil {
		r.mu.Unlock()
		return Auction{}, err
	}
	prev := *a
	settledAt := now
	a.Settled = true
	a.SettledAt = &settledAt
	snapshot := *a
	r.mu.Unlock()

	txn.OnRollback(ctx, func() { r.restore(a, prev) })
	return snapshot, nil
}

// Get returns a copy of the record.
func (r *Registry) Get(id ids.AuctionID) (Auction, error) {
	a, err := r.record(id)
	if err != nil {
		return Auction{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *a, nil
}

// List returns copies of all records in id order.
func (r *Registry) List() []Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, *a)
	}
	return out
}

func (r *Registry) record(id ids.AuctionID) (*Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || uint64(id) > uint64(len(r.auctions)) {
		return nil, fmt.Errorf("%w: %d", ErrAuctionNotFound, id)
	}
	return r.auctions[id-1], nil
}

func (r *Registry) checkBiddable(a *Auction, now time.Time) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := a.checkBiddable(now); err != nil {
		log.Warn("Bid rejected: auction not accepting bids",
			zap.Uint64("auctionID", uint64(a.ID)),
			zap.String("state", string(a.State(now))),
		)
		return err
	}
	return nil
}

func (r *Registry) restore(a *Auction, prev Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*a = prev
}
