package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	pricing "github.com/cristianortiz/multiCurrencyAuction/internal/pricing/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// ErrHistoryUnavailable is returned by BidHistory when no bid store is configured.
var ErrHistoryUnavailable = errkind.New(errkind.ErrUnavailable, "bid history requires persistence to be enabled")

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (domain.AuctionCreated, error)
	// PlaceBid handles logic when an account bids on an auction in any registered instrument
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (domain.BidAccepted, error)
	EndAuction(ctx context.Context, id ids.AuctionID, caller ids.Account) (domain.AuctionEnded, error)
	Withdraw(ctx context.Context, id ids.AuctionID, instrument ids.InstrumentID, account ids.Account) (decimal.Decimal, error)

	GetAuction(ctx context.Context, id ids.AuctionID) (*AuctionStateDTO, error)
	ListAuctions(ctx context.Context) []*AuctionStateDTO
	FundsToWithdraw(ctx context.Context, id ids.AuctionID, account ids.Account, instrument ids.InstrumentID) (decimal.Decimal, error)
	EscrowEntries(ctx context.Context, id ids.AuctionID) ([]EscrowEntryDTO, error)
	BidHistory(ctx context.Context, id ids.AuctionID) ([]*domain.Bid, error)
	Params(ctx context.Context) ParamsDTO
}

// concrete implementation of AuctionService
type auctionService struct {
	engine  *Engine
	bidRepo domain.BidRepository
}

// NewAuctionService wraps the engine. bidRepo may be nil when persistence is off.
func NewAuctionService(engine *Engine, bidRepo domain.BidRepository) AuctionService {
	return &auctionService{
		engine:  engine,
		bidRepo: bidRepo,
	}
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (domain.AuctionCreated, error) {
	return as.engine.CreateAuction(ctx, cmd)
}

func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (domain.BidAccepted, error) {
	return as.engine.PlaceBid(ctx, cmd)
}

func (as *auctionService) EndAuction(ctx context.Context, id ids.AuctionID, caller ids.Account) (domain.AuctionEnded, error) {
	return as.engine.EndAuction(ctx, id, caller)
}

func (as *auctionService) Withdraw(ctx context.Context, id ids.AuctionID, instrument ids.InstrumentID, account ids.Account) (decimal.Decimal, error) {
	return as.engine.Withdraw(ctx, id, instrument, account)
}

func (as *auctionService) GetAuction(ctx context.Context, id ids.AuctionID) (*AuctionStateDTO, error) {
	return as.engine.Auction(ctx, id)
}

func (as *auctionService) ListAuctions(ctx context.Context) []*AuctionStateDTO {
	return as.engine.Auctions(ctx)
}

func (as *auctionService) FundsToWithdraw(ctx context.Context, id ids.AuctionID, account ids.Account, instrument ids.InstrumentID) (decimal.Decimal, error) {
	return as.engine.FundsToWithdraw(ctx, id, account, instrument)
}

func (as *auctionService) EscrowEntries(ctx context.Context, id ids.AuctionID) ([]EscrowEntryDTO, error) {
	return as.engine.EscrowEntries(ctx, id)
}

// BidHistory reads accepted bids from the projection, oldest first.
func (as *auctionService) BidHistory(ctx context.Context, id ids.AuctionID) ([]*domain.Bid, error) {
	if err := as.engine.exists(ctx, id); err != nil {
		return nil, fmt.Errorf("bid history: %w", err)
	}
	if as.bidRepo == nil {
		return nil, ErrHistoryUnavailable
	}
	bids, err := as.bidRepo.GetBidsByAuctionID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bid history for auction %d: %w", id, err)
	}
	return bids, nil
}

func (as *auctionService) Params(ctx context.Context) ParamsDTO {
	return ParamsDTO{
		MinIncrement:       as.engine.MinIncrement(),
		CommonUnitDecimals: pricing.CommonUnitDecimals,
		NextAuctionID:      as.engine.NextAuctionID(ctx),
	}
}
