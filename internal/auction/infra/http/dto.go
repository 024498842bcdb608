package http

import (
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// CreateAuctionRequest is the body of POST /auctions. ReserveValue is in common
// units (USD * 10^8).
type CreateAuctionRequest struct {
	Seller          ids.Account     `json:"seller"`
	Asset           ids.AssetRef    `json:"asset"`
	ReserveValue    decimal.Decimal `json:"reserve_value"`
	DurationSeconds int64           `json:"duration_seconds"`
}

// PlaceBidRequest is the body of POST /auctions/:id/bids. Amount is in raw units.
type PlaceBidRequest struct {
	Bidder     ids.Account      `json:"bidder"`
	Instrument ids.InstrumentID `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
}

type EndAuctionRequest struct {
	Caller ids.Account `json:"caller"`
}

type WithdrawRequest struct {
	Account    ids.Account      `json:"account"`
	Instrument ids.InstrumentID `json:"instrument"`
}

type OutbidResponse struct {
	Account    ids.Account      `json:"account"`
	Instrument ids.InstrumentID `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
}

type BidResponse struct {
	AuctionID  ids.AuctionID    `json:"auction_id"`
	Bidder     ids.Account      `json:"bidder"`
	Instrument ids.InstrumentID `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
	Value      decimal.Decimal  `json:"value"`
	PlacedAt   time.Time        `json:"placed_at"`
	Outbid     *OutbidResponse  `json:"outbid,omitempty"`
}

type EndAuctionResponse struct {
	AuctionID  ids.AuctionID    `json:"auction_id"`
	Winner     ids.Account      `json:"winner,omitempty"`
	Seller     ids.Account      `json:"seller"`
	FinalValue decimal.Decimal  `json:"final_value"`
	Instrument ids.InstrumentID `json:"instrument,omitempty"`
	Amount     decimal.Decimal  `json:"amount"`
	EndedAt    time.Time        `json:"ended_at"`
}

type WithdrawResponse struct {
	AuctionID  ids.AuctionID    `json:"auction_id"`
	Account    ids.Account      `json:"account"`
	Instrument ids.InstrumentID `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
}

type BidHistoryEntry struct {
	ID         string           `json:"id"`
	Bidder     ids.Account      `json:"bidder"`
	Instrument ids.InstrumentID `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
	Value      decimal.Decimal  `json:"value"`
	PlacedAt   time.Time        `json:"placed_at"`
}

func newBidResponse(ev domain.BidAccepted) BidResponse {
	resp := BidResponse{
		AuctionID:  ev.AuctionID,
		Bidder:     ev.Bidder,
		Instrument: ev.Instrument,
		Amount:     ev.Amount,
		Value:      ev.Value,
		PlacedAt:   ev.PlacedAt,
	}
	if ev.Outbid != nil {
		resp.Outbid = &OutbidResponse{
			Account:    ev.Outbid.Account,
			Instrument: ev.Outbid.Instrument,
			Amount:     ev.Outbid.Amount,
		}
	}
	return resp
}

func newEndAuctionResponse(ev domain.AuctionEnded) EndAuctionResponse {
	return EndAuctionResponse{
		AuctionID:  ev.AuctionID,
		Winner:     ev.Winner,
		Seller:     ev.Seller,
		FinalValue: ev.FinalValue,
		Instrument: ev.Instrument,
		Amount:     ev.Amount,
		EndedAt:    ev.EndedAt,
	}
}
