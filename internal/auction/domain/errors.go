package domain

import "github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"

var (
	ErrAuctionNotFound       = errkind.New(errkind.ErrNotFound, "auction not found")
	ErrInvalidDuration       = errkind.New(errkind.ErrInvalidArgument, "auction duration must be greater than zero")
	ErrInvalidReserve        = errkind.New(errkind.ErrInvalidArgument, "reserve value cannot be negative")
	ErrInvalidAmount         = errkind.New(errkind.ErrInvalidArgument, "bid amount must be a positive integer of raw units")
	ErrInvalidAccount        = errkind.New(errkind.ErrInvalidArgument, "account identity is required")
	ErrCustodyAccount        = errkind.New(errkind.ErrInvalidArgument, "the custody account cannot sell or bid")
	ErrInvalidAsset          = errkind.New(errkind.ErrInvalidArgument, "asset reference is required")
	ErrAuctionAlreadySettled = errkind.New(errkind.ErrStateConflict, "auction is already settled")
	ErrAuctionExpired        = errkind.New(errkind.ErrStateConflict, "auction has expired")
	ErrAuctionStillActive    = errkind.New(errkind.ErrStateConflict, "auction is still active")
	ErrBidTooLow             = errkind.New(errkind.ErrValueTooLow, "bid value is below the highest bid plus the minimum increment")
)
