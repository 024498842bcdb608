// Package http exposes the auction service over REST.
package http

import (
	"fmt"
	"math"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/application"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/httpserver"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// maxDurationSeconds is the longest duration that still fits a time.Duration.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// AuctionHandler serves the /auctions resource.
type AuctionHandler struct {
	auctionService application.AuctionService
}

func NewAuctionHandler(auctionService application.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// RegisterRoutes mounts the auction endpoints on router (normally /api/v1).
func (h *AuctionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/params", h.params)

	auctions := router.Group("/auctions")
	auctions.Post("/", h.createAuction)
	auctions.Get("/", h.listAuctions)
	auctions.Get("/:id", h.getAuction)
	auctions.Post("/:id/bids", h.placeBid)
	auctions.Get("/:id/bids", h.bidHistory)
	auctions.Post("/:id/end", h.endAuction)
	auctions.Post("/:id/withdraw", h.withdraw)
	auctions.Get("/:id/escrow", h.escrowEntries)
	auctions.Get("/:id/escrow/:account/:instrument", h.fundsToWithdraw)
}

func auctionID(c *fiber.Ctx) (ids.AuctionID, error) {
	return ids.ParseAuctionID(c.Params("id"))
}

func (h *AuctionHandler) params(c *fiber.Ctx) error {
	return c.JSON(h.auctionService.Params(c.UserContext()))
}

func (h *AuctionHandler) createAuction(c *fiber.Ctx) error {
	var req CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}
	if req.DurationSeconds <= 0 || req.DurationSeconds > maxDurationSeconds {
		return httpserver.BadRequest(c, fmt.Sprintf("duration_seconds must be between 1 and %d", maxDurationSeconds))
	}

	created, err := h.auctionService.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		Seller:       req.Seller,
		Asset:        req.Asset,
		ReserveValue: req.ReserveValue,
		Duration:     time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		return httpserver.WriteError(c, err)
	}

	state, err := h.auctionService.GetAuction(c.UserContext(), created.AuctionID)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(state)
}

func (h *AuctionHandler) listAuctions(c *fiber.Ctx) error {
	return c.JSON(h.auctionService.ListAuctions(c.UserContext()))
}

func (h *AuctionHandler) getAuction(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	state, err := h.auctionService.GetAuction(c.UserContext(), id)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(state)
}

func (h *AuctionHandler) placeBid(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}

	ev, err := h.auctionService.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID:  id,
		Bidder:     req.Bidder,
		Instrument: req.Instrument,
		Amount:     req.Amount,
	})
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newBidResponse(ev))
}

func (h *AuctionHandler) bidHistory(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	bids, err := h.auctionService.BidHistory(c.UserContext(), id)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	out := make([]BidHistoryEntry, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidHistoryEntry{
			ID:         b.ID.String(),
			Bidder:     b.Bidder,
			Instrument: b.Instrument,
			Amount:     b.Amount,
			Value:      b.Value,
			PlacedAt:   b.PlacedAt,
		})
	}
	return c.JSON(out)
}

func (h *AuctionHandler) endAuction(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	var req EndAuctionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httpserver.BadRequest(c, "invalid json")
		}
	}

	ev, err := h.auctionService.EndAuction(c.UserContext(), id, req.Caller)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	log.Debug("Auction ended over HTTP", zap.Uint64("auctionID", uint64(id)), zap.String("caller", req.Caller.String()))
	return c.JSON(newEndAuctionResponse(ev))
}

func (h *AuctionHandler) withdraw(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}

	paid, err := h.auctionService.Withdraw(c.UserContext(), id, req.Instrument, req.Account)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(WithdrawResponse{
		AuctionID:  id,
		Account:    req.Account,
		Instrument: req.Instrument,
		Amount:     paid,
	})
}

func (h *AuctionHandler) escrowEntries(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	entries, err := h.auctionService.EscrowEntries(c.UserContext(), id)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(entries)
}

func (h *AuctionHandler) fundsToWithdraw(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	account := ids.Account(c.Params("account"))
	instrument := ids.InstrumentID(c.Params("instrument"))

	owed, err := h.auctionService.FundsToWithdraw(c.UserContext(), id, account, instrument)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(WithdrawResponse{
		AuctionID:  id,
		Account:    account,
		Instrument: instrument,
		Amount:     owed,
	})
}
