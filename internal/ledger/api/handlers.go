package api

import (
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/httpserver"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Account ids.Account     `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type priceRequest struct {
	PriceUSD decimal.Decimal `json:"price_usd"`
}

type assetRequest struct {
	Asset ids.AssetRef `json:"asset"`
	Owner ids.Account  `json:"owner"`
}

type balanceResponse struct {
	Instrument ids.InstrumentID `json:"instrument"`
	Account    ids.Account      `json:"account"`
	Balance    decimal.Decimal  `json:"balance"`
	Allowance  decimal.Decimal  `json:"allowance"`
}

type assetResponse struct {
	Asset ids.AssetRef `json:"asset"`
	Owner ids.Account  `json:"owner"`
}

// Handler serves the dev-network endpoints.
type Handler struct {
	network *Network
}

func NewHandler(network *Network) *Handler {
	return &Handler{network: network}
}

// RegisterRoutes mounts the endpoints under /dev on router.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	dev := router.Group("/dev")
	dev.Get("/instruments", h.listInstruments)
	dev.Post("/instruments", h.deployInstrument)
	dev.Put("/instruments/:instrument/price", h.setPrice)
	dev.Post("/instruments/:instrument/mint", h.mint)
	dev.Post("/instruments/:instrument/approve", h.approve)
	dev.Get("/instruments/:instrument/balances/:account", h.balance)
	dev.Post("/assets", h.mintAsset)
	dev.Post("/assets/approve", h.approveAsset)
	dev.Get("/assets/:collection/:token", h.assetOwner)
}

func (h *Handler) listInstruments(c *fiber.Ctx) error {
	return c.JSON(h.network.Instruments())
}

func (h *Handler) deployInstrument(c *fiber.Ctx) error {
	var spec InstrumentSpec
	if err := c.BodyParser(&spec); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}
	info, err := h.network.Deploy(spec)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

func (h *Handler) setPrice(c *fiber.Ctx) error {
	var req priceRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}
	info, err := h.network.SetPrice(ids.InstrumentID(c.Params("instrument")), req.PriceUSD)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(info)
}

func (h *Handler) mint(c *fiber.Ctx) error {
	return h.withAmount(c, func(id ids.InstrumentID, req amountRequest) error {
		tok, err := h.network.Bank.Token(id)
		if err != nil {
			return err
		}
		return tok.Mint(req.Account, req.Amount)
	})
}

func (h *Handler) approve(c *fiber.Ctx) error {
	return h.withAmount(c, func(id ids.InstrumentID, req amountRequest) error {
		tok, err := h.network.Bank.Token(id)
		if err != nil {
			return err
		}
		return tok.Approve(req.Account, req.Amount)
	})
}

func (h *Handler) withAmount(c *fiber.Ctx, apply func(ids.InstrumentID, amountRequest) error) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}
	id := ids.InstrumentID(c.Params("instrument"))
	if err := apply(id, req); err != nil {
		return httpserver.WriteError(c, err)
	}
	return h.writeBalance(c, id, req.Account)
}

func (h *Handler) balance(c *fiber.Ctx) error {
	return h.writeBalance(c, ids.InstrumentID(c.Params("instrument")), ids.Account(c.Params("account")))
}

func (h *Handler) writeBalance(c *fiber.Ctx, id ids.InstrumentID, account ids.Account) error {
	tok, err := h.network.Bank.Token(id)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(balanceResponse{
		Instrument: id,
		Account:    account,
		Balance:    tok.BalanceOf(account),
		Allowance:  tok.Allowance(account),
	})
}

func (h *Handler) mintAsset(c *fiber.Ctx) error {
	var req assetRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}
	if req.Asset.IsZero() || req.Owner.IsZero() {
		return httpserver.BadRequest(c, "asset and owner are required")
	}
	if err := h.network.Assets.Mint(req.Asset, req.Owner); err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(assetResponse{Asset: req.Asset, Owner: req.Owner})
}

func (h *Handler) approveAsset(c *fiber.Ctx) error {
	var req assetRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.BadRequest(c, "invalid json")
	}
	if err := h.network.Assets.Approve(req.Asset, req.Owner); err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(assetResponse{Asset: req.Asset, Owner: req.Owner})
}

func (h *Handler) assetOwner(c *fiber.Ctx) error {
	asset := ids.AssetRef{Collection: c.Params("collection"), TokenID: c.Params("token")}
	owner, err := h.network.Assets.OwnerOf(asset)
	if err != nil {
		return httpserver.WriteError(c, err)
	}
	return c.JSON(assetResponse{Asset: asset, Owner: owner})
}
