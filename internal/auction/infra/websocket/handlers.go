package websocket

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/application"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs which are specific for the auction module
type AuctionWSHandler struct {
	auctionService application.AuctionService
	hub            *websocket.Hub
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// RegisterRoutes mounts GET /ws/auctions/:id. The upgrade is refused for unknown auctions.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws/auctions/:id", func(c *fiber.Ctx) error {
		id, err := ids.ParseAuctionID(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := h.auctionService.GetAuction(c.UserContext(), id); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		c.Locals("auctionID", id)
		return c.Next()
	}, fiberws.New(func(conn *fiberws.Conn) {
		id, _ := conn.Locals("auctionID").(ids.AuctionID)
		client := h.hub.NewClient(conn, id)
		h.hub.RegisterClient(client)
		h.sendInitialState(ctx, client)

		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}))
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMessage dispatches the message by its type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format", nil)
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, "unknown message type", nil)
	}
}

// handleClientBidMessage places the bid. Accepted bids reach every follower,
// this client included, through the Broadcaster once committed.
func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format", nil)
		return
	}

	_, err := h.auctionService.PlaceBid(ctx, application.PlaceBidDTO{
		AuctionID:  client.AuctionID,
		Bidder:     bidMsg.Payload.Bidder,
		Instrument: bidMsg.Payload.Instrument,
		Amount:     bidMsg.Payload.Amount,
	})
	if err != nil {
		h.sendErrorToClient(client, err.Error(), err)
	}
}

func (h *AuctionWSHandler) sendInitialState(ctx context.Context, client *websocket.Client) {
	state, err := h.auctionService.GetAuction(ctx, client.AuctionID)
	if err != nil {
		h.sendErrorToClient(client, "failed to load auction state", err)
		return
	}
	msg := ServerInitialStateMessage{BaseMessage: BaseMessage{Type: MessageTypeServerInitialState}}
	msg.Payload.Auction = state
	send(client, msg)
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string, cause error) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Error = errorMessage
	if kind := errkind.Of(cause); kind != nil {
		errMsg.Payload.Kind = kind.Error()
	}
	send(client, errMsg)
}

func send(client *websocket.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ws message", zap.Error(err))
		return
	}
	defer func() {
		// the hub may already have closed Send
		if r := recover(); r != nil {
			log.Debug("client gone, message dropped", zap.String("clientID", client.ID))
		}
	}()
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, message dropped", zap.String("clientID", client.ID))
	}
}
