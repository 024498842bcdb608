package websocket

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/application"
	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"go.uber.org/zap"
)

// AuctionReader is the query side the broadcaster needs.
type AuctionReader interface {
	GetAuction(ctx context.Context, id ids.AuctionID) (*application.AuctionStateDTO, error)
}

// AuctionBroadcaster is the hub side the broadcaster needs.
type AuctionBroadcaster interface {
	BroadcastToAuction(auctionID ids.AuctionID, data []byte)
}

// Broadcaster is a domain.Publisher that pushes a server_auction_update to every
// client following the auction an observation belongs to.
type Broadcaster struct {
	auctions AuctionReader
	hub      AuctionBroadcaster
}

func NewBroadcaster(auctions AuctionReader, hub AuctionBroadcaster) *Broadcaster {
	return &Broadcaster{auctions: auctions, hub: hub}
}

// Publish implements domain.Publisher.
func (b *Broadcaster) Publish(ctx context.Context, ev domain.Event) {
	state, err := b.auctions.GetAuction(ctx, ev.Auction())
	if err != nil {
		log.Warn("Broadcaster: auction state unavailable",
			zap.Uint64("auctionID", uint64(ev.Auction())),
			zap.Error(err),
		)
		return
	}

	msg := ServerAuctionUpdateMessage{BaseMessage: BaseMessage{Type: MessageTypeServerAuctionUpdate}}
	msg.Payload.Event = ev.EventName()
	msg.Payload.Auction = state

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("Broadcaster: failed to marshal auction update", zap.Error(err))
		return
	}
	b.hub.BroadcastToAuction(ev.Auction(), data)
}
