package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBufferSize    = 64
	controlBufferSize = 256
)

// Hub keeps the client registry, grouped by auction, and fans messages out to it.
// All registry mutations happen on the Run goroutine.
type Hub struct {
	clients map[ids.AuctionID]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	// InboundMessages is read by the bounded-context handlers (e.g. auction bids).
	InboundMessages chan *ClientMessage
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The auction this client follows.
	AuctionID ids.AuctionID
	ID        string
}

type Message struct {
	AuctionID ids.AuctionID
	Data      []byte
}

// ClientMessage wraps a raw inbound frame with the client that sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, controlBufferSize),
		register:        make(chan *Client, controlBufferSize),
		unregister:      make(chan *Client, controlBufferSize),
		clients:         make(map[ids.AuctionID]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, controlBufferSize),
	}
}

// NewClient creates a client following auctionID, with a fresh id.
func (h *Hub) NewClient(conn *websocket.Conn, auctionID ids.AuctionID) *Client {
	return &Client{
		Hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
		AuctionID: auctionID,
		ID:        uuid.NewString(),
	}
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation", zap.Int("total_clients", h.count()))
			for _, group := range h.clients {
				for client := range group {
					close(client.Send)
				}
			}
			h.clients = make(map[ids.AuctionID]map[*Client]bool)
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.drainRegistrations()
			h.remove(client)

		case message := <-h.broadcast:
			h.drainRegistrations()
			clients, ok := h.clients[message.AuctionID]
			if !ok {
				continue
			}
			log.Debug("Broadcasting message to auction",
				zap.Uint64("auctionID", uint64(message.AuctionID)),
				zap.Int("clients", len(clients)),
			)
			for client := range clients {
				select {
				case client.Send <- message.Data:
				default:
					log.Warn("Client send buffer full, unregistering",
						zap.String("clientID", client.ID),
						zap.Uint64("auctionID", uint64(client.AuctionID)),
						zap.String("remote_addr", client.remoteAddr()),
					)
					h.remove(client)
				}
			}
		}
	}
}

// add, remove and drainRegistrations must run on the Run goroutine.
func (h *Hub) add(client *Client) {
	if _, ok := h.clients[client.AuctionID]; !ok {
		h.clients[client.AuctionID] = make(map[*Client]bool)
	}
	h.clients[client.AuctionID][client] = true
	log.Info("Client registered",
		zap.String("clientID", client.ID),
		zap.Uint64("auctionID", uint64(client.AuctionID)),
		zap.String("remote_addr", client.remoteAddr()),
		zap.Int("total_clients", h.count()),
	)
}

// drainRegistrations applies queued registrations so a client registered before a
// broadcast or unregister was queued is seen by it.
func (h *Hub) drainRegistrations() {
	for {
		select {
		case client := <-h.register:
			h.add(client)
		default:
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.AuctionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.AuctionID)
	}
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.Uint64("auctionID", uint64(client.AuctionID)),
		zap.Int("total_clients", h.count()),
	)
}

func (h *Hub) count() int {
	count := 0
	for _, group := range h.clients {
		count += len(group)
	}
	return count
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.Uint64("auctionID", uint64(client.AuctionID)),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.Uint64("auctionID", uint64(client.AuctionID)),
		)
	}
}

// BroadcastToAuction queues data for every client following auctionID.
func (h *Hub) BroadcastToAuction(auctionID ids.AuctionID, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
	default:
		log.Error("Broadcast channel is full, message dropped", zap.Uint64("auctionID", uint64(auctionID)))
	}
}

func (c *Client) remoteAddr() string {
	if c.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}
