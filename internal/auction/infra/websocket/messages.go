package websocket

import (
	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/application"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid           MessageType = "client_bid"            // client msg to place a bid
	MessageTypeServerAuctionUpdate MessageType = "server_auction_update" // server msg after a committed change
	MessageTypeServerInitialState  MessageType = "server_initial_state"  // server msg sent once on connect
	MessageTypeServerError         MessageType = "server_error"          // server msg indicating error
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is DTO for a bid message sent by the client. The auction is the
// one the connection follows.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		Bidder     ids.Account      `json:"bidder"`
		Instrument ids.InstrumentID `json:"instrument"`
		Amount     decimal.Decimal  `json:"amount"`
	} `json:"payload"`
}

// ServerAuctionUpdateMessage carries the observation that caused the update and the
// auction state right after it.
type ServerAuctionUpdateMessage struct {
	BaseMessage
	Payload struct {
		Event   string                       `json:"event"`
		Auction *application.AuctionStateDTO `json:"auction"`
	} `json:"payload"`
}

type ServerInitialStateMessage struct {
	BaseMessage
	Payload struct {
		Auction *application.AuctionStateDTO `json:"auction"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	} `json:"payload"`
}
