package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/application"
)

// MessageType identifies the WS frame variants on an auction channel.
type MessageType string

const (
	MessageTypeClientBid        MessageType = "client_bid"
	MessageTypeServerBidNew     MessageType = "bid:new"
	MessageTypeServerExtended   MessageType = "auction:extended"
	MessageTypeServerClosed     MessageType = "auction:closed"
	MessageTypeServerState      MessageType = "server_state"
	MessageTypeServerError      MessageType = "server_error"
	MessageTypeServerRejected   MessageType = "server_bid_rejected"
)

// BaseMessage carries the discriminator for every WS message.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is an inbound bid submission.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id"`
		BidderID  uuid.UUID       `json:"bidder_id"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// ServerBidNewMessage broadcasts an accepted bid.
type ServerBidNewMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id"`
		BidID     uuid.UUID       `json:"bid_id"`
		BidderID  uuid.UUID       `json:"bidder_id"`
		Amount    decimal.Decimal `json:"amount"`
		IsProxy   bool            `json:"is_proxy"`
		CreatedAt time.Time       `json:"created_at"`
	} `json:"payload"`
}

// ServerExtendedMessage broadcasts an anti-snipe extension.
type ServerExtendedMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID `json:"auction_id"`
		NewEndAt  time.Time `json:"new_end_at"`
	} `json:"payload"`
}

// ServerClosedMessage broadcasts closure, with the winner when the reserve was
// met and at least one bid was accepted.
type ServerClosedMessage struct {
	BaseMessage
	Payload struct {
		AuctionID      uuid.UUID        `json:"auction_id"`
		WinnerBidID    *uuid.UUID       `json:"winner_bid_id,omitempty"`
		WinnerBidderID *uuid.UUID       `json:"winner_bidder_id,omitempty"`
		WinningAmount  *decimal.Decimal `json:"winning_amount,omitempty"`
	} `json:"payload"`
}

// ServerStateMessage is the snapshot delivered to a client joining an auction
// channel, so it can render current state before the first broadcast arrives.
type ServerStateMessage struct {
	BaseMessage
	Payload *application.AuctionStateDTO `json:"payload"`
}

// ServerRejectedMessage answers the submitting client with the machine-readable
// reason and, for BidTooLow, the computed minimum.
type ServerRejectedMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id"`
		Reason    string          `json:"reason"`
		Minimum   decimal.Decimal `json:"minimum,omitempty"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}
