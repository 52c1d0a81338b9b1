package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind identifies the broadcast events an auction channel emits.
type EventKind string

const (
	EventBidNew          EventKind = "bid:new"
	EventAuctionExtended EventKind = "auction:extended"
	EventAuctionClosed   EventKind = "auction:closed"
)

// Event is one fire-and-forget state-change notification. Delivery is
// best-effort; subscribers reconcile with Ledger.BidsSince.
type Event struct {
	Kind      EventKind
	AuctionID uuid.UUID

	// bid:new
	BidID    uuid.UUID
	BidderID uuid.UUID
	Amount   decimal.Decimal
	IsProxy  bool
	BidAt    time.Time

	// auction:extended
	NewEndAt time.Time

	// auction:closed
	WinnerBidID    *uuid.UUID
	WinnerBidderID *uuid.UUID
	WinningAmount  *decimal.Decimal
}

// NewBidEvent builds a bid:new event from a committed bid.
func NewBidEvent(b *Bid) Event {
	return Event{
		Kind:      EventBidNew,
		AuctionID: b.AuctionID,
		BidID:     b.ID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		IsProxy:   b.IsProxy,
		BidAt:     b.CreatedAt,
	}
}

// ExtendedEvent builds an auction:extended event.
func ExtendedEvent(auctionID uuid.UUID, newEndAt time.Time) Event {
	return Event{Kind: EventAuctionExtended, AuctionID: auctionID, NewEndAt: newEndAt}
}

// ClosedEvent builds an auction:closed event. winner is nil when the auction
// closed without a sale (no bids, or reserve not met).
func ClosedEvent(auctionID uuid.UUID, winner *Bid) Event {
	e := Event{Kind: EventAuctionClosed, AuctionID: auctionID}
	if winner != nil {
		e.WinnerBidID = &winner.ID
		e.WinnerBidderID = &winner.BidderID
		amount := winner.Amount
		e.WinningAmount = &amount
	}
	return e
}

// ChannelName derives the deterministic broadcast channel for an auction.
func ChannelName(auctionID uuid.UUID) string {
	return "auction:" + auctionID.String()
}
