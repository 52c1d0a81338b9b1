package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is one accepted bid in an auction's append-only history. Rows are never
// updated or deleted; ordering is (CreatedAt, Seq) with Seq assigned by the
// ledger in commit order.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	IsProxy   bool // true for resolver-generated counter-bids
	Seq       int64
	CreatedAt time.Time
}

// NewBid creates a manual bid. The ledger assigns Seq at insert.
func NewBid(auctionID, bidderID uuid.UUID, amount decimal.Decimal, createdAt time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

// NewProxyBid creates a resolver-generated counter-bid.
func NewProxyBid(auctionID, bidderID uuid.UUID, amount decimal.Decimal, createdAt time.Time) *Bid {
	b := NewBid(auctionID, bidderID, amount, createdAt)
	b.IsProxy = true
	return b
}

// ProxyCommitment is a bidder's standing maximum for one auction. One active
// commitment per (auction, bidder); raising the maximum updates the row in
// place and keeps the original CreatedAt, which is the cascade tie-break.
// The resolver reads commitments but never mutates them.
type ProxyCommitment struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	MaxAmount decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewProxyCommitment(auctionID, bidderID uuid.UUID, maxAmount decimal.Decimal) *ProxyCommitment {
	now := time.Now().UTC()
	return &ProxyCommitment{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxAmount: maxAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
