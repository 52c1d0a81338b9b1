package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

// AuctionStateDTO exposes auction state to the HTTP/WS surface. The reserve
// price itself is never exposed, only whether the standing bid has met it.
type AuctionStateDTO struct {
	AuctionID     uuid.UUID        `json:"auction_id"`
	ProductID     uuid.UUID        `json:"product_id"`
	StoreID       uuid.UUID        `json:"store_id"`
	StartPrice    decimal.Decimal  `json:"start_price"`
	CurrentBid    *decimal.Decimal `json:"current_bid,omitempty"`
	CurrentBidder *uuid.UUID       `json:"current_bidder,omitempty"`
	MinIncrement  decimal.Decimal  `json:"min_increment"`
	MinimumBid    decimal.Decimal  `json:"minimum_bid"`
	ReserveMet    bool             `json:"reserve_met"`
	StartAt       time.Time        `json:"start_at"`
	EndAt         time.Time        `json:"end_at"`
	Status        string           `json:"status"`
}

// GetAuctionStateUseCase reads the committed state of one auction.
type GetAuctionStateUseCase struct {
	ledger domain.Ledger
}

func NewGetAuctionStateUseCase(ledger domain.Ledger) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{ledger: ledger}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	a, err := uc.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return &AuctionStateDTO{
		AuctionID:     a.ID,
		ProductID:     a.ProductID,
		StoreID:       a.StoreID,
		StartPrice:    a.StartPrice,
		CurrentBid:    a.CurrentBid,
		CurrentBidder: a.CurrentBidder,
		MinIncrement:  a.MinIncrement,
		MinimumBid:    a.MinimumBid(),
		ReserveMet:    a.ReserveMet(),
		StartAt:       a.StartAt,
		EndAt:         a.EndAt,
		Status:        string(a.Status),
	}, nil
}

// GetBidsSinceUseCase is the catch-up read: bids committed at or after a
// client-supplied timestamp, in commit order. Subscribers that missed a
// broadcast reconcile through it.
type GetBidsSinceUseCase struct {
	ledger domain.Ledger
}

func NewGetBidsSinceUseCase(ledger domain.Ledger) *GetBidsSinceUseCase {
	return &GetBidsSinceUseCase{ledger: ledger}
}

func (uc *GetBidsSinceUseCase) Execute(ctx context.Context, auctionID uuid.UUID, since time.Time) ([]*domain.Bid, error) {
	return uc.ledger.BidsSince(ctx, auctionID, since)
}
