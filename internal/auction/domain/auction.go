package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStatus is the stored lifecycle state of an auction.
type AuctionStatus string

const (
	StatusScheduled  AuctionStatus = "SCHEDULED"
	StatusRunning    AuctionStatus = "RUNNING"
	StatusEndingSoon AuctionStatus = "ENDING_SOON"
	StatusClosed     AuctionStatus = "CLOSED"
	StatusArchived   AuctionStatus = "ARCHIVED"
)

// Auction is the aggregate root for a timed auction. CurrentBid and EndAt are
// the only fields mutated after creation, and every mutation happens inside the
// engine's per-auction exclusive section.
type Auction struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	StoreID       uuid.UUID
	StartPrice    decimal.Decimal
	ReservePrice  *decimal.Decimal // hidden minimum, nil when the seller set none
	CurrentBid    *decimal.Decimal // nil until the first accepted bid
	CurrentBidder *uuid.UUID
	MinIncrement  decimal.Decimal
	StartAt       time.Time
	EndAt         time.Time
	AutoExtend    bool
	ExtendMinutes int
	Status        AuctionStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BiddingOpen reports whether the stored status admits new bids.
func (a *Auction) BiddingOpen() bool {
	return a.Status == StatusRunning || a.Status == StatusEndingSoon
}

// MinimumBid returns the lowest amount the validator will accept next.
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.CurrentBid != nil {
		return a.CurrentBid.Add(a.MinIncrement)
	}
	if a.StartPrice.GreaterThan(a.MinIncrement) {
		return a.StartPrice
	}
	return a.MinIncrement
}

// ReserveMet reports whether the standing high bid satisfies the reserve.
// Auctions without a reserve are always met.
func (a *Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	return a.CurrentBid != nil && a.CurrentBid.GreaterThanOrEqual(*a.ReservePrice)
}

// ExtendWindow is the anti-snipe window as a duration.
func (a *Auction) ExtendWindow() time.Duration {
	return time.Duration(a.ExtendMinutes) * time.Minute
}

// TimeDerivedStatus computes the status the auction should hold at 'now'.
// Terminal states are sticky; the lifecycle sweep compares this against the
// stored status and applies the difference.
func (a *Auction) TimeDerivedStatus(now time.Time, endingSoonWindow time.Duration) AuctionStatus {
	switch a.Status {
	case StatusClosed, StatusArchived:
		return a.Status
	}
	if now.Before(a.StartAt) {
		return StatusScheduled
	}
	if !now.Before(a.EndAt) {
		return StatusClosed
	}
	if a.EndAt.Sub(now) <= endingSoonWindow {
		return StatusEndingSoon
	}
	return StatusRunning
}

// Apply mutates the auction with an accepted decision. Must only be called
// while the caller holds the auction's exclusive section.
func (a *Auction) Apply(d Decision, bidderID uuid.UUID, now time.Time) {
	amount := d.NewCurrent
	a.CurrentBid = &amount
	bidder := bidderID
	a.CurrentBidder = &bidder
	if d.Extended {
		a.EndAt = d.NewEndAt
	}
	a.UpdatedAt = now
}

// NewAuction builds a SCHEDULED auction for a product in a store.
func NewAuction(id, productID, storeID uuid.UUID, startPrice, minIncrement decimal.Decimal, reserve *decimal.Decimal, startAt, endAt time.Time, autoExtend bool, extendMinutes int) *Auction {
	now := time.Now().UTC()
	return &Auction{
		ID:            id,
		ProductID:     productID,
		StoreID:       storeID,
		StartPrice:    startPrice,
		ReservePrice:  reserve,
		MinIncrement:  minIncrement,
		StartAt:       startAt,
		EndAt:         endAt,
		AutoExtend:    autoExtend,
		ExtendMinutes: extendMinutes,
		Status:        StatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
