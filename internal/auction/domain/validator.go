package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision is the outcome of validating one proposed bid against a snapshot of
// auction state. It is a pure value: the validator never touches the ledger.
type Decision struct {
	Accepted bool

	// rejection fields
	Reason  RejectReason
	Minimum decimal.Decimal // computed floor, set for BidTooLow

	// acceptance fields
	NewCurrent decimal.Decimal
	Extended   bool
	NewEndAt   time.Time
	ReserveMet bool
}

// Reject builds a rejected decision.
func Reject(reason RejectReason) Decision {
	return Decision{Reason: reason}
}

// Validate checks a proposed bid against the auction snapshot at 'now'.
// Rules are applied in order: status, deadline, floor, self-outbid. A bid below
// a set reserve is still accepted; the reserve only matters at closure.
//
// allowSelfOutbid relaxes rule 4. The engine passes the configured policy for
// manual bids and true for resolver-generated defenses, where the standing
// leader raises their own bid against a challenger.
func Validate(a *Auction, bidderID uuid.UUID, amount decimal.Decimal, now time.Time, allowSelfOutbid bool) Decision {
	if !a.BiddingOpen() {
		return Reject(ReasonAuctionNotActive)
	}
	if !now.Before(a.EndAt) {
		return Reject(ReasonAuctionEnded)
	}
	minimum := a.MinimumBid()
	if amount.LessThan(minimum) {
		d := Reject(ReasonBidTooLow)
		d.Minimum = minimum
		return d
	}
	if !allowSelfOutbid && a.CurrentBidder != nil && *a.CurrentBidder == bidderID {
		return Reject(ReasonAlreadyHighBidder)
	}

	d := Decision{
		Accepted:   true,
		NewCurrent: amount,
		ReserveMet: a.ReservePrice == nil || amount.GreaterThanOrEqual(*a.ReservePrice),
	}
	if a.AutoExtend && a.EndAt.Sub(now) <= a.ExtendWindow() {
		d.Extended = true
		d.NewEndAt = now.Add(a.ExtendWindow())
	}
	return d
}
