package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrInvalidAmount      = errors.New("bid amount must be greater than zero")
	ErrInvalidTransition  = errors.New("invalid auction status transition")
	ErrTxConflict         = errors.New("ledger transaction conflict")
	ErrTransient          = errors.New("transient failure, resubmit the bid")
	ErrCascadeOverflow    = errors.New("proxy cascade exceeded its iteration cap")
	ErrLedgerDrift        = errors.New("ledger drift: auction current bid does not match its latest bid")
	ErrCommitmentNotFound = errors.New("proxy commitment not found")
)

// RejectReason is the machine-readable code carried by a validation rejection.
type RejectReason string

const (
	ReasonAuctionNotActive  RejectReason = "AuctionNotActive"
	ReasonAuctionEnded      RejectReason = "AuctionEnded"
	ReasonBidTooLow         RejectReason = "BidTooLow"
	ReasonAlreadyHighBidder RejectReason = "AlreadyHighBidder"
)

// Rejection is the expected, non-fatal outcome of a failed validation. It is
// returned synchronously and never causes a ledger mutation. Minimum is only
// meaningful for BidTooLow, so a client can resubmit without a second round trip.
type Rejection struct {
	Reason  RejectReason
	Minimum decimal.Decimal
}

func (r *Rejection) Error() string {
	if r.Reason == ReasonBidTooLow {
		return fmt.Sprintf("bid rejected: %s (minimum acceptable amount is %s)", r.Reason, r.Minimum)
	}
	return fmt.Sprintf("bid rejected: %s", r.Reason)
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
