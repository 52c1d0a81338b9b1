package application

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

// resolveCascade runs the proxy auto-bid cascade after an accepted bid has been
// applied to the auction. It mutates the auction in place (current bid, bidder,
// possible auto-extensions) and returns the generated counter-bids in the order
// they must be committed.
//
// Commitments belonging to actingBidder are excluded: a commitment never
// counters its own owner's manual raise. At every step the current leader's
// own commitment only acts defensively, so no bidder ever outbids themselves
// except through a defense against a challenger.
//
// Termination: the cascade is a single pass over the challengers in descending
// order of maximum (ties by earliest CreatedAt), so the pass itself is the
// iteration bound — one visit and at most two generated bids per active
// commitment, never a re-scan. A synthetic bid that fails re-validation
// surfaces ErrCascadeOverflow and rolls the whole transaction back.
func resolveCascade(a *domain.Auction, commitments []*domain.ProxyCommitment, actingBidder uuid.UUID, now time.Time) ([]*domain.Bid, bool, error) {
	challengers := make([]*domain.ProxyCommitment, 0, len(commitments))
	ceilings := make(map[uuid.UUID]*domain.ProxyCommitment, len(commitments))
	for _, pc := range commitments {
		if pc.BidderID == actingBidder {
			continue
		}
		challengers = append(challengers, pc)
		ceilings[pc.BidderID] = pc
	}
	sort.SliceStable(challengers, func(i, j int) bool {
		if !challengers[i].MaxAmount.Equal(challengers[j].MaxAmount) {
			return challengers[i].MaxAmount.GreaterThan(challengers[j].MaxAmount)
		}
		return challengers[i].CreatedAt.Before(challengers[j].CreatedAt)
	})

	var (
		generated []*domain.Bid
		extended  bool
	)

	place := func(bidderID uuid.UUID, amount decimal.Decimal) error {
		d := domain.Validate(a, bidderID, amount, now, true)
		if !d.Accepted {
			return fmt.Errorf("cascade produced an invalid counter-bid (%s at %s): %w",
				d.Reason, amount, domain.ErrCascadeOverflow)
		}
		bid := domain.NewProxyBid(a.ID, bidderID, amount, now)
		a.Apply(d, bidderID, now)
		if d.Extended {
			extended = true
		}
		generated = append(generated, bid)
		return nil
	}

	for _, c := range challengers {
		needed := a.MinimumBid()
		if c.MaxAmount.LessThan(needed) {
			// sorted descending: nobody further down can counter either
			break
		}

		leaderCeil := decimal.Zero
		if a.CurrentBid != nil {
			leaderCeil = *a.CurrentBid
		}
		var leaderPC *domain.ProxyCommitment
		if a.CurrentBidder != nil {
			if pc, ok := ceilings[*a.CurrentBidder]; ok {
				leaderPC = pc
				leaderCeil = pc.MaxAmount
			}
		}

		switch {
		case c.MaxAmount.GreaterThanOrEqual(leaderCeil.Add(a.MinIncrement)):
			// challenger clears the leader's ceiling and takes the lead at
			// min(challenger max, leader ceiling + increment)
			if err := place(c.BidderID, leaderCeil.Add(a.MinIncrement)); err != nil {
				return nil, false, err
			}

		case leaderPC != nil && c.MaxAmount.Equal(leaderPC.MaxAmount):
			// equal maximums: the commitment recorded first keeps the lead at the
			// matched amount; the later one is exhausted and not re-cascaded
			if err := place(leaderPC.BidderID, c.MaxAmount); err != nil {
				return nil, false, err
			}

		default:
			// challenger cannot clear the ceiling: it pushes the price to its own
			// maximum, and the leader defends one increment above when their
			// ceiling still allows it
			if err := place(c.BidderID, c.MaxAmount); err != nil {
				return nil, false, err
			}
			if leaderPC != nil && leaderCeil.GreaterThanOrEqual(c.MaxAmount.Add(a.MinIncrement)) {
				if err := place(leaderPC.BidderID, c.MaxAmount.Add(a.MinIncrement)); err != nil {
					return nil, false, err
				}
			}
		}
	}

	return generated, extended, nil
}
