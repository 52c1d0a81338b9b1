package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger is the durable, transactional record of auctions and their bid
// history. All state the engine mutates flows through WithinTx; the remaining
// methods are read-only and may observe any committed state.
type Ledger interface {
	// GetAuction returns the committed auction or ErrAuctionNotFound.
	GetAuction(ctx context.Context, id uuid.UUID) (*Auction, error)

	// BidsSince returns the auction's bids with CreatedAt >= since, ordered by
	// (CreatedAt, Seq) ascending. The catch-up read for subscribers that missed
	// a broadcast.
	BidsSince(ctx context.Context, auctionID uuid.UUID, since time.Time) ([]*Bid, error)

	// DueAuctions returns auctions whose stored status lags their time-derived
	// status at 'now', given the ending-soon window. Input to the lifecycle sweep.
	DueAuctions(ctx context.Context, now time.Time, endingSoonWindow time.Duration) ([]*Auction, error)

	// WithinTx runs fn inside a single all-or-nothing transaction. A non-nil
	// error from fn rolls everything back. Implementations map storage-level
	// serialization conflicts to ErrTxConflict so the engine can retry.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the write-side contract, only reachable through Ledger.WithinTx.
type LedgerTx interface {
	// AuctionForUpdate re-reads the auction with an exclusive row claim, so the
	// engine never trusts a caller-supplied snapshot.
	AuctionForUpdate(ctx context.Context, id uuid.UUID) (*Auction, error)

	// SaveAuction persists the mutated aggregate.
	SaveAuction(ctx context.Context, a *Auction) error

	// InsertBid appends to the bid history and assigns Bid.Seq in commit order.
	InsertBid(ctx context.Context, b *Bid) error

	// LatestBid returns the most recent bid for the auction, nil when there are
	// no bids yet.
	LatestBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)

	// UpsertProxyCommitment creates or supersedes the (auction, bidder)
	// commitment. An update keeps the original CreatedAt.
	UpsertProxyCommitment(ctx context.Context, pc *ProxyCommitment) error

	// ActiveProxyCommitments returns all commitments for the auction, ordered by
	// CreatedAt ascending.
	ActiveProxyCommitments(ctx context.Context, auctionID uuid.UUID) ([]*ProxyCommitment, error)

	// ClearProxyCommitments removes every commitment for the auction. Called at
	// closure.
	ClearProxyCommitments(ctx context.Context, auctionID uuid.UUID) error
}
