package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

// Ledger is an in-memory domain.Ledger with the same transactional semantics
// as the Postgres implementation: writes inside WithinTx stage until commit and
// are discarded on error. Used by the engine tests and for dependency-free
// local runs.
type Ledger struct {
	mu          sync.Mutex
	auctions    map[uuid.UUID]*domain.Auction
	bids        map[uuid.UUID][]*domain.Bid
	commitments map[uuid.UUID]map[uuid.UUID]*domain.ProxyCommitment
	seq         int64
}

func NewLedger() *Ledger {
	return &Ledger{
		auctions:    make(map[uuid.UUID]*domain.Auction),
		bids:        make(map[uuid.UUID][]*domain.Bid),
		commitments: make(map[uuid.UUID]map[uuid.UUID]*domain.ProxyCommitment),
	}
}

// Seed installs an auction directly, outside any transaction. Test setup only.
func (l *Ledger) Seed(a *domain.Auction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auctions[a.ID] = cloneAuction(a)
}

func (l *Ledger) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (l *Ledger) BidsSince(ctx context.Context, auctionID uuid.UUID, since time.Time) ([]*domain.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.Bid
	for _, b := range l.bids[auctionID] {
		if !b.CreatedAt.Before(since) {
			cb := *b
			out = append(out, &cb)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (l *Ledger) DueAuctions(ctx context.Context, now time.Time, endingSoonWindow time.Duration) ([]*domain.Auction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var due []*domain.Auction
	for _, a := range l.auctions {
		if a.TimeDerivedStatus(now, endingSoonWindow) != a.Status {
			due = append(due, cloneAuction(a))
		}
	}
	return due, nil
}

func (l *Ledger) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &ledgerTx{
		ledger:      l,
		auctions:    make(map[uuid.UUID]*domain.Auction),
		commitments: make(map[uuid.UUID]map[uuid.UUID]*domain.ProxyCommitment),
		cleared:     make(map[uuid.UUID]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// ledgerTx stages writes; commit applies them while the ledger mutex is held.
type ledgerTx struct {
	ledger      *Ledger
	auctions    map[uuid.UUID]*domain.Auction
	bids        []*domain.Bid
	commitments map[uuid.UUID]map[uuid.UUID]*domain.ProxyCommitment
	cleared     map[uuid.UUID]bool
}

func (t *ledgerTx) AuctionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	if a, ok := t.auctions[id]; ok {
		return cloneAuction(a), nil
	}
	a, ok := t.ledger.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (t *ledgerTx) SaveAuction(ctx context.Context, a *domain.Auction) error {
	t.auctions[a.ID] = cloneAuction(a)
	return nil
}

func (t *ledgerTx) InsertBid(ctx context.Context, b *domain.Bid) error {
	cb := *b
	t.bids = append(t.bids, &cb)
	return nil
}

func (t *ledgerTx) LatestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	var latest *domain.Bid
	for _, b := range t.ledger.bids[auctionID] {
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) ||
			(b.CreatedAt.Equal(latest.CreatedAt) && b.Seq > latest.Seq) {
			latest = b
		}
	}
	for _, b := range t.bids {
		if b.AuctionID == auctionID {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	cb := *latest
	return &cb, nil
}

func (t *ledgerTx) UpsertProxyCommitment(ctx context.Context, pc *domain.ProxyCommitment) error {
	staged, ok := t.commitments[pc.AuctionID]
	if !ok {
		staged = make(map[uuid.UUID]*domain.ProxyCommitment)
		t.commitments[pc.AuctionID] = staged
	}
	cp := *pc
	if existing := t.lookupCommitment(pc.AuctionID, pc.BidderID); existing != nil {
		// superseding keeps the original identity and priority
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	staged[pc.BidderID] = &cp
	return nil
}

func (t *ledgerTx) lookupCommitment(auctionID, bidderID uuid.UUID) *domain.ProxyCommitment {
	if staged, ok := t.commitments[auctionID]; ok {
		if pc, ok := staged[bidderID]; ok {
			return pc
		}
	}
	if t.cleared[auctionID] {
		return nil
	}
	if committed, ok := t.ledger.commitments[auctionID]; ok {
		return committed[bidderID]
	}
	return nil
}

func (t *ledgerTx) ActiveProxyCommitments(ctx context.Context, auctionID uuid.UUID) ([]*domain.ProxyCommitment, error) {
	merged := make(map[uuid.UUID]*domain.ProxyCommitment)
	if !t.cleared[auctionID] {
		for bidder, pc := range t.ledger.commitments[auctionID] {
			merged[bidder] = pc
		}
	}
	for bidder, pc := range t.commitments[auctionID] {
		merged[bidder] = pc
	}

	out := make([]*domain.ProxyCommitment, 0, len(merged))
	for _, pc := range merged {
		cp := *pc
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (t *ledgerTx) ClearProxyCommitments(ctx context.Context, auctionID uuid.UUID) error {
	t.cleared[auctionID] = true
	delete(t.commitments, auctionID)
	return nil
}

func (t *ledgerTx) commit() {
	l := t.ledger
	for id, a := range t.auctions {
		l.auctions[id] = a
	}
	for _, b := range t.bids {
		l.seq++
		b.Seq = l.seq
		l.bids[b.AuctionID] = append(l.bids[b.AuctionID], b)
	}
	for auctionID := range t.cleared {
		delete(l.commitments, auctionID)
	}
	for auctionID, staged := range t.commitments {
		committed, ok := l.commitments[auctionID]
		if !ok {
			committed = make(map[uuid.UUID]*domain.ProxyCommitment)
			l.commitments[auctionID] = committed
		}
		for bidder, pc := range staged {
			committed[bidder] = pc
		}
	}
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	cp := *a
	if a.ReservePrice != nil {
		r := *a.ReservePrice
		cp.ReservePrice = &r
	}
	if a.CurrentBid != nil {
		c := *a.CurrentBid
		cp.CurrentBid = &c
	}
	if a.CurrentBidder != nil {
		b := *a.CurrentBidder
		cp.CurrentBidder = &b
	}
	return &cp
}
