package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/infra/repository/memory"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/config"
)

func engineCfg() config.EngineConfig {
	return config.EngineConfig{
		EndingSoonWindow:   10 * time.Minute,
		SweepInterval:      time.Minute,
		LockAcquireTimeout: 2 * time.Second,
		CommitRetries:      3,
		SweepParallelism:   2,
	}
}

// recordPublisher captures broadcast events in emission order.
type recordPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordPublisher) Publish(auctionID uuid.UUID, e domain.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func newEngine(ledger domain.Ledger) (*PlaceBidUseCase, *recordPublisher) {
	pub := &recordPublisher{}
	return NewPlaceBidUseCase(ledger, NewKeyedMutex(), pub, engineCfg()), pub
}

func TestPlaceBid_AcceptsAndCommits(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	ledger.Seed(a)

	engine, pub := newEngine(ledger)
	bidder := uuid.New()

	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: bidder, Amount: dec("120")})
	assert.NoError(t, err)
	assert.True(t, result.Accepted)
	check.True(t, result.Bid.Amount.Equal(dec("120")))
	check.False(t, result.Bid.IsProxy)

	stored, err := ledger.GetAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.True(t, stored.CurrentBid.Equal(dec("120")))
	check.Equal(t, bidder, *stored.CurrentBidder)

	bids, err := ledger.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(bids))
	check.Equal(t, []domain.EventKind{domain.EventBidNew}, pub.kinds())
}

func TestPlaceBid_RejectionLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	ledger.Seed(a)

	engine, pub := newEngine(ledger)

	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("50")})
	assert.NoError(t, err)
	assert.False(t, result.Accepted)
	check.Equal(t, domain.ReasonBidTooLow, result.Reason)
	check.True(t, result.Minimum.Equal(dec("100")))

	bids, err := ledger.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, err)
	check.Equal(t, 0, len(bids))
	stored, err := ledger.GetAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.Nil(t, stored.CurrentBid)
	check.Equal(t, 0, len(pub.kinds()))
}

func TestPlaceBid_SelfOutbidRejectedBeforeLedger(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	ledger.Seed(a)

	engine, _ := newEngine(ledger)
	bidder := uuid.New()

	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: bidder, Amount: dec("100")})
	assert.NoError(t, err)
	assert.True(t, result.Accepted)

	result, err = engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: bidder, Amount: dec("200")})
	assert.NoError(t, err)
	assert.False(t, result.Accepted)
	check.Equal(t, domain.ReasonAlreadyHighBidder, result.Reason)

	bids, err := ledger.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, err)
	check.Equal(t, 1, len(bids))
}

func TestPlaceBid_InvalidAmount(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	engine, _ := newEngine(ledger)

	_, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: uuid.New(), BidderID: uuid.New(), Amount: dec("0")})
	check.True(t, errors.Is(err, domain.ErrInvalidAmount))
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	engine, _ := newEngine(ledger)

	_, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: uuid.New(), BidderID: uuid.New(), Amount: dec("100")})
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}

func TestPlaceBid_ProxyCascadeCommittedAtomically(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	ledger.Seed(a)

	engine, pub := newEngine(ledger)
	proxyHolder := uuid.New()
	manual := uuid.New()

	setProxy := NewSetProxyUseCase(ledger, NewKeyedMutex())
	err := setProxy.Execute(ctx, SetProxyCmd{AuctionID: a.ID, BidderID: proxyHolder, MaxAmount: dec("500")})
	assert.NoError(t, err)

	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: manual, Amount: dec("100")})
	assert.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, len(result.CascadeBids))
	check.True(t, result.CascadeBids[0].Amount.Equal(dec("110")))

	bids, err := ledger.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(bids))
	check.False(t, bids[0].IsProxy)
	check.True(t, bids[1].IsProxy)

	stored, err := ledger.GetAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.True(t, stored.CurrentBid.Equal(dec("110")))
	check.Equal(t, proxyHolder, *stored.CurrentBidder)

	check.Equal(t, []domain.EventKind{domain.EventBidNew, domain.EventBidNew}, pub.kinds())
}

func TestPlaceBid_ConcurrentBiddersNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	ledger.Seed(a)

	engine, _ := newEngine(ledger)

	const n = 16
	var wg sync.WaitGroup
	var accepted int64
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := dec("100").Add(dec("10").Mul(decimal.NewFromInt(int64(i))))
			result, err := engine.Execute(ctx, PlaceBidCmd{
				AuctionID: a.ID,
				BidderID:  uuid.New(),
				Amount:    amount,
			})
			if err == nil && result.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	bids, err := ledger.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, err)

	// every accepted submission produced exactly one row, in non-decreasing order
	assert.Equal(t, int(accepted), len(bids))
	assert.True(t, accepted >= 1)
	for i := 1; i < len(bids); i++ {
		check.True(t, bids[i].Amount.GreaterThanOrEqual(bids[i-1].Amount))
	}

	// no drift: currentBid equals the last committed bid
	stored, err := ledger.GetAuction(ctx, a.ID)
	assert.NoError(t, err)
	assert.NotNil(t, stored.CurrentBid)
	check.True(t, stored.CurrentBid.Equal(bids[len(bids)-1].Amount))
}

func TestPlaceBid_SequentialIncreasingBidsAllAccepted(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	ledger.Seed(a)

	engine, _ := newEngine(ledger)

	const n = 10
	for i := 0; i < n; i++ {
		amount := dec("100").Add(dec("10").Mul(decimal.NewFromInt(int64(i))))
		result, err := engine.Execute(ctx, PlaceBidCmd{
			AuctionID: a.ID,
			BidderID:  uuid.New(),
			Amount:    amount,
		})
		assert.NoError(t, err)
		assert.True(t, result.Accepted)
	}

	bids, err := ledger.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, err)
	check.Equal(t, n, len(bids))
}

// flakyLedger fails WithinTx with a conflict a fixed number of times before
// delegating, to exercise the engine's bounded retry.
type flakyLedger struct {
	domain.Ledger
	mu       sync.Mutex
	failures int
}

func (f *flakyLedger) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return domain.ErrTxConflict
	}
	f.mu.Unlock()
	return f.Ledger.WithinTx(ctx, fn)
}

func TestPlaceBid_RetriesTransientConflicts(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mem := memory.NewLedger()
	a := runningAuction(now)
	mem.Seed(a)

	ledger := &flakyLedger{Ledger: mem, failures: 2}
	engine, _ := newEngine(ledger)

	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100")})
	assert.NoError(t, err)
	check.True(t, result.Accepted)
}

func TestPlaceBid_ExhaustedRetriesSurfaceTransient(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mem := memory.NewLedger()
	a := runningAuction(now)
	mem.Seed(a)

	ledger := &flakyLedger{Ledger: mem, failures: 10}
	engine, _ := newEngine(ledger)

	_, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100")})
	assert.Error(t, err)
	check.True(t, errors.Is(err, domain.ErrTransient))

	// nothing was committed
	bids, lerr := mem.BidsSince(ctx, a.ID, time.Time{})
	assert.NoError(t, lerr)
	check.Equal(t, 0, len(bids))
}

func TestPlaceBid_AutoExtendAdvancesEndAt(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	a.AutoExtend = true
	a.ExtendMinutes = 5
	a.EndAt = now.Add(30 * time.Second)
	ledger.Seed(a)

	engine, pub := newEngine(ledger)

	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100")})
	assert.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.NotNil(t, result.NewEndAt)
	// endAt moved to roughly placement time + 5 minutes
	check.True(t, result.NewEndAt.After(now.Add(4*time.Minute)))

	stored, err := ledger.GetAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, *result.NewEndAt, stored.EndAt)

	kinds := pub.kinds()
	assert.Equal(t, 2, len(kinds))
	check.Equal(t, domain.EventAuctionExtended, kinds[1])
}
