package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LifecycleUseCase is the recurring sweep that moves auctions between
// time-derived statuses. It owns no scheduler; callers (cmd/main's ticker, the
// REST hook, tests) invoke Sweep with an explicit clock. Sweeping is idempotent
// and shares the per-auction critical section with the bidding engine, so a
// closure can never interleave with an in-flight bid.
type LifecycleUseCase struct {
	ledger    domain.Ledger
	locks     *KeyedMutex
	publisher Publisher
	cfg       config.EngineConfig
}

func NewLifecycleUseCase(ledger domain.Ledger, locks *KeyedMutex, publisher Publisher, cfg config.EngineConfig) *LifecycleUseCase {
	return &LifecycleUseCase{
		ledger:    ledger,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Sweep transitions every due auction and returns the ids it changed.
func (uc *LifecycleUseCase) Sweep(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	due, err := uc.ledger.DueAuctions(ctx, now, uc.cfg.EndingSoonWindow)
	if err != nil {
		return nil, fmt.Errorf("lifecycle sweep: failed to list due auctions: %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	var (
		mu           sync.Mutex
		transitioned []uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	limit := uc.cfg.SweepParallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, a := range due {
		auctionID := a.ID
		g.Go(func() error {
			changed, err := uc.sweepOne(gctx, auctionID, now)
			if err != nil {
				return err
			}
			if changed {
				mu.Lock()
				transitioned = append(transitioned, auctionID)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transitioned, err
	}
	return transitioned, nil
}

// sweepOne applies the transition for a single auction under its exclusive
// section. Re-reading inside the lock makes the sweep a no-op when a concurrent
// sweep or bid already moved the auction.
func (uc *LifecycleUseCase) sweepOne(ctx context.Context, auctionID uuid.UUID, now time.Time) (bool, error) {
	release, err := uc.locks.Acquire(ctx, auctionID)
	if err != nil {
		return false, fmt.Errorf("lifecycle sweep: waiting for auction %s critical section: %w", auctionID, domain.ErrTransient)
	}
	defer release()

	var (
		changed bool
		events  []domain.Event
	)
	err = uc.ledger.WithinTx(ctx, func(tx domain.LedgerTx) error {
		a, err := tx.AuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("lifecycle sweep: failed to load auction %s: %w", auctionID, err)
		}

		target := a.TimeDerivedStatus(now, uc.cfg.EndingSoonWindow)
		if target == a.Status {
			return nil
		}

		prev := a.Status
		a.Status = target
		a.UpdatedAt = now

		if target == domain.StatusClosed {
			winner, err := uc.resolveWinner(ctx, tx, a)
			if err != nil {
				return err
			}
			if err := tx.ClearProxyCommitments(ctx, a.ID); err != nil {
				return fmt.Errorf("lifecycle sweep: failed to clear commitments for auction %s: %w", a.ID, err)
			}
			events = append(events, domain.ClosedEvent(a.ID, winner))
		}

		if err := tx.SaveAuction(ctx, a); err != nil {
			return fmt.Errorf("lifecycle sweep: failed to save auction %s: %w", a.ID, err)
		}

		changed = true
		log.Info("Auction transitioned",
			zap.String("auctionID", a.ID.String()),
			zap.String("from", string(prev)),
			zap.String("to", string(target)),
		)
		return nil
	})
	if err != nil {
		return false, err
	}

	for _, e := range events {
		uc.publisher.Publish(auctionID, e)
	}
	return changed, nil
}

// resolveWinner determines the winning bid at closure: the most recent bid,
// which by the engine's invariant is also the highest, and only when the
// reserve is met. Returns nil when the auction closes without a sale.
func (uc *LifecycleUseCase) resolveWinner(ctx context.Context, tx domain.LedgerTx, a *domain.Auction) (*domain.Bid, error) {
	if a.CurrentBid == nil || !a.ReserveMet() {
		return nil, nil
	}
	winner, err := tx.LatestBid(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle sweep: failed to read winning bid for auction %s: %w", a.ID, err)
	}
	return winner, nil
}

// Archive performs the manual administrative CLOSED → ARCHIVED transition.
func (uc *LifecycleUseCase) Archive(ctx context.Context, auctionID uuid.UUID) error {
	release, err := uc.locks.Acquire(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("archive: waiting for auction %s critical section: %w", auctionID, domain.ErrTransient)
	}
	defer release()

	return uc.ledger.WithinTx(ctx, func(tx domain.LedgerTx) error {
		a, err := tx.AuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != domain.StatusClosed {
			return fmt.Errorf("archive: auction %s is %s: %w", auctionID, a.Status, domain.ErrInvalidTransition)
		}
		a.Status = domain.StatusArchived
		a.UpdatedAt = time.Now().UTC()
		return tx.SaveAuction(ctx, a)
	})
}
