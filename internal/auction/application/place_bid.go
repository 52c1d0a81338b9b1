package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/config"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidCmd is the input for one bid submission.
type PlaceBidCmd struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// BidResult is the synchronous outcome of a submission. A validation rejection
// is a normal result, not an error; Reason and Minimum tell the caller how to
// correct the bid.
type BidResult struct {
	Accepted    bool
	Reason      domain.RejectReason
	Minimum     decimal.Decimal
	Bid         *domain.Bid
	CascadeBids []*domain.Bid
	NewEndAt    *time.Time
}

// Publisher is the broadcast fan-out consumed by the engine. Implementations
// must not block; delivery is best-effort.
type Publisher interface {
	Publish(auctionID uuid.UUID, event domain.Event)
}

// PlaceBidUseCase is the bidding engine: it serializes submissions per auction,
// re-reads state under the exclusive section, validates, cascades proxy
// counter-bids, and commits everything in one ledger transaction.
type PlaceBidUseCase struct {
	ledger    domain.Ledger
	locks     *KeyedMutex
	publisher Publisher
	cfg       config.EngineConfig
}

func NewPlaceBidUseCase(ledger domain.Ledger, locks *KeyedMutex, publisher Publisher, cfg config.EngineConfig) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		ledger:    ledger,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidCmd) (*BidResult, error) {
	if cmd.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	attempts := uc.cfg.CommitRetries
	if attempts < 1 {
		attempts = 1
	}

	var (
		result *BidResult
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = uc.attempt(ctx, cmd)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrTxConflict) && attempt < attempts {
			log.Warn("PlaceBid: retrying after ledger conflict",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}
		break
	}

	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			log.Info("Bid rejected",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.String("amount", cmd.Amount.String()),
				zap.String("reason", string(rej.Reason)),
			)
			return &BidResult{Accepted: false, Reason: rej.Reason, Minimum: rej.Minimum}, nil
		}
		if errors.Is(err, domain.ErrTxConflict) {
			return nil, fmt.Errorf("place bid: retries exhausted for auction %s: %w", cmd.AuctionID, domain.ErrTransient)
		}
		return nil, err
	}
	return result, nil
}

// attempt runs one full acquire-validate-commit cycle. The critical section is
// re-acquired on every retry, and broadcast events are emitted before it is
// released so broadcasts observe commit order.
func (uc *PlaceBidUseCase) attempt(ctx context.Context, cmd PlaceBidCmd) (*BidResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, uc.cfg.LockAcquireTimeout)
	release, err := uc.locks.Acquire(lockCtx, cmd.AuctionID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("place bid: timed out waiting for auction %s critical section: %w", cmd.AuctionID, domain.ErrTransient)
	}
	defer release()

	var (
		result *BidResult
		events []domain.Event
	)
	err = uc.ledger.WithinTx(ctx, func(tx domain.LedgerTx) error {
		a, err := tx.AuctionForUpdate(ctx, cmd.AuctionID)
		if err != nil {
			return fmt.Errorf("place bid: failed to load auction %s: %w", cmd.AuctionID, err)
		}
		if err := checkLedgerDrift(ctx, tx, a); err != nil {
			return err
		}

		now := time.Now().UTC()
		decision := domain.Validate(a, cmd.BidderID, cmd.Amount, now, uc.cfg.AllowSelfOutbid)
		if !decision.Accepted {
			return &domain.Rejection{Reason: decision.Reason, Minimum: decision.Minimum}
		}

		bid := domain.NewBid(a.ID, cmd.BidderID, cmd.Amount, now)
		a.Apply(decision, cmd.BidderID, now)

		commitments, err := tx.ActiveProxyCommitments(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("place bid: failed to load proxy commitments for auction %s: %w", a.ID, err)
		}
		cascade, cascadeExtended, err := resolveCascade(a, commitments, cmd.BidderID, now)
		if err != nil {
			return err
		}

		if err := tx.InsertBid(ctx, bid); err != nil {
			return fmt.Errorf("place bid: failed to insert bid for auction %s: %w", a.ID, err)
		}
		for _, cb := range cascade {
			if err := tx.InsertBid(ctx, cb); err != nil {
				return fmt.Errorf("place bid: failed to insert cascade bid for auction %s: %w", a.ID, err)
			}
		}
		if err := tx.SaveAuction(ctx, a); err != nil {
			return fmt.Errorf("place bid: failed to save auction %s: %w", a.ID, err)
		}

		events = events[:0]
		events = append(events, domain.NewBidEvent(bid))
		for _, cb := range cascade {
			events = append(events, domain.NewBidEvent(cb))
		}
		if decision.Extended || cascadeExtended {
			events = append(events, domain.ExtendedEvent(a.ID, a.EndAt))
		}

		result = &BidResult{
			Accepted:    true,
			Bid:         bid,
			CascadeBids: cascade,
		}
		if decision.Extended || cascadeExtended {
			endAt := a.EndAt
			result.NewEndAt = &endAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		uc.publisher.Publish(cmd.AuctionID, e)
	}

	log.Info("Bid accepted",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("amount", cmd.Amount.String()),
		zap.Int("cascadeBids", len(result.CascadeBids)),
	)
	return result, nil
}

// checkLedgerDrift verifies the auction invariant that CurrentBid equals the
// most recent committed bid. A mismatch is fatal to the operation and rolls the
// transaction back, leaving the last-known-good state untouched.
func checkLedgerDrift(ctx context.Context, tx domain.LedgerTx, a *domain.Auction) error {
	latest, err := tx.LatestBid(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("place bid: failed to read latest bid for auction %s: %w", a.ID, err)
	}
	switch {
	case latest == nil && a.CurrentBid == nil:
		return nil
	case latest != nil && a.CurrentBid != nil && latest.Amount.Equal(*a.CurrentBid):
		return nil
	}
	log.Error("Ledger drift detected",
		zap.String("auctionID", a.ID.String()),
	)
	return fmt.Errorf("auction %s: %w", a.ID, domain.ErrLedgerDrift)
}
