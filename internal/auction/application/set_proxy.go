package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"go.uber.org/zap"
)

// SetProxyCmd registers or raises a bidder's standing maximum for an auction.
type SetProxyCmd struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	MaxAmount decimal.Decimal
}

// SetProxyUseCase upserts a proxy commitment. It does not generate any bid by
// itself; the resolver spends against the commitment on subsequent manual bids.
type SetProxyUseCase struct {
	ledger domain.Ledger
	locks  *KeyedMutex
}

func NewSetProxyUseCase(ledger domain.Ledger, locks *KeyedMutex) *SetProxyUseCase {
	return &SetProxyUseCase{ledger: ledger, locks: locks}
}

func (uc *SetProxyUseCase) Execute(ctx context.Context, cmd SetProxyCmd) error {
	if cmd.MaxAmount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}

	release, err := uc.locks.Acquire(ctx, cmd.AuctionID)
	if err != nil {
		return fmt.Errorf("set proxy: waiting for auction %s critical section: %w", cmd.AuctionID, domain.ErrTransient)
	}
	defer release()

	err = uc.ledger.WithinTx(ctx, func(tx domain.LedgerTx) error {
		a, err := tx.AuctionForUpdate(ctx, cmd.AuctionID)
		if err != nil {
			return fmt.Errorf("set proxy: failed to load auction %s: %w", cmd.AuctionID, err)
		}
		if !a.BiddingOpen() && a.Status != domain.StatusScheduled {
			return &domain.Rejection{Reason: domain.ReasonAuctionNotActive}
		}
		return tx.UpsertProxyCommitment(ctx, domain.NewProxyCommitment(cmd.AuctionID, cmd.BidderID, cmd.MaxAmount))
	})
	if err != nil {
		return err
	}

	log.Info("Proxy commitment set",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("maxAmount", cmd.MaxAmount.String()),
	)
	return nil
}
