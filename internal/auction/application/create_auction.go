package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"go.uber.org/zap"
)

// CreateAuctionCmd is the vendor-facing input for listing a product at auction.
type CreateAuctionCmd struct {
	ProductID     uuid.UUID
	StoreID       uuid.UUID
	StartPrice    decimal.Decimal
	MinIncrement  decimal.Decimal
	ReservePrice  *decimal.Decimal
	StartAt       time.Time
	EndAt         time.Time
	AutoExtend    bool
	ExtendMinutes int
}

type CreateAuctionUseCase struct {
	ledger domain.Ledger
}

func NewCreateAuctionUseCase(ledger domain.Ledger) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{ledger: ledger}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionCmd) (*domain.Auction, error) {
	if cmd.StartPrice.LessThan(decimal.Zero) || cmd.MinIncrement.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if cmd.ReservePrice != nil && cmd.ReservePrice.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if !cmd.EndAt.After(cmd.StartAt) {
		return nil, fmt.Errorf("create auction: end_at must be after start_at: %w", domain.ErrInvalidTransition)
	}
	if cmd.AutoExtend && cmd.ExtendMinutes <= 0 {
		return nil, fmt.Errorf("create auction: auto_extend requires extend_minutes > 0: %w", domain.ErrInvalidAmount)
	}

	a := domain.NewAuction(
		uuid.New(), cmd.ProductID, cmd.StoreID,
		cmd.StartPrice, cmd.MinIncrement, cmd.ReservePrice,
		cmd.StartAt, cmd.EndAt, cmd.AutoExtend, cmd.ExtendMinutes,
	)

	err := uc.ledger.WithinTx(ctx, func(tx domain.LedgerTx) error {
		return tx.SaveAuction(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("create auction: failed to save: %w", err)
	}

	log.Info("Auction created",
		zap.String("auctionID", a.ID.String()),
		zap.String("storeID", a.StoreID.String()),
		zap.Time("startAt", a.StartAt),
		zap.Time("endAt", a.EndAt),
	)
	return a, nil
}
