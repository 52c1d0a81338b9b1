package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/infra/repository/memory"
)

func validCreateCmd(now time.Time) CreateAuctionCmd {
	return CreateAuctionCmd{
		ProductID:    uuid.New(),
		StoreID:      uuid.New(),
		StartPrice:   dec("100"),
		MinIncrement: dec("10"),
		StartAt:      now.Add(time.Hour),
		EndAt:        now.Add(25 * time.Hour),
	}
}

func TestCreateAuction_Persists(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	uc := NewCreateAuctionUseCase(ledger)

	a, err := uc.Execute(ctx, validCreateCmd(now))
	assert.NoError(t, err)
	check.Equal(t, domain.StatusScheduled, a.Status)
	check.Nil(t, a.CurrentBid)

	stored, err := ledger.GetAuction(ctx, a.ID)
	assert.NoError(t, err)
	check.Equal(t, a.ID, stored.ID)
}

func TestCreateAuction_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	uc := NewCreateAuctionUseCase(memory.NewLedger())

	cmd := validCreateCmd(now)
	cmd.MinIncrement = dec("0")
	_, err := uc.Execute(ctx, cmd)
	check.True(t, errors.Is(err, domain.ErrInvalidAmount))

	cmd = validCreateCmd(now)
	reserve := dec("-1")
	cmd.ReservePrice = &reserve
	_, err = uc.Execute(ctx, cmd)
	check.True(t, errors.Is(err, domain.ErrInvalidAmount))

	cmd = validCreateCmd(now)
	cmd.EndAt = cmd.StartAt
	_, err = uc.Execute(ctx, cmd)
	check.True(t, errors.Is(err, domain.ErrInvalidTransition))

	cmd = validCreateCmd(now)
	cmd.AutoExtend = true
	cmd.ExtendMinutes = 0
	_, err = uc.Execute(ctx, cmd)
	check.True(t, errors.Is(err, domain.ErrInvalidAmount))
}

func TestGetAuctionState_HidesReservePrice(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := runningAuction(now)
	reserve := dec("300")
	a.ReservePrice = &reserve
	ledger.Seed(a)

	uc := NewGetAuctionStateUseCase(ledger)
	dto, err := uc.Execute(ctx, a.ID)
	assert.NoError(t, err)

	check.False(t, dto.ReserveMet)
	check.True(t, dto.MinimumBid.Equal(dec("100")))
	check.Nil(t, dto.CurrentBid)

	engine, _ := newEngine(ledger)
	result, err := engine.Execute(ctx, PlaceBidCmd{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("350")})
	assert.NoError(t, err)
	assert.True(t, result.Accepted)

	dto, err = uc.Execute(ctx, a.ID)
	assert.NoError(t, err)
	check.True(t, dto.ReserveMet)
	check.True(t, dto.MinimumBid.Equal(dec("360")))
}
