package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/application"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/infra/repository/memory"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/config"
)

type noopPublisher struct{}

func (noopPublisher) Publish(uuid.UUID, domain.Event) {}

func newTestService(ledger domain.Ledger) application.AuctionService {
	locks := application.NewKeyedMutex()
	cfg := config.EngineConfig{
		EndingSoonWindow:   10 * time.Minute,
		LockAcquireTimeout: time.Second,
		CommitRetries:      3,
		SweepParallelism:   1,
	}
	return application.NewAuctionService(
		application.NewPlaceBidUseCase(ledger, locks, noopPublisher{}, cfg),
		application.NewSetProxyUseCase(ledger, locks),
		application.NewCreateAuctionUseCase(ledger),
		application.NewGetAuctionStateUseCase(ledger),
		application.NewGetBidsSinceUseCase(ledger),
		application.NewLifecycleUseCase(ledger, locks, noopPublisher{}, cfg),
	)
}

func TestStateSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := memory.NewLedger()
	a := &domain.Auction{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		StoreID:      uuid.New(),
		StartPrice:   decimal.NewFromInt(100),
		MinIncrement: decimal.NewFromInt(10),
		StartAt:      now.Add(-time.Hour),
		EndAt:        now.Add(time.Hour),
		Status:       domain.StatusRunning,
	}
	ledger.Seed(a)

	h := NewAuctionWSHandler(newTestService(ledger), nil)

	data, err := h.StateSnapshot(ctx, a.ID)
	assert.NoError(t, err)

	var msg ServerStateMessage
	assert.NoError(t, json.Unmarshal(data, &msg))
	check.Equal(t, MessageTypeServerState, msg.Type)
	assert.NotNil(t, msg.Payload)
	check.Equal(t, a.ID, msg.Payload.AuctionID)
	check.Equal(t, string(domain.StatusRunning), msg.Payload.Status)
	check.True(t, msg.Payload.MinimumBid.Equal(decimal.NewFromInt(100)))
}

func TestStateSnapshot_UnknownAuction(t *testing.T) {
	h := NewAuctionWSHandler(newTestService(memory.NewLedger()), nil)
	_, err := h.StateSnapshot(context.Background(), uuid.New())
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}
