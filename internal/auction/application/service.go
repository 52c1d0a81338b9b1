package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

// AuctionService is the application interface of the auction module, consumed
// by the HTTP and WebSocket infra layers.
type AuctionService interface {
	PlaceBid(ctx context.Context, cmd PlaceBidCmd) (*BidResult, error)
	SetProxyCommitment(ctx context.Context, cmd SetProxyCmd) error
	CreateAuction(ctx context.Context, cmd CreateAuctionCmd) (*domain.Auction, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	GetBidsSince(ctx context.Context, auctionID uuid.UUID, since time.Time) ([]*domain.Bid, error)
	SweepLifecycle(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ArchiveAuction(ctx context.Context, auctionID uuid.UUID) error
}

type auctionService struct {
	placeBidUC      *PlaceBidUseCase
	setProxyUC      *SetProxyUseCase
	createAuctionUC *CreateAuctionUseCase
	getStateUC      *GetAuctionStateUseCase
	getBidsUC       *GetBidsSinceUseCase
	lifecycleUC     *LifecycleUseCase
}

func NewAuctionService(
	placeBidUC *PlaceBidUseCase,
	setProxyUC *SetProxyUseCase,
	createAuctionUC *CreateAuctionUseCase,
	getStateUC *GetAuctionStateUseCase,
	getBidsUC *GetBidsSinceUseCase,
	lifecycleUC *LifecycleUseCase,
) AuctionService {
	return &auctionService{
		placeBidUC:      placeBidUC,
		setProxyUC:      setProxyUC,
		createAuctionUC: createAuctionUC,
		getStateUC:      getStateUC,
		getBidsUC:       getBidsUC,
		lifecycleUC:     lifecycleUC,
	}
}

func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidCmd) (*BidResult, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) SetProxyCommitment(ctx context.Context, cmd SetProxyCmd) error {
	return as.setProxyUC.Execute(ctx, cmd)
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionCmd) (*domain.Auction, error) {
	return as.createAuctionUC.Execute(ctx, cmd)
}

func (as *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return as.getStateUC.Execute(ctx, auctionID)
}

func (as *auctionService) GetBidsSince(ctx context.Context, auctionID uuid.UUID, since time.Time) ([]*domain.Bid, error) {
	return as.getBidsUC.Execute(ctx, auctionID, since)
}

func (as *auctionService) SweepLifecycle(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return as.lifecycleUC.Sweep(ctx, now)
}

func (as *auctionService) ArchiveAuction(ctx context.Context, auctionID uuid.UUID) error {
	return as.lifecycleUC.Archive(ctx, auctionID)
}
