package main

import (
	"context"
	"time"

	"github.com/yahya159/bidinsouk-sub004/internal/auction/application"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/infra/httpapi"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/infra/repository/postgres"
	auctionws "github.com/yahya159/bidinsouk-sub004/internal/auction/infra/websocket"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/config"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/db"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/db/migrations"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/httpserver"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/logger"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/websocket"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting bidinsouk auction core...")

	cfg, err := config.Load("config.toml")
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := migrations.RunMigrations(cfg.DB.DSN()); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.GetPostgresDBPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer pool.Close()

	ledger := postgres.NewLedger(pool)
	locks := application.NewKeyedMutex()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	publisher := auctionws.NewHubPublisher(hub)

	service := application.NewAuctionService(
		application.NewPlaceBidUseCase(ledger, locks, publisher, cfg.Engine),
		application.NewSetProxyUseCase(ledger, locks),
		application.NewCreateAuctionUseCase(ledger),
		application.NewGetAuctionStateUseCase(ledger),
		application.NewGetBidsSinceUseCase(ledger),
		application.NewLifecycleUseCase(ledger, locks, publisher, cfg.Engine),
	)

	wsHandler := auctionws.NewAuctionWSHandler(service, hub)
	go wsHandler.ListenForMessages(ctx)

	// stand-in for the external scheduler driving the lifecycle sweep
	go func() {
		ticker := time.NewTicker(cfg.Engine.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				transitioned, err := service.SweepLifecycle(ctx, now.UTC())
				if err != nil {
					log.Error("Lifecycle sweep failed", zap.Error(err))
					continue
				}
				if len(transitioned) > 0 {
					log.Info("Lifecycle sweep applied transitions", zap.Int("count", len(transitioned)))
				}
			}
		}
	}()

	server := httpserver.NewServer()
	httpapi.NewAuctionHandler(service).RegisterRoutes(server.App())
	server.RegisterAuctionChannel(ctx, hub, wsHandler.StateSnapshot)

	if err := server.Start(cfg.Server.Addr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
