package httpserver

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/logger"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/websocket"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type Server struct {
	app *fiber.App
}

func NewServer() *Server {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
		)
		return c.Next()
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	return &Server{app: app}
}

// App exposes the fiber instance so infra handlers can mount their routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// RegisterAuctionChannel mounts the per-auction WebSocket endpoint. Each
// connection is pinned to one auction's broadcast channel; snapshot provides
// the state frame delivered to the client right after it joins.
func (s *Server) RegisterAuctionChannel(ctx context.Context, hub *websocket.Hub, snapshot func(context.Context, uuid.UUID) ([]byte, error)) {
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws/auctions/:id", fiberws.New(func(conn *fiberws.Conn) {
		auctionID, err := uuid.Parse(conn.Params("id"))
		if err != nil {
			_ = conn.Close()
			return
		}
		client := &websocket.Client{
			Hub:     hub,
			Conn:    conn,
			Send:    make(chan []byte, 64),
			Channel: domain.ChannelName(auctionID),
			ID:      uuid.NewString(),
		}
		hub.RegisterClient(client)
		if snapshot != nil {
			if data, err := snapshot(ctx, auctionID); err == nil {
				client.Send <- data
			} else {
				log.Warn("Failed to build auction state snapshot",
					zap.String("auctionID", auctionID.String()),
					zap.Error(err),
				)
			}
		}
		go client.WritePump(ctx)
		client.ReadPump(ctx) // blocks until the peer disconnects
	}))
}

func (s *Server) Start(addr string) error {
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt)
		<-quit

		log.Info("Shutting down HTTP server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.app.ShutdownWithContext(ctx)
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
