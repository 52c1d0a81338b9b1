package websocket

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Hub keeps the client registry and fans broadcast messages out per channel.
// Channels are the deterministic per-auction names ("auction:<id>").
type Hub struct {
	// Registered clients, grouped by channel name.
	clients map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	// InboundMessages carries client messages to module-specific handlers.
	InboundMessages chan *ClientMessage
}

// Client is one WebSocket subscriber pinned to a single channel.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Channel string
	ID      string
}

type Message struct {
	Channel string
	Data    []byte
}

// ClientMessage wraps an inbound payload with the client that sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, 256),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, 256),
	}
}

// Run starts the hub loop; it owns the clients map exclusively.
func (h *Hub) Run(ctx context.Context) {
	log.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket hub shutting down")
			return

		case client := <-h.register:
			if _, ok := h.clients[client.Channel]; !ok {
				h.clients[client.Channel] = make(map[*Client]bool)
			}
			h.clients[client.Channel][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("channel", client.Channel),
			)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.Channel]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.Channel)
					}
					log.Info("Client unregistered",
						zap.String("clientID", client.ID),
						zap.String("channel", client.Channel),
					)
				}
			}

		case message := <-h.broadcast:
			for client := range h.clients[message.Channel] {
				select {
				case client.Send <- message.Data:
				default:
					// client not draining, drop it
					close(client.Send)
					delete(h.clients[message.Channel], client)
					log.Warn("Slow client dropped",
						zap.String("clientID", client.ID),
						zap.String("channel", message.Channel),
					)
				}
			}
		}
	}
}

// RegisterClient queues a client for registration.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel full, closing client",
			zap.String("clientID", client.ID),
			zap.String("channel", client.Channel),
		)
		_ = client.Conn.Close()
	}
}

// UnregisterClient queues a client for removal.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
	}
}

// BroadcastToChannel sends data to every client on the channel. Fire and
// forget: a full broadcast queue drops the message, subscribers reconcile
// through the bids-since read.
func (h *Hub) BroadcastToChannel(channel string, data []byte) {
	select {
	case h.broadcast <- &Message{Channel: channel, Data: data}:
	default:
		log.Error("Broadcast channel full, message dropped", zap.String("channel", channel))
	}
}

// ReadPump reads client messages and forwards them to InboundMessages.
// Runs as one goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("channel", c.Channel),
					zap.Error(err),
				)
			}
			break
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Inbound queue full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("channel", c.Channel),
			)
		}
	}
}

// WritePump pumps messages from the hub to the connection and keeps the peer
// alive with pings. The single writer for this connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("WebSocket write error",
					zap.String("clientID", c.ID),
					zap.String("channel", c.Channel),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
