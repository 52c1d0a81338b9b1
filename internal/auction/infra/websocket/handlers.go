package websocket

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/application"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/logger"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/websocket"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler processes inbound auction-channel messages from the hub.
type AuctionWSHandler struct {
	auctionService application.AuctionService
	hub            *websocket.Hub
}

func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// StateSnapshot builds the server_state frame sent to a client joining an
// auction channel.
func (h *AuctionWSHandler) StateSnapshot(ctx context.Context, auctionID uuid.UUID) ([]byte, error) {
	state, err := h.auctionService.GetAuctionState(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	msg := ServerStateMessage{BaseMessage: BaseMessage{Type: MessageTypeServerState}, Payload: state}
	return json.Marshal(msg)
}

// ListenForMessages consumes the hub's inbound channel until ctx is cancelled.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("Auction WS handler listening for inbound messages")
	for {
		select {
		case <-ctx.Done():
			log.Info("Auction WS handler stopped")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}

	if domain.ChannelName(bidMsg.Payload.AuctionID) != client.Channel {
		h.sendErrorToClient(client, "auction channel mismatch")
		return
	}

	result, err := h.auctionService.PlaceBid(ctx, application.PlaceBidCmd{
		AuctionID: bidMsg.Payload.AuctionID,
		BidderID:  bidMsg.Payload.BidderID,
		Amount:    bidMsg.Payload.Amount,
	})
	if err != nil {
		h.sendErrorToClient(client, err.Error())
		return
	}
	if !result.Accepted {
		h.sendRejectionToClient(client, &bidMsg, result)
		return
	}
	// accepted bids reach the client through the channel broadcast
}

func (h *AuctionWSHandler) sendRejectionToClient(client *websocket.Client, bidMsg *ClientBidMessage, result *application.BidResult) {
	msg := ServerRejectedMessage{BaseMessage: BaseMessage{Type: MessageTypeServerRejected}}
	msg.Payload.AuctionID = bidMsg.Payload.AuctionID
	msg.Payload.Reason = string(result.Reason)
	msg.Payload.Minimum = result.Minimum
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ServerRejectedMessage", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, rejection not delivered",
			zap.String("clientID", client.ID))
	}
}

func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Error = errorMessage
	data, err := json.Marshal(errMsg)
	if err != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full or closed, could not send error msg")
	}
}
