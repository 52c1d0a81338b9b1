package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/websocket"
	"go.uber.org/zap"
)

// HubPublisher adapts the shared hub to the engine's Publisher contract.
// Publishing never blocks; a dropped frame is recovered by the client through
// the bids-since catch-up read.
type HubPublisher struct {
	hub *websocket.Hub
}

func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(auctionID uuid.UUID, event domain.Event) {
	data, err := marshalEvent(event)
	if err != nil {
		log.Error("Failed to marshal broadcast event",
			zap.String("auctionID", auctionID.String()),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
		return
	}
	p.hub.BroadcastToChannel(domain.ChannelName(auctionID), data)
}

func marshalEvent(event domain.Event) ([]byte, error) {
	switch event.Kind {
	case domain.EventBidNew:
		msg := ServerBidNewMessage{BaseMessage: BaseMessage{Type: MessageTypeServerBidNew}}
		msg.Payload.AuctionID = event.AuctionID
		msg.Payload.BidID = event.BidID
		msg.Payload.BidderID = event.BidderID
		msg.Payload.Amount = event.Amount
		msg.Payload.IsProxy = event.IsProxy
		msg.Payload.CreatedAt = event.BidAt
		return json.Marshal(msg)

	case domain.EventAuctionExtended:
		msg := ServerExtendedMessage{BaseMessage: BaseMessage{Type: MessageTypeServerExtended}}
		msg.Payload.AuctionID = event.AuctionID
		msg.Payload.NewEndAt = event.NewEndAt
		return json.Marshal(msg)

	case domain.EventAuctionClosed:
		msg := ServerClosedMessage{BaseMessage: BaseMessage{Type: MessageTypeServerClosed}}
		msg.Payload.AuctionID = event.AuctionID
		msg.Payload.WinnerBidID = event.WinnerBidID
		msg.Payload.WinnerBidderID = event.WinnerBidderID
		msg.Payload.WinningAmount = event.WinningAmount
		return json.Marshal(msg)
	}
	return json.Marshal(BaseMessage{Type: MessageType(event.Kind)})
}
