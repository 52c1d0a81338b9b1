package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/application"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

// AuctionHandler exposes the auction core over REST. The surrounding
// marketplace (auth, vendor dashboards, order flows) calls these endpoints;
// identity is taken from the request body because authentication lives with
// that outer layer.
type AuctionHandler struct {
	auctionService application.AuctionService
}

func NewAuctionHandler(auctionService application.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// RegisterRoutes mounts the auction API under /api.
func (h *AuctionHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/auctions", h.createAuction)
	api.Get("/auctions/:id", h.getAuction)
	api.Post("/auctions/:id/bids", h.placeBid)
	api.Get("/auctions/:id/bids", h.getBidsSince)
	api.Put("/auctions/:id/proxy", h.setProxy)
	api.Post("/auctions/:id/archive", h.archiveAuction)
	api.Post("/lifecycle/sweep", h.sweep)
}

type createAuctionRequest struct {
	ProductID     uuid.UUID        `json:"product_id"`
	StoreID       uuid.UUID        `json:"store_id"`
	StartPrice    decimal.Decimal  `json:"start_price"`
	MinIncrement  decimal.Decimal  `json:"min_increment"`
	ReservePrice  *decimal.Decimal `json:"reserve_price,omitempty"`
	StartAt       time.Time        `json:"start_at"`
	EndAt         time.Time        `json:"end_at"`
	AutoExtend    bool             `json:"auto_extend"`
	ExtendMinutes int              `json:"extend_minutes"`
}

func (h *AuctionHandler) createAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	a, err := h.auctionService.CreateAuction(c.Context(), application.CreateAuctionCmd{
		ProductID:     req.ProductID,
		StoreID:       req.StoreID,
		StartPrice:    req.StartPrice,
		MinIncrement:  req.MinIncrement,
		ReservePrice:  req.ReservePrice,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		AutoExtend:    req.AutoExtend,
		ExtendMinutes: req.ExtendMinutes,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"auction_id": a.ID})
}

func (h *AuctionHandler) getAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	state, err := h.auctionService.GetAuctionState(c.Context(), auctionID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(state)
}

type placeBidRequest struct {
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
}

func (h *AuctionHandler) placeBid(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.auctionService.PlaceBid(c.Context(), application.PlaceBidCmd{
		AuctionID: auctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return mapError(err)
	}
	if !result.Accepted {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"accepted": false,
			"reason":   result.Reason,
			"minimum":  result.Minimum,
		})
	}

	resp := fiber.Map{
		"accepted":     true,
		"bid_id":       result.Bid.ID,
		"amount":       result.Bid.Amount,
		"cascade_bids": len(result.CascadeBids),
	}
	if result.NewEndAt != nil {
		resp["new_end_at"] = result.NewEndAt
	}
	return c.JSON(resp)
}

func (h *AuctionHandler) getBidsSince(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	since := time.Time{}
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "since must be RFC3339")
		}
	}
	bids, err := h.auctionService.GetBidsSince(c.Context(), auctionID, since)
	if err != nil {
		return mapError(err)
	}

	out := make([]fiber.Map, 0, len(bids))
	for _, b := range bids {
		out = append(out, fiber.Map{
			"bid_id":     b.ID,
			"bidder_id":  b.BidderID,
			"amount":     b.Amount,
			"is_proxy":   b.IsProxy,
			"created_at": b.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"auction_id": auctionID, "bids": out})
}

type setProxyRequest struct {
	BidderID  uuid.UUID       `json:"bidder_id"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

func (h *AuctionHandler) setProxy(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	var req setProxyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	err = h.auctionService.SetProxyCommitment(c.Context(), application.SetProxyCmd{
		AuctionID: auctionID,
		BidderID:  req.BidderID,
		MaxAmount: req.MaxAmount,
	})
	if err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) archiveAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	if err := h.auctionService.ArchiveAuction(c.Context(), auctionID); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) sweep(c *fiber.Ctx) error {
	transitioned, err := h.auctionService.SweepLifecycle(c.Context(), time.Now().UTC())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"transitioned": transitioned})
}

func mapError(err error) error {
	if rej, ok := domain.AsRejection(err); ok {
		return fiber.NewError(fiber.StatusUnprocessableEntity, rej.Error())
	}
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTransient):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
