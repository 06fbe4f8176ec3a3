package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marketship/backend/internal/application/ordersync"
	"github.com/marketship/backend/internal/domain/shared"
	"github.com/marketship/backend/internal/domain/shipping"
	"github.com/marketship/backend/internal/infrastructure/config"
)

// syncRequest is the POST body for a sync run. Nil booleans fall back to
// the configured defaults.
type syncRequest struct {
	AutoFulfill    *bool                     `json:"auto_fulfill"`
	NotifyCustomer *bool                     `json:"notify_customer"`
	Force          bool                      `json:"force"`
	Override       *ordersync.ManualOverride `json:"override"`
}

// OrderHandler exposes order-sync runs, sync records and the pending list.
type OrderHandler struct {
	BaseHandler
	svc      *ordersync.Service
	defaults config.SyncConfig
	logger   *zap.Logger
}

// NewOrderHandler creates an order handler
func NewOrderHandler(svc *ordersync.Service, defaults config.SyncConfig, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{svc: svc, defaults: defaults, logger: logger}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("/pending", h.ListPending)
		orders.POST("/:id/sync", h.Sync)
		orders.GET("/:id/sync", h.GetRecord)
	}
}

// Sync handles POST /orders/:id/sync
func (h *OrderHandler) Sync(c *gin.Context) {
	orderID := c.Param("id")

	req := syncRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "invalid sync request: "+err.Error())
			return
		}
	}

	opts := ordersync.SyncOptions{
		AutoFulfill:    h.defaults.AutoFulfill,
		NotifyCustomer: h.defaults.NotifyCustomer,
		Force:          req.Force,
		Override:       req.Override,
	}
	if req.AutoFulfill != nil {
		opts.AutoFulfill = *req.AutoFulfill
	}
	if req.NotifyCustomer != nil {
		opts.NotifyCustomer = *req.NotifyCustomer
	}

	record, err := h.svc.SyncOrder(c.Request.Context(), orderID, opts)
	if err != nil {
		h.logger.Error("order sync failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		switch {
		case errors.Is(err, shared.ErrNotFound):
			h.NotFound(c, "order not found")
		case errors.Is(err, shipping.ErrNoDestination),
			errors.Is(err, shipping.ErrNoSellerGroups):
			h.UnprocessableEntity(c, err.Error())
		default:
			h.UpstreamError(c, "order sync failed")
		}
		return
	}
	h.Success(c, record)
}

// GetRecord handles GET /orders/:id/sync
func (h *OrderHandler) GetRecord(c *gin.Context) {
	record, err := h.svc.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "no sync record for order")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// ListPending handles GET /orders/pending
func (h *OrderHandler) ListPending(c *gin.Context) {
	limit := parseLimit(c, 50)

	summaries, err := h.svc.ListPendingOrders(c.Request.Context(), limit)
	if err != nil {
		h.UpstreamError(c, "listing open orders failed")
		return
	}
	h.Success(c, summaries)
}
