package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marketship/backend/internal/application/resolver"
	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shared"
)

// originRequest is the PUT body for an operator-supplied origin.
type originRequest struct {
	PostalCode   string   `json:"postal_code" binding:"required,postal_id"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Country      string   `json:"country"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	ContactName  string   `json:"contact_name"`
	ContactPhone string   `json:"contact_phone"`
	ContactEmail string   `json:"contact_email"`
}

// OriginHandler exposes the persisted seller-origin store: operator writes,
// listing, and the directory-driven sync webhook.
type OriginHandler struct {
	BaseHandler
	resolver    *resolver.Resolver
	origins     seller.OriginStore
	webhookAuth gin.HandlerFunc
	logger      *zap.Logger
}

// NewOriginHandler creates an origin handler. webhookAuth guards the sync
// webhook route; pass nil to leave it open.
func NewOriginHandler(res *resolver.Resolver, origins seller.OriginStore,
	webhookAuth gin.HandlerFunc, logger *zap.Logger) *OriginHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OriginHandler{resolver: res, origins: origins, webhookAuth: webhookAuth, logger: logger}
}

// RegisterRoutes registers origin routes
func (h *OriginHandler) RegisterRoutes(rg *gin.RouterGroup) {
	origins := rg.Group("/origins")
	{
		origins.GET("", h.List)
		origins.PUT("/:sellerId", h.Put)
		if h.webhookAuth != nil {
			origins.POST("/:sellerId/sync", h.webhookAuth, h.Sync)
		} else {
			origins.POST("/:sellerId/sync", h.Sync)
		}
	}
}

// List handles GET /origins
func (h *OriginHandler) List(c *gin.Context) {
	limit := parseLimit(c, 100)

	origins, err := h.origins.List(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, origins)
}

// Put handles PUT /origins/:sellerId
func (h *OriginHandler) Put(c *gin.Context) {
	sellerID := c.Param("sellerId")

	var req originRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid origin payload: "+err.Error())
		return
	}

	origin := &seller.SellerOrigin{
		SellerID:     sellerID,
		PostalCode:   req.PostalCode,
		City:         req.City,
		State:        req.State,
		Country:      req.Country,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
	}
	if err := h.resolver.PutOrigin(c.Request.Context(), origin); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("seller origin saved",
		zap.String("seller_id", sellerID),
		zap.String("postal_code", origin.PostalCode))
	h.Success(c, origin)
}

// Sync handles POST /origins/:sellerId/sync, the directory webhook that
// refreshes a seller's persisted origin from the live directory.
func (h *OriginHandler) Sync(c *gin.Context) {
	sellerID := c.Param("sellerId")

	origin, err := h.resolver.SyncOrigin(c.Request.Context(), sellerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "seller origin not found in directory")
			return
		}
		h.UpstreamError(c, "origin sync failed")
		return
	}
	h.Success(c, origin)
}
