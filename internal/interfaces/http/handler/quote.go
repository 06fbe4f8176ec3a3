package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marketship/backend/internal/application/quote"
	"github.com/marketship/backend/internal/domain/shipping"
)

// QuoteHandler serves checkout rate quotes and the quote audit log.
type QuoteHandler struct {
	BaseHandler
	svc      *quote.Service
	audit    shipping.QuoteAuditStore
	failOpen bool
	logger   *zap.Logger
}

// NewQuoteHandler creates a quote handler. With failOpen set, upstream
// quote failures return an empty rate list instead of an error status, so
// checkout degrades to the storefront's own shipping options.
func NewQuoteHandler(svc *quote.Service, audit shipping.QuoteAuditStore, failOpen bool, logger *zap.Logger) *QuoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteHandler{svc: svc, audit: audit, failOpen: failOpen, logger: logger}
}

// RegisterRoutes registers quote routes
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	{
		quotes.POST("", h.Calculate)
		quotes.GET("/audit", h.ListAudit)
	}
}

// Calculate handles POST /quotes
func (h *QuoteHandler) Calculate(c *gin.Context) {
	var req quote.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid quote request: "+err.Error())
		return
	}

	result, err := h.svc.CalculateQuote(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("quote calculation failed",
			zap.String("request_id", getRequestID(c)),
			zap.Error(err))
		if !h.failOpen {
			h.UpstreamError(c, "rate calculation failed")
			return
		}
		result = &quote.Result{
			Rates: []quote.Rate{},
			Debug: quote.Debug{Reason: err.Error()},
		}
	}

	if result.Rates == nil {
		result.Rates = []quote.Rate{}
	}
	h.Success(c, result)
}

// ListAudit handles GET /quotes/audit
func (h *QuoteHandler) ListAudit(c *gin.Context) {
	limit := parseLimit(c, 50)

	entries, err := h.audit.List(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// parseLimit reads the limit query parameter, clamped to [1, 200].
func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > 200 {
		return 200
	}
	return limit
}
