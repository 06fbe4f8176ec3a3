package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketship/backend/internal/interfaces/http/dto"
)

// Pinger reports database connectivity.
type Pinger interface {
	Ping() error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	BaseHandler
	db      Pinger
	name    string
	version string
}

// NewHealthHandler creates a health handler
func NewHealthHandler(db Pinger, name, version string) *HealthHandler {
	return &HealthHandler{db: db, name: name, version: version}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status":  "ok",
		"service": h.name,
		"version": h.version,
	})
}

// Ready handles GET /ready, failing when the database is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "database unreachable")
			return
		}
	}
	h.Success(c, gin.H{"status": "ready"})
}
