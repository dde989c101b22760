package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/catalogsite/backend/internal/interfaces/http/dto"
)

// HealthHandler answers liveness probes
type HealthHandler struct {
	BaseHandler
	storage string
}

// NewHealthHandler creates a HealthHandler reporting the storage driver in use
func NewHealthHandler(storageDriver string) *HealthHandler {
	return &HealthHandler{storage: storageDriver}
}

// Health reports liveness only; it does not touch storage
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, dto.HealthResponse{Status: "ok", Storage: h.storage})
}
