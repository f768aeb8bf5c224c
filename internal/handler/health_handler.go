package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/easyrag/easyrag/internal/service"
)

// HealthHandler reports service and vector index health.
type HealthHandler struct {
	store *service.VectorStoreService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store *service.VectorStoreService) *HealthHandler {
	return &HealthHandler{store: store}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health never fails the request; an unreachable index is reported in
// the body.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	status := "healthy"
	connected := true
	var count uint64

	stats, err := h.store.Stats(c.Context())
	if err != nil {
		status = "unhealthy"
		connected = false
	} else {
		count = stats.PointCount
	}

	return c.JSON(fiber.Map{
		"status":           status,
		"qdrant_connected": connected,
		"collection_name":  h.store.CollectionName(),
		"documents_count":  count,
	})
}
