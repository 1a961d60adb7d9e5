package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hembi12/whatbot/internal/services"
	"github.com/hembi12/whatbot/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version          string
	store            storage.Store
	sessions         *services.SessionManager
	twilioConfigured bool
	emailConfigured  bool
	started          time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, sessions *services.SessionManager, twilioConfigured, emailConfigured bool) *HealthHandler {
	return &HealthHandler{
		Version:          version,
		store:            store,
		sessions:         sessions,
		twilioConfigured: twilioConfigured,
		emailConfigured:  emailConfigured,
		started:          time.Now(),
	}
}

// Check returns the health status of the service. A failing storage ping answers 503.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "OK"
	storageStatus := "ok"
	code := fiber.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status = "DEGRADED"
		storageStatus = err.Error()
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":          status,
		"service":         "whatbot",
		"version":         h.Version,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds":  int64(time.Since(h.started).Seconds()),
		"storage":         storageStatus,
		"twilio":          h.twilioConfigured,
		"email":           h.emailConfigured,
		"active_sessions": h.sessions.Count(),
	})
}
