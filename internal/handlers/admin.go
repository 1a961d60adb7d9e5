package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hembi12/whatbot/internal/services"
)

// AdminHandler exposes quotations and live sessions to operators
type AdminHandler struct {
	sessions   *services.SessionManager
	quotations *services.QuotationService
	email      *services.EmailService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *services.SessionManager, quotations *services.QuotationService, email *services.EmailService) *AdminHandler {
	return &AdminHandler{
		sessions:   sessions,
		quotations: quotations,
		email:      email,
	}
}

// ListSessions returns every live session, optionally filtered by ?step=
func (h *AdminHandler) ListSessions(c *fiber.Ctx) error {
	if step := c.Query("step"); step != "" {
		if !services.Step(step).IsValid() {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown step %q", step))
		}
		sessions := h.sessions.ByStep(services.Step(step))
		return c.JSON(fiber.Map{
			"success":  true,
			"sessions": sessions,
			"count":    len(sessions),
		})
	}

	sessions := h.sessions.ListAll()
	return c.JSON(fiber.Map{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// SessionStats returns aggregate session counts
func (h *AdminHandler) SessionStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   h.sessions.Stats(),
	})
}

// GetSession returns one session without creating it
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	identity := c.Params("identity")

	info, ok := h.sessions.Info(identity)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"session": info,
	})
}

// DeleteSession ends a conversation from the admin side
func (h *AdminHandler) DeleteSession(c *fiber.Ctx) error {
	identity := c.Params("identity")

	if !h.sessions.Remove(identity) {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session removed",
	})
}

// ListQuotations returns all quotations, or those of ?phone=
func (h *AdminHandler) ListQuotations(c *fiber.Ctx) error {
	quotations, err := h.quotations.ListQuotations(c.UserContext(), c.Query("phone"))
	if err != nil {
		log.Printf("❌ Failed to list quotations: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch quotations")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"quotations": quotations,
		"count":      len(quotations),
	})
}

// GetQuotation returns one quotation
func (h *AdminHandler) GetQuotation(c *fiber.Ctx) error {
	id, err := parseQuotationID(c)
	if err != nil {
		return err
	}

	quotation, err := h.quotations.GetQuotation(c.UserContext(), id)
	if services.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Quotation not found")
	}
	if err != nil {
		log.Printf("❌ Failed to fetch quotation #%d: %v", id, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch quotation")
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"quotation": quotation,
	})
}

// UpdateQuotationStatus changes a quotation's status
func (h *AdminHandler) UpdateQuotationStatus(c *fiber.Ctx) error {
	id, err := parseQuotationID(c)
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"` // pending, in_progress, completed, cancelled
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err = h.quotations.UpdateStatus(c.UserContext(), id, req.Status)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case services.IsNotFound(err):
		return fiber.NewError(fiber.StatusNotFound, "Quotation not found")
	case err != nil:
		log.Printf("❌ Failed to update quotation #%d: %v", id, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to update quotation")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Quotation #%d updated to %s", id, req.Status),
	})
}

// Stats returns quotation and session statistics
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.quotations.Stats(c.UserContext())
	if err != nil {
		log.Printf("❌ Failed to compute stats: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stats")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"quotations": stats,
		"sessions":   h.sessions.Stats(),
	})
}

// TestEmail sends a test message to the requested address, or the team address
func (h *AdminHandler) TestEmail(c *fiber.Ctx) error {
	var req struct {
		To string `json:"to"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	if err := h.email.SendTestEmail(req.To); err != nil {
		log.Printf("❌ Test email failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Test email sent",
	})
}

func parseQuotationID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid quotation id")
	}
	return uint(id), nil
}
