package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/hembi12/whatbot/internal/services"
)

const apologyMessage = "Lo siento, ha ocurrido un error temporal. Por favor, intenta nuevamente en unos momentos."

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	conversation *services.ConversationService
	sender       services.MessageSender
	production   bool
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(conversation *services.ConversationService, sender services.MessageSender, production bool) *WhatsAppHandler {
	return &WhatsAppHandler{
		conversation: conversation,
		sender:       sender,
		production:   production,
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid  string `form:"MessageSid"`
	AccountSid  string `form:"AccountSid"`
	From        string `form:"From"` // WhatsApp number (whatsapp:+5215512345678)
	To          string `form:"To"`   // Your Twilio number
	Body        string `form:"Body"` // Message text
	NumMedia    string `form:"NumMedia"`
	ProfileName string `form:"ProfileName"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Datos inválidos")
	}

	if !h.production {
		log.Printf("📦 Webhook payload: %+v", payload)
	}

	response, err := h.conversation.ProcessMessage(c.UserContext(), payload.From, payload.Body)
	if errors.Is(err, services.ErrInvalidInput) {
		log.Printf("❌ Invalid webhook input from %q", payload.From)
		return c.Status(fiber.StatusBadRequest).SendString("Datos inválidos")
	}
	if err != nil {
		log.Printf("❌ Error processing message: %v", err)
		return h.fail(c, payload.From)
	}

	if err := h.sender.SendWhatsAppMessage(payload.From, response); err != nil {
		return h.fail(c, payload.From)
	}

	log.Printf("✅ Reply sent to %s", payload.From)
	return c.Status(fiber.StatusOK).SendString("OK")
}

// fail apologises to the sender in production and answers 500
func (h *WhatsAppHandler) fail(c *fiber.Ctx, from string) error {
	if h.production {
		if err := h.sender.SendWhatsAppMessage(from, apologyMessage); err != nil {
			log.Printf("❌ Error sending apology to %s: %v", from, err)
		}
	}
	return c.Status(fiber.StatusInternalServerError).SendString("Error interno del servidor")
}

// HandleVerify answers GET probes on the webhook URL
func (h *WhatsAppHandler) HandleVerify(c *fiber.Ctx) error {
	return c.SendString("Webhook de WhatsApp funcionando correctamente ✅")
}

// For testing without Twilio
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook runs a message through the conversation and returns the reply without sending it
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	response, err := h.conversation.ProcessMessage(c.UserContext(), payload.From, payload.Message)
	if errors.Is(err, services.ErrInvalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and message are required",
		})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"from":     payload.From,
		"message":  payload.Message,
		"response": response,
	})
}
