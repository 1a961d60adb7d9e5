package routes

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/handlers"
	"github.com/hembi12/whatbot/internal/middleware"
)

// Dependencies are the handlers and settings the routes are built from
type Dependencies struct {
	Config   *config.Config
	Version  string
	WhatsApp *handlers.WhatsAppHandler
	Admin    *handlers.AdminHandler
	Health   *handlers.HealthHandler
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "🤖 WhatsApp quotation bot",
			"company": cfg.Company.Name,
			"version": deps.Version,
			"endpoints": fiber.Map{
				"health":  "/health",
				"webhook": "/webhook",
				"metrics": "/metrics",
				"admin":   "/admin",
			},
		})
	})

	app.Get("/health", deps.Health.Check)

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// ========== WEBHOOK ROUTES ==========
	app.Get("/webhook", deps.WhatsApp.HandleVerify)

	if cfg.Twilio.DisableValidation {
		log.Println("⚠️  WhatsApp webhook validation DISABLED")
		app.Post("/webhook", deps.WhatsApp.HandleWebhook)
	} else {
		app.Post("/webhook", middleware.ValidateTwilioSignature(cfg.Twilio.AuthToken, cfg.Twilio.PublicBaseURL), deps.WhatsApp.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if !cfg.IsProduction() {
		app.Post("/test/whatsapp", deps.WhatsApp.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	if cfg.AdminUser != "" {
		admin.Use(basicauth.New(basicauth.Config{
			Users: map[string]string{cfg.AdminUser: cfg.AdminPassword},
			Realm: "whatbot admin",
		}))
	} else if cfg.IsProduction() {
		log.Println("⚠️  ADMIN_USER not set, admin routes are unauthenticated")
	}

	admin.Get("/sessions", deps.Admin.ListSessions)
	admin.Get("/sessions/stats", deps.Admin.SessionStats)
	admin.Get("/sessions/:identity", deps.Admin.GetSession)
	admin.Delete("/sessions/:identity", deps.Admin.DeleteSession)

	admin.Get("/quotations", deps.Admin.ListQuotations)
	admin.Get("/quotations/:id", deps.Admin.GetQuotation)
	admin.Patch("/quotations/:id/status", deps.Admin.UpdateQuotationStatus)
	admin.Get("/stats", deps.Admin.Stats)
	admin.Post("/test-email", deps.Admin.TestEmail)
}

// ErrorHandler renders fiber errors as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
