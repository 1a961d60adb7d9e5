package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hembi12/whatbot/database"
	"github.com/hembi12/whatbot/internal/catalog"
	"github.com/hembi12/whatbot/internal/config"
	"github.com/hembi12/whatbot/internal/handlers"
	"github.com/hembi12/whatbot/internal/jobs"
	"github.com/hembi12/whatbot/internal/metrics"
	"github.com/hembi12/whatbot/internal/routes"
	"github.com/hembi12/whatbot/internal/services"
	"github.com/hembi12/whatbot/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load service catalog:", err)
	}
	log.Printf("📋 Catalog: %d services", cat.Len())

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	sessions := services.NewSessionManager()
	metrics.RegisterActiveSessions(reg, sessions.Count)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emailService := services.NewEmailService(cfg.Email, cfg.Company)
	if !emailService.Configured() {
		log.Println("⚠️  SMTP not configured - quotation emails will fail and be logged")
	}

	notificationJob := jobs.NewNotificationJob(store, emailService, recorder, cfg.NotificationQueueSize, cfg.NotificationWorkers)
	notificationJob.Start(ctx)

	quotations := services.NewQuotationService(store, cat, notificationJob, recorder)
	replies := services.NewReplyBuilder(cat, cfg.Company)
	conversation := services.NewConversationService(sessions, cat, replies, quotations, recorder)

	var sender services.MessageSender = services.LogSender{}
	if cfg.TwilioConfigured() {
		twilioService, err := services.NewTwilioService(cfg.Twilio, recorder)
		if err != nil {
			log.Fatal("Failed to initialize Twilio service:", err)
		}
		sender = twilioService
		log.Println("✅ Twilio service initialized")
	} else {
		log.Println("⚠️  Twilio credentials not found - replies will only be logged")
	}

	cleanupJob := jobs.NewSessionCleanupJob(sessions, cfg.SessionSweepInterval, cfg.SessionMaxAge, recorder)
	cleanupJob.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "whatbot v" + version,
		ErrorHandler: routes.ErrorHandler,
		UnescapePath: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Config:   cfg,
		Version:  version,
		WhatsApp: handlers.NewWhatsAppHandler(conversation, sender, cfg.IsProduction()),
		Admin:    handlers.NewAdminHandler(sessions, quotations, emailService),
		Health:   handlers.NewHealthHandler(version, store, sessions, cfg.TwilioConfigured(), emailService.Configured()),
		Gatherer: reg,
	})

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("🛑 Gracefully shutting down...")
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 whatbot starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", cfg.StorageBackend)
	log.Printf("🌍 Environment: %s", cfg.Environment)
	log.Printf("📱 WhatsApp: %s", configuredStatus(cfg.TwilioConfigured()))
	log.Printf("📧 Email: %s", configuredStatus(emailService.Configured()))
	log.Println("========================================")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Server stopped: %v", err)
	}

	log.Println("⏹️  Stopping background jobs...")
	cleanupJob.Stop()
	notificationJob.Stop()
	cancel()

	if err := store.Close(); err != nil {
		log.Printf("⚠️  Failed to close storage: %v", err)
	}
	log.Println("👋 Bye")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Println("⚠️  Using in-memory storage (not for production!)")
		return storage.NewMemoryStore(), nil

	case config.StoragePostgres:
		log.Println("📦 Connecting to PostgreSQL database...")
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, err
		}
		store := storage.NewDatabaseStore(db)

		log.Println("🔄 Running database migrations...")
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		log.Println("✅ Database migrations completed!")
		return store, nil

	default:
		log.Printf("📦 Opening SQLite database at %s", cfg.SQLitePath)
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "Configured"
	}
	return "Not configured"
}
