// Package config reads the bot configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	StorageBackend string
	Database       DatabaseConfig
	SQLitePath     string

	Twilio  TwilioConfig
	Email   EmailConfig
	Company CompanyConfig

	CatalogPath string

	SessionMaxAge        time.Duration
	SessionSweepInterval time.Duration

	NotificationQueueSize int
	NotificationWorkers   int

	AdminUser     string
	AdminPassword string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	User                   string
	Password               string
	Name                   string
	Host                   string
	Port                   string
	InstanceConnectionName string // Cloud SQL socket, takes precedence over Host
}

// TwilioConfig holds WhatsApp credentials
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	WhatsAppFrom      string // Format: "whatsapp:+14155238886"
	DisableValidation bool
	PublicBaseURL     string // used to rebuild the signed URL behind proxies
}

// EmailConfig holds SMTP settings for quotation notifications
type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	From     string
	Password string
	TeamTo   string
}

// CompanyConfig is shown to users in replies and emails
type CompanyConfig struct {
	Name         string
	Website      string
	Social       string
	ContactEmail string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	emailFrom := getEnv("EMAIL_FROM", "")

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageSQLite)),
		Database: DatabaseConfig{
			User:                   getEnv("DB_USER", "postgres"),
			Password:               getEnv("DB_PASS", ""),
			Name:                   getEnv("DB_NAME", "whatbot"),
			Host:                   getEnv("DB_HOST", "localhost"),
			Port:                   getEnv("DB_PORT", "5432"),
			InstanceConnectionName: getEnv("INSTANCE_CONNECTION_NAME", ""),
		},
		SQLitePath: getEnv("SQLITE_PATH", "./data/quotations.db"),
		Twilio: TwilioConfig{
			AccountSID:        getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:         getEnv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppFrom:      getEnv("TWILIO_WHATSAPP_FROM", ""),
			DisableValidation: getEnvBool("DISABLE_WEBHOOK_VALIDATION", false),
			PublicBaseURL:     strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", ""), "/"),
		},
		Email: EmailConfig{
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnvInt("SMTP_PORT", 587),
			From:     emailFrom,
			Password: getEnv("EMAIL_PASSWORD", ""),
			TeamTo:   getEnv("EMAIL_TO_TEAM", ""),
		},
		Company: CompanyConfig{
			Name:         getEnv("COMPANY_NAME", "Martil.dev"),
			Website:      getEnv("COMPANY_WEBSITE", "www.tuempresa.com"),
			Social:       getEnv("COMPANY_SOCIAL", "tuempresa"),
			ContactEmail: getEnv("CONTACT_EMAIL", firstNonEmpty(emailFrom, "info@tuempresa.com")),
		},
		CatalogPath:           getEnv("CATALOG_PATH", ""),
		SessionMaxAge:         getEnvDuration("SESSION_MAX_AGE", 24*time.Hour),
		SessionSweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		NotificationQueueSize: getEnvInt("NOTIFICATION_QUEUE_SIZE", 100),
		NotificationWorkers:   getEnvInt("NOTIFICATION_WORKERS", 2),
		AdminUser:             getEnv("ADMIN_USER", ""),
		AdminPassword:         getEnv("ADMIN_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StorageBackend {
	case StoragePostgres, StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty with sqlite storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be > 0")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.NotificationQueueSize <= 0 {
		return fmt.Errorf("NOTIFICATION_QUEUE_SIZE must be > 0")
	}
	if c.NotificationWorkers <= 0 {
		return fmt.Errorf("NOTIFICATION_WORKERS must be > 0")
	}
	if (c.AdminUser == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USER and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// IsProduction reports whether the bot runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TwilioConfigured reports whether outbound WhatsApp can be used
func (c *Config) TwilioConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.WhatsAppFrom != ""
}

// EmailConfigured reports whether SMTP delivery can be attempted
func (c *Config) EmailConfigured() bool {
	return c.Email.SMTPHost != "" && c.Email.From != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90m") or a bare number of hours ("24")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if hours, err := strconv.Atoi(value); err == nil {
		return time.Duration(hours) * time.Hour
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
