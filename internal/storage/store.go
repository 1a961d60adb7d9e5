package storage

import (
	"context"
	"errors"

	"github.com/hembi12/whatbot/internal/models"
)

// ErrNotFound is returned when a quotation does not exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for storage operations
type Store interface {
	// Quotation operations
	CreateQuotation(ctx context.Context, q *models.Quotation) (*models.Quotation, error)
	GetQuotation(ctx context.Context, id uint) (*models.Quotation, error)
	GetAllQuotations(ctx context.Context) ([]*models.Quotation, error)
	GetQuotationsByPhone(ctx context.Context, phone string) ([]*models.Quotation, error)
	UpdateQuotationStatus(ctx context.Context, id uint, status string) error
	GetQuotationStats(ctx context.Context) (*models.QuotationStats, error)

	// Metric operations
	SaveMetric(ctx context.Context, m *models.Metric) error

	Ping(ctx context.Context) error
	Close() error
}
