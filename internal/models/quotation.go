package models

import (
	"time"

	"gorm.io/gorm"
)

// Quotation statuses
const (
	QuotationStatusPending    = "pending"
	QuotationStatusInProgress = "in_progress"
	QuotationStatusCompleted  = "completed"
	QuotationStatusCancelled  = "cancelled"
)

// Quotation is a finished questionnaire. Service fields are a snapshot taken at submission time.
type Quotation struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	PhoneNumber string `json:"phone_number" gorm:"index;not null"` // correspondent identity
	ServiceID   int    `json:"service_id" gorm:"not null"`
	ServiceName string `json:"service_name" gorm:"not null"`

	// Client details
	ClientName  string `json:"client_name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`

	// Pricing snapshot
	PriceUSD      string `json:"price_usd"`
	PriceMXN      string `json:"price_mxn"`
	EstimatedTime string `json:"estimated_time"`

	Status string `json:"status" gorm:"default:'pending'"` // pending, in_progress, completed, cancelled

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate fills the default status
func (q *Quotation) BeforeCreate(tx *gorm.DB) error {
	q.ApplyDefaults(time.Now())
	return nil
}

// ApplyDefaults sets status and timestamps that the store did not receive
func (q *Quotation) ApplyDefaults(now time.Time) {
	if q.Status == "" {
		q.Status = QuotationStatusPending
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
}

// IsValidQuotationStatus reports whether status is one of the known statuses
func IsValidQuotationStatus(status string) bool {
	switch status {
	case QuotationStatusPending, QuotationStatusInProgress, QuotationStatusCompleted, QuotationStatusCancelled:
		return true
	}
	return false
}

// QuotationStatuses lists the valid statuses in display order
func QuotationStatuses() []string {
	return []string{QuotationStatusPending, QuotationStatusInProgress, QuotationStatusCompleted, QuotationStatusCancelled}
}
