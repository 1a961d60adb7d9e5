package models

import "time"

// Metric actions
const (
	MetricQuotationCompleted = "quotation_completed"
	MetricEmailsSent         = "emails_sent"
)

// Metric is an audit event tied to a correspondent
type Metric struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PhoneNumber string    `json:"phone_number" gorm:"index;not null"`
	Action      string    `json:"action" gorm:"index;not null"`
	Data        string    `json:"data"` // JSON payload
	CreatedAt   time.Time `json:"created_at"`
}
