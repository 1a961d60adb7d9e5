package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hembi12/whatbot/internal/catalog"
	"github.com/hembi12/whatbot/internal/metrics"
	"github.com/hembi12/whatbot/internal/models"
	"github.com/hembi12/whatbot/internal/storage"
)

// NotificationResult reports which quotation emails went out
type NotificationResult struct {
	QuotationID uint     `json:"quotation_id"`
	ClientSent  bool     `json:"client_email"`
	TeamSent    bool     `json:"team_email"`
	Errors      []string `json:"errors"`
}

// Err returns a NotificationError when any delivery failed
func (r NotificationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &NotificationError{QuotationID: r.QuotationID, Errors: r.Errors}
}

// Notifier delivers the client confirmation and team alert for a quotation
type Notifier interface {
	Notify(ctx context.Context, q *models.Quotation) NotificationResult
}

// NotificationDispatcher runs notifications in the background.
// The returned channel receives exactly one result and is then closed.
type NotificationDispatcher interface {
	Dispatch(q *models.Quotation) <-chan NotificationResult
}

// QuotationService validates, stores and announces quotations
type QuotationService struct {
	store      storage.Store
	catalog    *catalog.Catalog
	dispatcher NotificationDispatcher
	metrics    *metrics.Recorder
}

// NewQuotationService creates a quotation service. dispatcher may be nil.
func NewQuotationService(store storage.Store, cat *catalog.Catalog, dispatcher NotificationDispatcher, recorder *metrics.Recorder) *QuotationService {
	return &QuotationService{
		store:      store,
		catalog:    cat,
		dispatcher: dispatcher,
		metrics:    recorder,
	}
}

// Validate returns every problem with the collected data, in a fixed order
func (s *QuotationService) Validate(session Session) []string {
	var problems []string

	if !hasMinLength(session.Data[FieldName], MinNameLength) {
		problems = append(problems, "Nombre debe tener al menos 2 caracteres")
	}
	if !IsValidEmail(session.Data[FieldEmail]) {
		problems = append(problems, "Email inválido")
	}
	if !hasMinLength(session.Data[FieldCompany], MinCompanyLength) {
		problems = append(problems, "Nombre de empresa debe tener al menos 2 caracteres")
	}
	if !hasMinLength(session.Data[FieldPhone], MinPhoneLength) {
		problems = append(problems, "Teléfono debe tener al menos 8 caracteres")
	}
	if !hasMinLength(session.Data[FieldDescription], MinDescriptionLength) {
		problems = append(problems, "Descripción debe tener al menos 10 caracteres")
	}
	if _, ok := s.catalog.Lookup(session.SelectedService); !ok {
		problems = append(problems, "Servicio seleccionado inválido")
	}

	return problems
}

// BuildQuotation snapshots the session and catalog entry into a quotation record
func BuildQuotation(identity string, session Session, entry catalog.Entry) *models.Quotation {
	return &models.Quotation{
		PhoneNumber:   identity,
		ServiceID:     entry.ID,
		ServiceName:   entry.Title,
		ClientName:    strings.TrimSpace(session.Data[FieldName]),
		CompanyName:   strings.TrimSpace(session.Data[FieldCompany]),
		Email:         NormalizeEmail(session.Data[FieldEmail]),
		Phone:         strings.TrimSpace(session.Data[FieldPhone]),
		Description:   strings.TrimSpace(session.Data[FieldDescription]),
		PriceUSD:      entry.PriceUSD,
		PriceMXN:      entry.PriceMXN,
		EstimatedTime: entry.EstimatedTime,
		Status:        models.QuotationStatusPending,
	}
}

// Finalize validates the session, stores the quotation, records a
// quotation_completed metric and hands the quotation to the dispatcher.
// It returns a *ValidationError or *StorageError on failure. Metric and
// notification failures never fail the call.
func (s *QuotationService) Finalize(ctx context.Context, identity string, session Session) (*models.Quotation, error) {
	if problems := s.Validate(session); len(problems) > 0 {
		s.metrics.IncQuotation("invalid")
		return nil, &ValidationError{Problems: problems}
	}

	entry, _ := s.catalog.Lookup(session.SelectedService)

	saved, err := s.store.CreateQuotation(ctx, BuildQuotation(identity, session, entry))
	if err != nil {
		s.metrics.IncQuotation("storage_error")
		log.Printf("❌ Failed to store quotation for %s: %v", identity, err)
		return nil, &StorageError{Err: err}
	}
	s.metrics.IncQuotation("created")

	s.saveMetric(ctx, identity, models.MetricQuotationCompleted, map[string]any{
		"service_id":   entry.ID,
		"service_name": entry.Title,
	})

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(saved)
	}

	log.Printf("✅ Quotation #%d created for %s (%s)", saved.ID, identity, entry.Title)
	return saved, nil
}

func (s *QuotationService) saveMetric(ctx context.Context, identity, action string, data map[string]any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("⚠️ Failed to encode %s metric: %v", action, err)
		return
	}

	err = s.store.SaveMetric(ctx, &models.Metric{
		PhoneNumber: identity,
		Action:      action,
		Data:        string(payload),
	})
	if err != nil {
		log.Printf("⚠️ Failed to save %s metric: %v", action, err)
	}
}

// GetQuotation returns one quotation, or storage.ErrNotFound
func (s *QuotationService) GetQuotation(ctx context.Context, id uint) (*models.Quotation, error) {
	return s.store.GetQuotation(ctx, id)
}

// ListQuotations returns all quotations, or only those of phone when it is set
func (s *QuotationService) ListQuotations(ctx context.Context, phone string) ([]*models.Quotation, error) {
	if phone = strings.TrimSpace(phone); phone != "" {
		return s.store.GetQuotationsByPhone(ctx, phone)
	}
	return s.store.GetAllQuotations(ctx)
}

// UpdateStatus moves a quotation to a new status
func (s *QuotationService) UpdateStatus(ctx context.Context, id uint, status string) error {
	if !models.IsValidQuotationStatus(status) {
		return fmt.Errorf("%w: %q (valid: %s)", ErrInvalidStatus, status, strings.Join(models.QuotationStatuses(), ", "))
	}
	if err := s.store.UpdateQuotationStatus(ctx, id, status); err != nil {
		return err
	}
	log.Printf("✅ Quotation #%d status updated to %s", id, status)
	return nil
}

// Stats returns aggregate quotation counts
func (s *QuotationService) Stats(ctx context.Context) (*models.QuotationStats, error) {
	return s.store.GetQuotationStats(ctx)
}

// IsNotFound reports whether err means the quotation does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
