package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hembi12/whatbot/internal/models"
)

// MemoryStore holds all data in memory, for tests and local runs
type MemoryStore struct {
	quotations map[uint]*models.Quotation
	metrics    []*models.Metric

	// Mutexes for thread safety
	quotationMu sync.RWMutex
	metricMu    sync.Mutex

	// Counters for ID generation
	quotationCounter uint
	metricCounter    uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotations: make(map[uint]*models.Quotation),
	}
}

// Quotation operations
func (m *MemoryStore) CreateQuotation(ctx context.Context, q *models.Quotation) (*models.Quotation, error) {
	m.quotationMu.Lock()
	defer m.quotationMu.Unlock()

	m.quotationCounter++
	stored := *q
	stored.ID = m.quotationCounter
	stored.ApplyDefaults(time.Now())

	m.quotations[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *MemoryStore) GetQuotation(ctx context.Context, id uint) (*models.Quotation, error) {
	m.quotationMu.RLock()
	defer m.quotationMu.RUnlock()

	q, exists := m.quotations[id]
	if !exists {
		return nil, fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	out := *q
	return &out, nil
}

func (m *MemoryStore) GetAllQuotations(ctx context.Context) ([]*models.Quotation, error) {
	return m.filterQuotations(func(*models.Quotation) bool { return true }), nil
}

func (m *MemoryStore) GetQuotationsByPhone(ctx context.Context, phone string) ([]*models.Quotation, error) {
	return m.filterQuotations(func(q *models.Quotation) bool { return q.PhoneNumber == phone }), nil
}

func (m *MemoryStore) UpdateQuotationStatus(ctx context.Context, id uint, status string) error {
	m.quotationMu.Lock()
	defer m.quotationMu.Unlock()

	q, exists := m.quotations[id]
	if !exists {
		return fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	q.Status = status
	q.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) GetQuotationStats(ctx context.Context) (*models.QuotationStats, error) {
	all := m.filterQuotations(func(*models.Quotation) bool { return true })

	byService := map[string]int64{}
	byStatus := map[string]int64{}
	for _, q := range all {
		byService[q.ServiceName]++
		byStatus[q.Status]++
	}

	stats := &models.QuotationStats{
		TotalQuotations: int64(len(all)),
		ByService:       sortedCounts(byService),
		ByStatus:        sortedCounts(byStatus),
	}
	if len(all) > models.RecentQuotationsLimit {
		all = all[:models.RecentQuotationsLimit]
	}
	stats.Recent = all

	return stats, nil
}

// Metric operations
func (m *MemoryStore) SaveMetric(ctx context.Context, metric *models.Metric) error {
	m.metricMu.Lock()
	defer m.metricMu.Unlock()

	m.metricCounter++
	stored := *metric
	stored.ID = m.metricCounter
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.metrics = append(m.metrics, &stored)
	return nil
}

// Metrics returns a copy of the saved metrics
func (m *MemoryStore) Metrics() []models.Metric {
	m.metricMu.Lock()
	defer m.metricMu.Unlock()

	out := make([]models.Metric, 0, len(m.metrics))
	for _, metric := range m.metrics {
		out = append(out, *metric)
	}
	return out
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// filterQuotations returns copies, newest first
func (m *MemoryStore) filterQuotations(keep func(*models.Quotation) bool) []*models.Quotation {
	m.quotationMu.RLock()
	defer m.quotationMu.RUnlock()

	var result []*models.Quotation
	for _, q := range m.quotations {
		if keep(q) {
			out := *q
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// sortedCounts orders by count desc, then label
func sortedCounts(counts map[string]int64) []models.CountByLabel {
	rows := make([]models.CountByLabel, 0, len(counts))
	for label, n := range counts {
		rows = append(rows, models.CountByLabel{Label: label, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
