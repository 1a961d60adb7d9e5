package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hembi12/whatbot/internal/models"
)

// DatabaseStore persists quotations in PostgreSQL through gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open gorm connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// AutoMigrate creates or updates the tables used by the store
func (d *DatabaseStore) AutoMigrate() error {
	return d.db.AutoMigrate(
		&models.Quotation{},
		&models.Metric{},
	)
}

func (d *DatabaseStore) CreateQuotation(ctx context.Context, q *models.Quotation) (*models.Quotation, error) {
	stored := *q
	if err := d.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, fmt.Errorf("insert quotation: %w", err)
	}
	return &stored, nil
}

func (d *DatabaseStore) GetQuotation(ctx context.Context, id uint) (*models.Quotation, error) {
	var q models.Quotation
	err := d.db.WithContext(ctx).First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quotation %d: %w", id, err)
	}
	return &q, nil
}

func (d *DatabaseStore) GetAllQuotations(ctx context.Context) ([]*models.Quotation, error) {
	var quotations []*models.Quotation
	if err := d.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&quotations).Error; err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	return quotations, nil
}

func (d *DatabaseStore) GetQuotationsByPhone(ctx context.Context, phone string) ([]*models.Quotation, error) {
	var quotations []*models.Quotation
	err := d.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC, id DESC").
		Find(&quotations).Error
	if err != nil {
		return nil, fmt.Errorf("list quotations for %s: %w", phone, err)
	}
	return quotations, nil
}

func (d *DatabaseStore) UpdateQuotationStatus(ctx context.Context, id uint, status string) error {
	result := d.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("update quotation %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	return nil
}

func (d *DatabaseStore) GetQuotationStats(ctx context.Context) (*models.QuotationStats, error) {
	db := d.db.WithContext(ctx)
	stats := &models.QuotationStats{}

	if err := db.Model(&models.Quotation{}).Count(&stats.TotalQuotations).Error; err != nil {
		return nil, fmt.Errorf("count quotations: %w", err)
	}

	err := db.Model(&models.Quotation{}).
		Select("service_name AS label, COUNT(*) AS count").
		Group("service_name").
		Order("count DESC, label").
		Scan(&stats.ByService).Error
	if err != nil {
		return nil, fmt.Errorf("count quotations by service: %w", err)
	}

	err = db.Model(&models.Quotation{}).
		Select("status AS label, COUNT(*) AS count").
		Group("status").
		Order("count DESC, label").
		Scan(&stats.ByStatus).Error
	if err != nil {
		return nil, fmt.Errorf("count quotations by status: %w", err)
	}

	err = db.Order("created_at DESC, id DESC").Limit(models.RecentQuotationsLimit).Find(&stats.Recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent quotations: %w", err)
	}

	return stats, nil
}

func (d *DatabaseStore) SaveMetric(ctx context.Context, m *models.Metric) error {
	stored := *m
	if err := d.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (d *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *DatabaseStore) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
