package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hembi12/whatbot/internal/models"
)

// SQLiteStore persists quotations in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS quotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone_number TEXT NOT NULL,
		service_id INTEGER NOT NULL,
		service_name TEXT NOT NULL,
		client_name TEXT,
		company_name TEXT,
		email TEXT,
		phone TEXT,
		description TEXT,
		price_usd TEXT,
		price_mxn TEXT,
		estimated_time TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quotations_phone ON quotations(phone_number);

	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone_number TEXT NOT NULL,
		action TEXT NOT NULL,
		data TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_action ON metrics(action);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const quotationColumns = `id, phone_number, service_id, service_name, client_name, company_name,
	email, phone, description, price_usd, price_mxn, estimated_time, status, created_at, updated_at`

func (s *SQLiteStore) CreateQuotation(ctx context.Context, q *models.Quotation) (*models.Quotation, error) {
	stored := *q
	stored.ApplyDefaults(time.Now())

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quotations (
			phone_number, service_id, service_name, client_name, company_name,
			email, phone, description, price_usd, price_mxn, estimated_time,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.PhoneNumber, stored.ServiceID, stored.ServiceName, stored.ClientName, stored.CompanyName,
		stored.Email, stored.Phone, stored.Description, stored.PriceUSD, stored.PriceMXN, stored.EstimatedTime,
		stored.Status, stored.CreatedAt.UnixMilli(), stored.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert quotation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read quotation id: %w", err)
	}
	stored.ID = uint(id)

	return &stored, nil
}

func (s *SQLiteStore) GetQuotation(ctx context.Context, id uint) (*models.Quotation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = ?`, id)

	q, err := scanQuotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quotation %d: %w", id, err)
	}
	return q, nil
}

func (s *SQLiteStore) GetAllQuotations(ctx context.Context) ([]*models.Quotation, error) {
	return s.queryQuotations(ctx, `SELECT `+quotationColumns+` FROM quotations ORDER BY created_at DESC, id DESC`)
}

func (s *SQLiteStore) GetQuotationsByPhone(ctx context.Context, phone string) ([]*models.Quotation, error) {
	return s.queryQuotations(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE phone_number = ? ORDER BY created_at DESC, id DESC`,
		phone)
}

func (s *SQLiteStore) UpdateQuotationStatus(ctx context.Context, id uint, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quotations SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update quotation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quotation %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetQuotationStats(ctx context.Context) (*models.QuotationStats, error) {
	stats := &models.QuotationStats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotations`).Scan(&stats.TotalQuotations); err != nil {
		return nil, fmt.Errorf("count quotations: %w", err)
	}

	var err error
	stats.ByService, err = s.queryCounts(ctx, `
		SELECT service_name, COUNT(*) AS count FROM quotations
		GROUP BY service_name ORDER BY count DESC, service_name`)
	if err != nil {
		return nil, fmt.Errorf("count quotations by service: %w", err)
	}

	stats.ByStatus, err = s.queryCounts(ctx, `
		SELECT status, COUNT(*) AS count FROM quotations
		GROUP BY status ORDER BY count DESC, status`)
	if err != nil {
		return nil, fmt.Errorf("count quotations by status: %w", err)
	}

	stats.Recent, err = s.queryQuotations(ctx,
		`SELECT `+quotationColumns+` FROM quotations ORDER BY created_at DESC, id DESC LIMIT ?`,
		models.RecentQuotationsLimit)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *SQLiteStore) SaveMetric(ctx context.Context, m *models.Metric) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (phone_number, action, data, created_at) VALUES (?, ?, ?, ?)`,
		m.PhoneNumber, m.Action, m.Data, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// MetricsByAction returns saved metrics for one action, oldest first
func (s *SQLiteStore) MetricsByAction(ctx context.Context, action string) ([]*models.Metric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phone_number, action, data, created_at FROM metrics WHERE action = ? ORDER BY id`, action)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*models.Metric
	for rows.Next() {
		var m models.Metric
		var data sql.NullString
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.PhoneNumber, &m.Action, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		m.Data = data.String
		m.CreatedAt = time.UnixMilli(createdAt)
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryQuotations(ctx context.Context, query string, args ...any) ([]*models.Quotation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	var quotations []*models.Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quotation row: %w", err)
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

func (s *SQLiteStore) queryCounts(ctx context.Context, query string) ([]models.CountByLabel, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.CountByLabel
	for rows.Next() {
		var c models.CountByLabel
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (*models.Quotation, error) {
	var q models.Quotation
	var clientName, companyName, email, phone, description sql.NullString
	var priceUSD, priceMXN, estimatedTime sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&q.ID, &q.PhoneNumber, &q.ServiceID, &q.ServiceName, &clientName, &companyName,
		&email, &phone, &description, &priceUSD, &priceMXN, &estimatedTime,
		&q.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.ClientName = clientName.String
	q.CompanyName = companyName.String
	q.Email = email.String
	q.Phone = phone.String
	q.Description = description.String
	q.PriceUSD = priceUSD.String
	q.PriceMXN = priceMXN.String
	q.EstimatedTime = estimatedTime.String
	q.CreatedAt = time.UnixMilli(createdAt)
	q.UpdatedAt = time.UnixMilli(updatedAt)

	return &q, nil
}
