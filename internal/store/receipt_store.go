package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chrishenyard/ai-receipts/internal/domain"
)

type ReceiptStore struct {
	db *sql.DB
}

func NewReceiptStore(db *sql.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

// Insert writes a new receipt row. CreatedAt and UpdatedAt are assigned here;
// the caller's values are ignored.
func (s *ReceiptStore) Insert(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (
			extracted_text, title, description, vendor, state, city, country,
			image_url, tax, total, purchase_date, created_at, updated_at, category_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ExtractedText, r.Title, r.Description, r.Vendor, r.State, r.City, r.Country,
		r.ImageURL, r.Tax, r.Total, r.PurchaseDate, now, now, r.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Update rewrites an existing row's editable fields. CreatedAt is never
// touched; UpdatedAt is assigned here. Returns false if no row has r.ReceiptID.
func (s *ReceiptStore) Update(ctx context.Context, r *domain.Receipt) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE receipts SET
			extracted_text = ?, title = ?, description = ?, vendor = ?,
			state = ?, city = ?, country = ?, image_url = ?, tax = ?, total = ?,
			purchase_date = ?, updated_at = ?, category_id = ?
		WHERE receipt_id = ?
	`, r.ExtractedText, r.Title, r.Description, r.Vendor,
		r.State, r.City, r.Country, r.ImageURL, r.Tax, r.Total,
		r.PurchaseDate, time.Now().UTC(), r.CategoryID, r.ReceiptID)
	if err != nil {
		return false, fmt.Errorf("failed to update receipt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (s *ReceiptStore) GetByID(ctx context.Context, id int64) (*domain.Receipt, error) {
	r := &domain.Receipt{}
	err := s.db.QueryRowContext(ctx, `
		SELECT receipt_id, extracted_text, title, description, vendor, state, city, country,
			image_url, tax, total, purchase_date, created_at, updated_at, category_id
		FROM receipts WHERE receipt_id = ?
	`, id).Scan(&r.ReceiptID, &r.ExtractedText, &r.Title, &r.Description, &r.Vendor,
		&r.State, &r.City, &r.Country, &r.ImageURL, &r.Tax, &r.Total,
		&r.PurchaseDate, &r.CreatedAt, &r.UpdatedAt, &r.CategoryID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	return r, nil
}

func (s *ReceiptStore) List(ctx context.Context) ([]*domain.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, extracted_text, title, description, vendor, state, city, country,
			image_url, tax, total, purchase_date, created_at, updated_at, category_id
		FROM receipts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*domain.Receipt
	for rows.Next() {
		r := &domain.Receipt{}
		if err := rows.Scan(&r.ReceiptID, &r.ExtractedText, &r.Title, &r.Description, &r.Vendor,
			&r.State, &r.City, &r.Country, &r.ImageURL, &r.Tax, &r.Total,
			&r.PurchaseDate, &r.CreatedAt, &r.UpdatedAt, &r.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	return receipts, nil
}
