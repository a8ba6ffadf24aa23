package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the invoice and its items. Callers wanting atomicity run it
// inside TransactionManager.WithTransaction.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		INSERT INTO invoices (employee_id, invoice_number, invoice_date, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := exec.ExecContext(ctx, query,
		invoice.EmployeeID,
		invoice.InvoiceNumber,
		nullTime(invoice.InvoiceDate),
		invoice.TotalAmount,
		invoice.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	invoice.ID = id

	itemQuery := `
		INSERT INTO invoice_items (
			invoice_id, description, quantity, unit_price, total_price,
			deduction_amount, deduction_reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, item := range invoice.Items {
		item.InvoiceID = id
		if item.CreatedAt.IsZero() {
			item.CreatedAt = invoice.CreatedAt
		}

		res, err := exec.ExecContext(ctx, itemQuery,
			item.InvoiceID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
			item.DeductionAmount,
			nullString(item.DeductionReason),
			item.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create invoice item", zap.Int64("invoice_id", id), zap.Error(err))
			return fmt.Errorf("failed to create invoice item: %w", err)
		}

		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = itemID
	}

	return nil
}

// GetByID retrieves an invoice without its items
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := `
		SELECT id, employee_id, invoice_number, invoice_date, total_amount, created_at
		FROM invoices
		WHERE id = ?
	`

	var invoice entity.Invoice
	var invoiceDate sql.NullTime

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&invoice.ID,
		&invoice.EmployeeID,
		&invoice.InvoiceNumber,
		&invoiceDate,
		&invoice.TotalAmount,
		&invoice.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	invoice.InvoiceDate = timePtr(invoiceDate)
	return &invoice, nil
}

// GetWithItems retrieves an invoice with its items ordered by id
func (r *InvoiceRepository) GetWithItems(ctx context.Context, id int64) (*entity.Invoice, error) {
	invoice, err := r.GetByID(ctx, id)
	if err != nil || invoice == nil {
		return invoice, err
	}

	query := `
		SELECT id, invoice_id, description, quantity, unit_price, total_price,
			deduction_amount, deduction_reason, created_at
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get invoice items", zap.Int64("invoice_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	defer rows.Close()

	invoice.Items = []*entity.InvoiceItem{}
	for rows.Next() {
		var item entity.InvoiceItem
		var reason sql.NullString

		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&item.DeductionAmount,
			&reason,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}

		item.DeductionReason = reason.String
		invoice.Items = append(invoice.Items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice items: %w", err)
	}

	return invoice, nil
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
