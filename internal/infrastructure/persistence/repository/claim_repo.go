package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const claimColumns = `id, claim_number, employee_id, invoice_id, status, description,
	total_amount, deduction_amount, approved_amount,
	checked_at, checked_by, confirmed_at, confirmed_by, settled_at,
	created_by, version, created_at, updated_at`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new claim and sets its ID
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			claim_number, employee_id, invoice_id, status, description,
			total_amount, deduction_amount, approved_amount,
			created_by, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if claim.Version == 0 {
		claim.Version = 1
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		claim.ClaimNumber,
		claim.EmployeeID,
		nullInt64(claim.InvoiceID),
		claim.Status.Code(),
		nullString(claim.Description),
		claim.TotalAmount,
		claim.DeductionAmount,
		claim.ApprovedAmount,
		nullInt64(claim.CreatedBy),
		claim.Version,
		claim.CreatedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim",
			zap.String("claim_number", claim.ClaimNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ID = id
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`
	claim, err := scanClaim(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// GetByClaimNumber retrieves a claim by its human-readable number
func (r *ClaimRepository) GetByClaimNumber(ctx context.Context, claimNumber string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE claim_number = ?`
	claim, err := scanClaim(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, claimNumber))
	if err != nil {
		r.logger.Error("Failed to get claim by number",
			zap.String("claim_number", claimNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get claim by number: %w", err)
	}
	return claim, nil
}

// UpdateStatus performs a conditional write keyed on the expected status and
// version. Zero affected rows means another writer got there first.
func (r *ClaimRepository) UpdateStatus(ctx context.Context, update *entity.ClaimStatusUpdate) error {
	sets := []string{"status = ?", "version = version + 1", "updated_at = ?"}
	args := []interface{}{update.ToStatus.Code(), update.UpdatedAt}

	if update.CheckedAt != nil {
		sets = append(sets, "checked_at = ?", "checked_by = ?")
		args = append(args, *update.CheckedAt, nullInt64(update.CheckedBy))
	}
	if update.ConfirmedAt != nil {
		sets = append(sets, "confirmed_at = ?", "confirmed_by = ?")
		args = append(args, *update.ConfirmedAt, nullInt64(update.ConfirmedBy))
	}
	if update.SettledAt != nil {
		sets = append(sets, "settled_at = ?")
		args = append(args, *update.SettledAt)
	}

	query := `UPDATE claims SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND status = ? AND version = ?`
	args = append(args, update.ClaimID, update.FromStatus.Code(), update.ExpectedVersion)

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update claim status",
			zap.Int64("id", update.ClaimID),
			zap.Stringer("to", update.ToStatus),
			zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		r.logger.Info("Claim status update lost the race",
			zap.Int64("id", update.ClaimID),
			zap.Stringer("from", update.FromStatus),
			zap.Int64("expected_version", update.ExpectedVersion))
		return fmt.Errorf("claim %d: %w", update.ClaimID, workflow.ErrConcurrentModification)
	}

	return nil
}

// UpdateAmounts persists the deduction and approved amounts of a claim
func (r *ClaimRepository) UpdateAmounts(ctx context.Context, claim *entity.Claim) error {
	query := `
		UPDATE claims
		SET deduction_amount = ?, approved_amount = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		claim.DeductionAmount,
		claim.ApprovedAmount,
		claim.UpdatedAt,
		claim.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim amounts", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim amounts: %w", err)
	}

	return nil
}

// scanClaim scans a single claim row. Returns (nil, nil) when no row matches.
func scanClaim(row *sql.Row) (*entity.Claim, error) {
	var (
		claim       entity.Claim
		status      int
		invoiceID   sql.NullInt64
		description sql.NullString
		checkedAt   sql.NullTime
		checkedBy   sql.NullInt64
		confirmedAt sql.NullTime
		confirmedBy sql.NullInt64
		settledAt   sql.NullTime
		createdBy   sql.NullInt64
	)

	err := row.Scan(
		&claim.ID,
		&claim.ClaimNumber,
		&claim.EmployeeID,
		&invoiceID,
		&status,
		&description,
		&claim.TotalAmount,
		&claim.DeductionAmount,
		&claim.ApprovedAmount,
		&checkedAt,
		&checkedBy,
		&confirmedAt,
		&confirmedBy,
		&settledAt,
		&createdBy,
		&claim.Version,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	claim.Status = workflow.Status(status)
	claim.InvoiceID = int64Ptr(invoiceID)
	claim.Description = description.String
	claim.CheckedAt = timePtr(checkedAt)
	claim.CheckedBy = int64Ptr(checkedBy)
	claim.ConfirmedAt = timePtr(confirmedAt)
	claim.ConfirmedBy = int64Ptr(confirmedBy)
	claim.SettledAt = timePtr(settledAt)
	claim.CreatedBy = int64Ptr(createdBy)

	return &claim, nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
