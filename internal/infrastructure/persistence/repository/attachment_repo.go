package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ClaimAttachmentRepository implements port.ClaimAttachmentRepository
type ClaimAttachmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimAttachmentRepository creates a new attachment repository
func NewClaimAttachmentRepository(db *sql.DB, logger *zap.Logger) port.ClaimAttachmentRepository {
	return &ClaimAttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a stored attachment
func (r *ClaimAttachmentRepository) Create(ctx context.Context, att *entity.ClaimAttachment) error {
	query := `
		INSERT INTO claim_attachments (
			claim_id, document_type_id, file_path, original_name, file_size,
			mime_type, page_count, uploaded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var pageCount sql.NullInt64
	if att.PageCount != nil {
		pageCount = sql.NullInt64{Int64: int64(*att.PageCount), Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		att.ClaimID,
		nullInt64(att.DocumentTypeID),
		att.FilePath,
		att.OriginalName,
		att.FileSize,
		att.MimeType,
		pageCount,
		nullInt64(att.UploadedBy),
		att.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment",
			zap.Int64("claim_id", att.ClaimID),
			zap.String("file_path", att.FilePath),
			zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// GetByClaimID retrieves all attachments of a claim in upload order
func (r *ClaimAttachmentRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimAttachment, error) {
	query := `
		SELECT id, claim_id, document_type_id, file_path, original_name, file_size,
			mime_type, page_count, uploaded_by, created_at
		FROM claim_attachments
		WHERE claim_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get attachments", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*entity.ClaimAttachment
	for rows.Next() {
		var att entity.ClaimAttachment
		var documentTypeID, pageCount, uploadedBy sql.NullInt64

		if err := rows.Scan(
			&att.ID,
			&att.ClaimID,
			&documentTypeID,
			&att.FilePath,
			&att.OriginalName,
			&att.FileSize,
			&att.MimeType,
			&pageCount,
			&uploadedBy,
			&att.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}

		att.DocumentTypeID = int64Ptr(documentTypeID)
		att.PageCount = intPtr(pageCount)
		att.UploadedBy = int64Ptr(uploadedBy)
		attachments = append(attachments, &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}

// Verify interface compliance
var _ port.ClaimAttachmentRepository = (*ClaimAttachmentRepository)(nil)
