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

// DocumentTypeRepository implements port.DocumentTypeRepository
type DocumentTypeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentTypeRepository creates a new document type repository
func NewDocumentTypeRepository(db *sql.DB, logger *zap.Logger) port.DocumentTypeRepository {
	return &DocumentTypeRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a document type by ID
func (r *DocumentTypeRepository) GetByID(ctx context.Context, id int64) (*entity.DocumentType, error) {
	var dt entity.DocumentType
	err := sqlite.ExecutorFrom(ctx, r.db).
		QueryRowContext(ctx, `SELECT id, name FROM document_types WHERE id = ?`, id).
		Scan(&dt.ID, &dt.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document type: %w", err)
	}
	return &dt, nil
}

// List returns all document types ordered by id
func (r *DocumentTypeRepository) List(ctx context.Context) ([]*entity.DocumentType, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).
		QueryContext(ctx, `SELECT id, name FROM document_types ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("Failed to list document types", zap.Error(err))
		return nil, fmt.Errorf("failed to list document types: %w", err)
	}
	defer rows.Close()

	var types []*entity.DocumentType
	for rows.Next() {
		var dt entity.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Name); err != nil {
			return nil, fmt.Errorf("failed to scan document type: %w", err)
		}
		types = append(types, &dt)
	}

	return types, rows.Err()
}

// Verify interface compliance
var _ port.DocumentTypeRepository = (*DocumentTypeRepository)(nil)
