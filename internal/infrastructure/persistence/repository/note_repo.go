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

// ClaimNoteRepository implements port.ClaimNoteRepository
type ClaimNoteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimNoteRepository creates a new claim note repository
func NewClaimNoteRepository(db *sql.DB, logger *zap.Logger) port.ClaimNoteRepository {
	return &ClaimNoteRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a note to a claim
func (r *ClaimNoteRepository) Create(ctx context.Context, note *entity.ClaimNote) error {
	query := `
		INSERT INTO claim_notes (claim_id, author_id, body, note_type, is_internal, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		note.ClaimID,
		nullInt64(note.AuthorID),
		note.Body,
		note.NoteType,
		note.IsInternal,
		note.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim note", zap.Int64("claim_id", note.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create claim note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	note.ID = id
	return nil
}

// GetByClaimID retrieves all notes of a claim in creation order
func (r *ClaimNoteRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimNote, error) {
	query := `
		SELECT id, claim_id, author_id, body, note_type, is_internal, created_at
		FROM claim_notes
		WHERE claim_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get claim notes", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim notes: %w", err)
	}
	defer rows.Close()

	var notes []*entity.ClaimNote
	for rows.Next() {
		var note entity.ClaimNote
		var authorID sql.NullInt64

		if err := rows.Scan(
			&note.ID,
			&note.ClaimID,
			&authorID,
			&note.Body,
			&note.NoteType,
			&note.IsInternal,
			&note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan claim note: %w", err)
		}

		note.AuthorID = int64Ptr(authorID)
		notes = append(notes, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim notes: %w", err)
	}

	return notes, nil
}

// Verify interface compliance
var _ port.ClaimNoteRepository = (*ClaimNoteRepository)(nil)
