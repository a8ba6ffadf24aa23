package port

import (
	"context"
	"time"

	"github.com/garyjia/tpa-claims/internal/domain/entity"
)

// Clock supplies the current time for every timestamp the core stamps
type Clock interface {
	Now() time.Time
}

// DocumentInspector extracts metadata from uploaded documents
type DocumentInspector interface {
	// PageCount returns the number of pages of a PDF document
	PageCount(ctx context.Context, content []byte) (int, error)
}

// SettlementRenderer renders the settlement sheet of a claim
type SettlementRenderer interface {
	// Render returns the encoded workbook. The claim must have its
	// employee and invoice (with items) loaded.
	Render(ctx context.Context, claim *entity.Claim) ([]byte, error)
}
