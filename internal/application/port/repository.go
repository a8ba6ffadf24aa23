package port

import (
	"context"

	"github.com/garyjia/tpa-claims/internal/domain/entity"
)

// ClaimRepository defines persistence operations for Claim.
// Lookups return (nil, nil) when the row does not exist.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)
	GetByClaimNumber(ctx context.Context, claimNumber string) (*entity.Claim, error)

	// UpdateStatus writes the status and stamped fields only if the stored
	// claim still has update.FromStatus and update.ExpectedVersion.
	// Returns workflow.ErrConcurrentModification otherwise.
	UpdateStatus(ctx context.Context, update *entity.ClaimStatusUpdate) error

	// UpdateAmounts persists deduction and approved amounts
	UpdateAmounts(ctx context.Context, claim *entity.Claim) error
}

// ClaimNoteRepository defines persistence operations for ClaimNote
type ClaimNoteRepository interface {
	Create(ctx context.Context, note *entity.ClaimNote) error
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimNote, error)
}

// ClaimAttachmentRepository defines persistence operations for ClaimAttachment
type ClaimAttachmentRepository interface {
	Create(ctx context.Context, att *entity.ClaimAttachment) error
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimAttachment, error)
}

// InvoiceRepository defines persistence operations for Invoice and its items
type InvoiceRepository interface {
	// Create inserts the invoice and all of its items
	Create(ctx context.Context, invoice *entity.Invoice) error

	// GetByID retrieves an invoice without items
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)

	// GetWithItems retrieves an invoice and its items ordered by id
	GetWithItems(ctx context.Context, id int64) (*entity.Invoice, error)
}

// EmployeeRepository defines persistence operations for Employee
type EmployeeRepository interface {
	Create(ctx context.Context, employee *entity.Employee) error
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
	GetByNationalCode(ctx context.Context, nationalCode string) (*entity.Employee, error)
}

// UserRepository reads back-office users for attribution
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// DocumentTypeRepository reads the attachment classification lookup
type DocumentTypeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.DocumentType, error)
	List(ctx context.Context) ([]*entity.DocumentType, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
