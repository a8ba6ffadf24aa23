package entity

import (
	"time"

	"github.com/garyjia/tpa-claims/internal/domain/workflow"
)

// Claim represents a reimbursement claim for one insured employee
type Claim struct {
	ID              int64           `json:"id"`
	ClaimNumber     string          `json:"claim_number"`
	EmployeeID      int64           `json:"employee_id"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
	Status          workflow.Status `json:"status"`
	Description     string          `json:"description,omitempty"`
	TotalAmount     int64           `json:"total_amount"`
	DeductionAmount int64           `json:"deduction_amount"`
	ApprovedAmount  int64           `json:"approved_amount"`
	CheckedAt       *time.Time      `json:"checked_at,omitempty"`
	CheckedBy       *int64          `json:"checked_by,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	ConfirmedBy     *int64          `json:"confirmed_by,omitempty"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
	CreatedBy       *int64          `json:"created_by,omitempty"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relations, populated by the claim service when loading the aggregate
	Employee    *Employee          `json:"employee,omitempty"`
	Invoice     *Invoice           `json:"invoice,omitempty"`
	Creator     *User              `json:"creator,omitempty"`
	Checker     *User              `json:"checker,omitempty"`
	Confirmer   *User              `json:"confirmer,omitempty"`
	Notes       []*ClaimNote       `json:"notes,omitempty"`
	Attachments []*ClaimAttachment `json:"attachments,omitempty"`
}

// ClaimNote is an append-only remark on a claim
type ClaimNote struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id"`
	AuthorID   *int64    `json:"author_id,omitempty"`
	Body       string    `json:"body"`
	NoteType   string    `json:"note_type"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`

	Author *User `json:"author,omitempty"`
}

// ClaimStatusUpdate carries the fields written by a single transition.
// Nil pointers leave the stored column untouched.
type ClaimStatusUpdate struct {
	ClaimID         int64
	FromStatus      workflow.Status
	ToStatus        workflow.Status
	ExpectedVersion int64
	CheckedAt       *time.Time
	CheckedBy       *int64
	ConfirmedAt     *time.Time
	ConfirmedBy     *int64
	SettledAt       *time.Time
	UpdatedAt       time.Time
}

// Apply copies the update onto an in-memory claim after it has been persisted
func (u *ClaimStatusUpdate) Apply(c *Claim) {
	c.Status = u.ToStatus
	if u.CheckedAt != nil {
		c.CheckedAt = u.CheckedAt
		c.CheckedBy = u.CheckedBy
	}
	if u.ConfirmedAt != nil {
		c.ConfirmedAt = u.ConfirmedAt
		c.ConfirmedBy = u.ConfirmedBy
	}
	if u.SettledAt != nil {
		c.SettledAt = u.SettledAt
	}
	c.Version = u.ExpectedVersion + 1
	c.UpdatedAt = u.UpdatedAt
}

// NoteTypeForTarget derives the note category from the state a claim is moving into
func NoteTypeForTarget(target workflow.Status) string {
	switch target {
	case workflow.StatusReturned:
		return NoteTypeReturn
	case workflow.StatusWaitFinancial, workflow.StatusArchived:
		return NoteTypeApproval
	default:
		return NoteTypeGeneral
	}
}

// ActorRef converts an actor id to a nullable reference. Zero means no actor.
func ActorRef(actorID int64) *int64 {
	if actorID == 0 {
		return nil
	}
	id := actorID
	return &id
}
