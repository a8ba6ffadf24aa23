package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/garyjia/tpa-claims/internal/application/dispatcher"
	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/domain/event"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateClaimInput carries the caller-supplied fields of a new claim
type CreateClaimInput struct {
	EmployeeID  int64
	InvoiceID   *int64
	TotalAmount int64
	Description string
}

// AddNoteInput carries a free-form note
type AddNoteInput struct {
	Body       string
	NoteType   string
	IsInternal bool
}

// AttachmentUpload carries an uploaded file and its optional classification
type AttachmentUpload struct {
	File           entity.AttachmentFile
	DocumentTypeID *int64
}

// ClaimService orchestrates the claim lifecycle
type ClaimService interface {
	CreateClaim(ctx context.Context, actorID int64, input CreateClaimInput) (*entity.Claim, error)
	GetClaim(ctx context.Context, id int64) (*entity.Claim, error)

	// TransitionClaim moves claim to the status identified by statusCode.
	// claim is the snapshot the caller based its decision on; if the stored
	// claim has moved since, ErrConcurrentModification is returned.
	TransitionClaim(ctx context.Context, actorID int64, claim *entity.Claim, statusCode int, note string) (*entity.Claim, error)

	AddNote(ctx context.Context, actorID, claimID int64, input AddNoteInput) (*entity.ClaimNote, error)
	AddAttachment(ctx context.Context, actorID, claimID int64, upload AttachmentUpload) (*entity.ClaimAttachment, error)
	Statuses() []workflow.StatusOption
	NextStatuses(claim *entity.Claim) []workflow.StatusOption
	ExportSettlement(ctx context.Context, claimID int64) ([]byte, error)
}

// ClaimRepositories groups the persistence ports the claim service reads and writes
type ClaimRepositories struct {
	Claims        port.ClaimRepository
	Notes         port.ClaimNoteRepository
	Attachments   port.ClaimAttachmentRepository
	Invoices      port.InvoiceRepository
	Employees     port.EmployeeRepository
	Users         port.UserRepository
	DocumentTypes port.DocumentTypeRepository
}

type claimServiceImpl struct {
	repos       ClaimRepositories
	txManager   port.TransactionManager
	machine     workflow.StateMachine
	deductions  DeductionService
	storage     port.FileStorage
	clock       port.Clock
	logger      Logger
	dispatcher  dispatcher.Dispatcher
	inspector   port.DocumentInspector
	renderer    port.SettlementRenderer
	claimNumber func() int
}

// ClaimServiceOption configures optional collaborators
type ClaimServiceOption func(*claimServiceImpl)

// WithDispatcher publishes domain events after each committed change
func WithDispatcher(d dispatcher.Dispatcher) ClaimServiceOption {
	return func(s *claimServiceImpl) {
		s.dispatcher = d
	}
}

// WithDocumentInspector enables page counting of PDF attachments
func WithDocumentInspector(inspector port.DocumentInspector) ClaimServiceOption {
	return func(s *claimServiceImpl) {
		s.inspector = inspector
	}
}

// WithSettlementRenderer enables ExportSettlement
func WithSettlementRenderer(renderer port.SettlementRenderer) ClaimServiceOption {
	return func(s *claimServiceImpl) {
		s.renderer = renderer
	}
}

// WithClaimNumberSource replaces the random claim number suffix generator.
// The function must return a value in 1..99999.
func WithClaimNumberSource(next func() int) ClaimServiceOption {
	return func(s *claimServiceImpl) {
		s.claimNumber = next
	}
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	repos ClaimRepositories,
	txManager port.TransactionManager,
	machine workflow.StateMachine,
	deductions DeductionService,
	storage port.FileStorage,
	clock port.Clock,
	logger Logger,
	opts ...ClaimServiceOption,
) ClaimService {
	s := &claimServiceImpl{
		repos:       repos,
		txManager:   txManager,
		machine:     machine,
		deductions:  deductions,
		storage:     storage,
		clock:       clock,
		logger:      logger,
		claimNumber: func() int { return rand.IntN(99999) + 1 },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateClaim registers a new claim in the Register state
func (s *claimServiceImpl) CreateClaim(ctx context.Context, actorID int64, input CreateClaimInput) (*entity.Claim, error) {
	if input.EmployeeID <= 0 {
		return nil, fmt.Errorf("%w: employee_id is required", ErrValidation)
	}
	if input.TotalAmount < 0 {
		return nil, fmt.Errorf("%w: total_amount must not be negative", ErrValidation)
	}

	employee, err := s.repos.Employees.GetByID(ctx, input.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("employee %d: %w", input.EmployeeID, ErrEmployeeNotFound)
	}

	totalAmount := input.TotalAmount
	if input.InvoiceID != nil {
		invoice, err := s.repos.Invoices.GetByID(ctx, *input.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("get invoice: %w", err)
		}
		if invoice == nil {
			return nil, fmt.Errorf("invoice %d: %w", *input.InvoiceID, ErrInvoiceNotFound)
		}
		if invoice.EmployeeID != employee.ID {
			return nil, fmt.Errorf("%w: invoice %d does not belong to employee %d", ErrValidation, invoice.ID, employee.ID)
		}
		if totalAmount == 0 {
			totalAmount = invoice.TotalAmount
		}
	}

	now := s.clock.Now()
	claim := &entity.Claim{
		ClaimNumber: s.nextClaimNumber(now),
		EmployeeID:  employee.ID,
		InvoiceID:   input.InvoiceID,
		Status:      workflow.StatusRegister,
		Description: strings.TrimSpace(input.Description),
		TotalAmount: totalAmount,
		CreatedBy:   entity.ActorRef(actorID),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repos.Claims.Create(ctx, claim); err != nil {
		s.logger.Error("Failed to create claim", "error", err, "claim_number", claim.ClaimNumber)
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.logger.Info("Claim created", "id", claim.ID, "claim_number", claim.ClaimNumber, "employee_id", claim.EmployeeID)

	s.publish(ctx, event.NewEvent(event.TypeClaimCreated, claim.ID, actorID, now, map[string]interface{}{
		event.KeyClaimNumber: claim.ClaimNumber,
		event.KeyToStatus:    claim.Status.Code(),
	}))

	if err := s.loadCoreRelations(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// GetClaim loads a claim with its full relation set
func (s *claimServiceImpl) GetClaim(ctx context.Context, id int64) (*entity.Claim, error) {
	claim, err := s.repos.Claims.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %d: %w", id, ErrClaimNotFound)
	}

	if err := s.loadFullRelations(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// TransitionClaim validates the edge, then writes the status update, the
// optional note and any deduction recomputation in one transaction
func (s *claimServiceImpl) TransitionClaim(ctx context.Context, actorID int64, claim *entity.Claim, statusCode int, note string) (*entity.Claim, error) {
	if claim == nil {
		return nil, ErrClaimNotFound
	}

	target, err := workflow.ParseStatus(statusCode)
	if err != nil {
		return nil, err
	}

	from := claim.Status
	if err := s.machine.ValidateTransition(from, target); err != nil {
		s.logger.Info("Transition rejected", "claim_id", claim.ID, "from", from.String(), "to", target.String())
		return nil, err
	}

	now := s.clock.Now()
	actor := entity.ActorRef(actorID)
	update := &entity.ClaimStatusUpdate{
		ClaimID:         claim.ID,
		FromStatus:      from,
		ToStatus:        target,
		ExpectedVersion: claim.Version,
		UpdatedAt:       now,
	}

	if target == workflow.StatusWaitCheck {
		update.CheckedAt = &now
		update.CheckedBy = actor
	}
	// Confirmation is attributed on this edge only
	if from == workflow.StatusWaitConfirm && target == workflow.StatusWaitFinancial {
		update.ConfirmedAt = &now
		update.ConfirmedBy = actor
	}
	if target == workflow.StatusArchived {
		update.SettledAt = &now
	}

	working := *claim
	note = strings.TrimSpace(note)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repos.Claims.UpdateStatus(txCtx, update); err != nil {
			return err
		}
		update.Apply(&working)

		if note != "" {
			n := &entity.ClaimNote{
				ClaimID:   claim.ID,
				AuthorID:  actor,
				Body:      note,
				NoteType:  entity.NoteTypeForTarget(target),
				CreatedAt: now,
			}
			if err := s.repos.Notes.Create(txCtx, n); err != nil {
				return fmt.Errorf("create transition note: %w", err)
			}
		}

		if target == workflow.StatusWaitFinancial {
			if _, err := s.deductions.ApplyDeductions(txCtx, &working); err != nil {
				return fmt.Errorf("apply deductions: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, workflow.ErrConcurrentModification) {
			s.logger.Info("Transition lost to a concurrent update", "claim_id", claim.ID, "from", from.String(), "to", target.String())
		} else {
			s.logger.Error("Failed to transition claim", "error", err, "claim_id", claim.ID, "from", from.String(), "to", target.String())
		}
		return nil, err
	}

	s.logger.Info("Claim transitioned", "claim_id", claim.ID, "from", from.String(), "to", target.String(), "version", working.Version)

	s.publish(ctx, event.NewEvent(event.TypeClaimTransitioned, claim.ID, actorID, now, map[string]interface{}{
		event.KeyClaimNumber: working.ClaimNumber,
		event.KeyFromStatus:  from.Code(),
		event.KeyToStatus:    target.Code(),
		event.KeyDeduction:   working.DeductionAmount,
		event.KeyApproved:    working.ApprovedAmount,
	}))

	return s.GetClaim(ctx, claim.ID)
}

// AddNote appends a note regardless of the claim's status
func (s *claimServiceImpl) AddNote(ctx context.Context, actorID, claimID int64, input AddNoteInput) (*entity.ClaimNote, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: note body is required", ErrValidation)
	}

	noteType := input.NoteType
	switch noteType {
	case "":
		noteType = entity.NoteTypeGeneral
	case entity.NoteTypeGeneral, entity.NoteTypeReturn, entity.NoteTypeApproval:
	default:
		return nil, fmt.Errorf("%w: unknown note type %q", ErrValidation, noteType)
	}

	claim, err := s.requireClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	note := &entity.ClaimNote{
		ClaimID:    claim.ID,
		AuthorID:   entity.ActorRef(actorID),
		Body:       body,
		NoteType:   noteType,
		IsInternal: input.IsInternal,
		CreatedAt:  now,
	}

	if err := s.repos.Notes.Create(ctx, note); err != nil {
		s.logger.Error("Failed to add note", "error", err, "claim_id", claimID)
		return nil, fmt.Errorf("create note: %w", err)
	}

	if note.AuthorID != nil {
		author, err := s.repos.Users.GetByID(ctx, *note.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("get note author: %w", err)
		}
		note.Author = author
	}

	s.logger.Info("Note added", "claim_id", claimID, "note_id", note.ID, "note_type", note.NoteType)

	s.publish(ctx, event.NewEvent(event.TypeClaimNoteAdded, claim.ID, actorID, now, map[string]interface{}{
		event.KeyNoteType: note.NoteType,
	}))

	return note, nil
}

// AddAttachment stores the file under the claim's namespace and records its metadata
func (s *claimServiceImpl) AddAttachment(ctx context.Context, actorID, claimID int64, upload AttachmentUpload) (*entity.ClaimAttachment, error) {
	file := upload.File
	if file.Size() == 0 {
		return nil, fmt.Errorf("%w: attachment is empty", ErrValidation)
	}

	claim, err := s.requireClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if upload.DocumentTypeID != nil {
		dt, err := s.repos.DocumentTypes.GetByID(ctx, *upload.DocumentTypeID)
		if err != nil {
			return nil, fmt.Errorf("get document type: %w", err)
		}
		if dt == nil {
			return nil, fmt.Errorf("%w: unknown document type %d", ErrValidation, *upload.DocumentTypeID)
		}
	}

	detected := mimetype.Detect(file.Content)
	originalName, ext := attachmentName(file.FileName, detected.Extension())
	storedPath := fmt.Sprintf("claims/%d/%s%s", claim.ID, uuid.NewString(), ext)

	now := s.clock.Now()
	att := &entity.ClaimAttachment{
		ClaimID:        claim.ID,
		DocumentTypeID: upload.DocumentTypeID,
		FilePath:       storedPath,
		OriginalName:   originalName,
		FileSize:       file.Size(),
		MimeType:       mediaType(detected),
		UploadedBy:     entity.ActorRef(actorID),
		CreatedAt:      now,
	}

	if att.IsPDF() && s.inspector != nil {
		pages, err := s.inspector.PageCount(ctx, file.Content)
		if err != nil {
			s.logger.Info("Could not count PDF pages", "claim_id", claimID, "error", err)
		} else {
			att.PageCount = &pages
		}
	}

	if err := s.storage.Save(ctx, storedPath, file.Content); err != nil {
		s.logger.Error("Failed to store attachment", "error", err, "claim_id", claimID, "path", storedPath)
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	if err := s.repos.Attachments.Create(ctx, att); err != nil {
		if delErr := s.storage.Delete(ctx, storedPath); delErr != nil {
			s.logger.Error("Failed to remove orphaned attachment", "error", delErr, "path", storedPath)
		}
		s.logger.Error("Failed to record attachment", "error", err, "claim_id", claimID)
		return nil, fmt.Errorf("create attachment: %w", err)
	}

	s.logger.Info("Attachment added", "claim_id", claimID, "attachment_id", att.ID, "mime_type", att.MimeType, "size", att.FileSize)

	s.publish(ctx, event.NewEvent(event.TypeClaimAttachmentAdded, claim.ID, actorID, now, map[string]interface{}{
		event.KeyAttachmentID: att.ID,
		event.KeyMimeType:     att.MimeType,
	}))

	return att, nil
}

// Statuses lists every status in code order
func (s *claimServiceImpl) Statuses() []workflow.StatusOption {
	return workflow.Options(workflow.AllStatuses())
}

// NextStatuses lists the statuses the claim may move to next
func (s *claimServiceImpl) NextStatuses(claim *entity.Claim) []workflow.StatusOption {
	if claim == nil {
		return []workflow.StatusOption{}
	}
	return workflow.Options(s.machine.NextStatuses(claim.Status))
}

// ExportSettlement renders the settlement workbook of a claim
func (s *claimServiceImpl) ExportSettlement(ctx context.Context, claimID int64) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrExportDisabled
	}

	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	data, err := s.renderer.Render(ctx, claim)
	if err != nil {
		s.logger.Error("Failed to render settlement", "error", err, "claim_id", claimID)
		return nil, fmt.Errorf("render settlement: %w", err)
	}
	return data, nil
}

// nextClaimNumber dates the number with the claim's own creation time
func (s *claimServiceImpl) nextClaimNumber(createdAt time.Time) string {
	return fmt.Sprintf("%s-%s-%05d", entity.ClaimNumberPrefix, createdAt.Format("20060102"), s.claimNumber())
}

// attachmentName reduces an uploaded file name to its base name and picks the
// stored extension. Names made only of dots or separators count as missing,
// and a bare "." extension falls back to the sniffed one.
func attachmentName(fileName, sniffedExt string) (name, ext string) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if strings.Trim(name, "./") == "" {
		name = "attachment" + sniffedExt
	}

	ext = strings.ToLower(path.Ext(name))
	if ext == "" || ext == "." {
		ext = sniffedExt
	}
	return name, ext
}

func (s *claimServiceImpl) requireClaim(ctx context.Context, claimID int64) (*entity.Claim, error) {
	claim, err := s.repos.Claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %d: %w", claimID, ErrClaimNotFound)
	}
	return claim, nil
}

// loadCoreRelations populates employee, invoice (with items) and creator
func (s *claimServiceImpl) loadCoreRelations(ctx context.Context, claim *entity.Claim) error {
	employee, err := s.repos.Employees.GetByID(ctx, claim.EmployeeID)
	if err != nil {
		return fmt.Errorf("load employee: %w", err)
	}
	claim.Employee = employee

	if claim.InvoiceID != nil {
		invoice, err := s.repos.Invoices.GetWithItems(ctx, *claim.InvoiceID)
		if err != nil {
			return fmt.Errorf("load invoice: %w", err)
		}
		claim.Invoice = invoice
	}

	users := newUserCache(s.repos.Users)
	if claim.Creator, err = users.get(ctx, claim.CreatedBy); err != nil {
		return err
	}
	return nil
}

// loadFullRelations adds checker, confirmer, notes with authors and attachments
func (s *claimServiceImpl) loadFullRelations(ctx context.Context, claim *entity.Claim) error {
	if err := s.loadCoreRelations(ctx, claim); err != nil {
		return err
	}

	users := newUserCache(s.repos.Users)
	var err error
	if claim.Checker, err = users.get(ctx, claim.CheckedBy); err != nil {
		return err
	}
	if claim.Confirmer, err = users.get(ctx, claim.ConfirmedBy); err != nil {
		return err
	}

	notes, err := s.repos.Notes.GetByClaimID(ctx, claim.ID)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	for _, n := range notes {
		if n.Author, err = users.get(ctx, n.AuthorID); err != nil {
			return err
		}
	}
	claim.Notes = notes

	attachments, err := s.repos.Attachments.GetByClaimID(ctx, claim.ID)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	claim.Attachments = attachments

	return nil
}

// publish delivers an event after commit. Handler failures never undo a
// committed change, so they are logged and dropped.
func (s *claimServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to dispatch event", "error", err, "event_type", evt.Type, "claim_id", evt.ClaimID)
	}
}

// mediaType strips parameters such as charset from a detected MIME type
func mediaType(mt *mimetype.MIME) string {
	value := mt.String()
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

type userCache struct {
	repo  port.UserRepository
	users map[int64]*entity.User
}

func newUserCache(repo port.UserRepository) *userCache {
	return &userCache{repo: repo, users: make(map[int64]*entity.User)}
}

func (c *userCache) get(ctx context.Context, id *int64) (*entity.User, error) {
	if id == nil {
		return nil, nil
	}
	if u, ok := c.users[*id]; ok {
		return u, nil
	}
	u, err := c.repo.GetByID(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", *id, err)
	}
	c.users[*id] = u
	return u, nil
}
