package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
)

// In-memory claim store shared by the mocks so a transition can be read back
type memStore struct {
	mu          sync.Mutex
	claims      map[int64]*entity.Claim
	notes       []*entity.ClaimNote
	attachments []*entity.ClaimAttachment
	invoices    map[int64]*entity.Invoice
	employees   map[int64]*entity.Employee
	users       map[int64]*entity.User
	nextID      int64
}

func newMemStore() *memStore {
	return &memStore{
		claims:    make(map[int64]*entity.Claim),
		invoices:  make(map[int64]*entity.Invoice),
		employees: make(map[int64]*entity.Employee),
		users:     make(map[int64]*entity.User),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type mockClaimRepo struct {
	store              *memStore
	createFunc         func(ctx context.Context, claim *entity.Claim) error
	updateStatusFunc   func(ctx context.Context, update *entity.ClaimStatusUpdate) error
	updateAmountsCalls int
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, claim)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	claim.ID = m.store.id()
	cp := *claim
	m.store.claims[claim.ID] = &cp
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.claims[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) GetByClaimNumber(ctx context.Context, claimNumber string) (*entity.Claim, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, c := range m.store.claims {
		if c.ClaimNumber == claimNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockClaimRepo) UpdateStatus(ctx context.Context, update *entity.ClaimStatusUpdate) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, update)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.claims[update.ClaimID]
	if !ok || c.Status != update.FromStatus || c.Version != update.ExpectedVersion {
		return workflow.ErrConcurrentModification
	}
	update.Apply(c)
	return nil
}

func (m *mockClaimRepo) UpdateAmounts(ctx context.Context, claim *entity.Claim) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.updateAmountsCalls++
	if c, ok := m.store.claims[claim.ID]; ok {
		c.DeductionAmount = claim.DeductionAmount
		c.ApprovedAmount = claim.ApprovedAmount
		c.UpdatedAt = claim.UpdatedAt
	}
	return nil
}

type mockNoteRepo struct {
	store      *memStore
	createFunc func(ctx context.Context, note *entity.ClaimNote) error
}

func (m *mockNoteRepo) Create(ctx context.Context, note *entity.ClaimNote) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, note)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	note.ID = m.store.id()
	m.store.notes = append(m.store.notes, note)
	return nil
}

func (m *mockNoteRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimNote, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*entity.ClaimNote
	for _, n := range m.store.notes {
		if n.ClaimID == claimID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockAttachmentRepo struct {
	store      *memStore
	createFunc func(ctx context.Context, att *entity.ClaimAttachment) error
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.ClaimAttachment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, att)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	att.ID = m.store.id()
	m.store.attachments = append(m.store.attachments, att)
	return nil
}

func (m *mockAttachmentRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimAttachment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*entity.ClaimAttachment
	for _, a := range m.store.attachments {
		if a.ClaimID == claimID {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockInvoiceRepo struct {
	store *memStore
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	invoice.ID = m.store.id()
	for _, item := range invoice.Items {
		item.ID = m.store.id()
		item.InvoiceID = invoice.ID
	}
	m.store.invoices[invoice.ID] = invoice
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	inv, ok := m.store.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	cp.Items = nil
	return &cp, nil
}

func (m *mockInvoiceRepo) GetWithItems(ctx context.Context, id int64) (*entity.Invoice, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	inv, ok := m.store.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

type mockEmployeeRepo struct {
	store *memStore
}

func (m *mockEmployeeRepo) Create(ctx context.Context, employee *entity.Employee) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	employee.ID = m.store.id()
	m.store.employees[employee.ID] = employee
	return nil
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.employees[id], nil
}

func (m *mockEmployeeRepo) GetByNationalCode(ctx context.Context, nationalCode string) (*entity.Employee, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.employees {
		if e.NationalCode == nationalCode {
			return e, nil
		}
	}
	return nil, nil
}

type mockUserRepo struct {
	store *memStore
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	user.ID = m.store.id()
	m.store.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.users[id], nil
}

type mockDocTypeRepo struct{}

func (m *mockDocTypeRepo) GetByID(ctx context.Context, id int64) (*entity.DocumentType, error) {
	if id >= entity.DocumentTypeInvoice && id <= entity.DocumentTypeOther {
		return &entity.DocumentType{ID: id, Name: "type"}, nil
	}
	return nil, nil
}

func (m *mockDocTypeRepo) List(ctx context.Context) ([]*entity.DocumentType, error) {
	return []*entity.DocumentType{{ID: entity.DocumentTypeInvoice, Name: "Invoice"}}, nil
}

type mockTxManager struct {
	calls               int
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
	deleted []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[path], nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "mem://" + relativePath
}

type mockInspector struct {
	pages int
	err   error
	calls int
}

func (m *mockInspector) PageCount(ctx context.Context, content []byte) (int, error) {
	m.calls++
	return m.pages, m.err
}

type mockRenderer struct {
	rendered *entity.Claim
}

func (m *mockRenderer) Render(ctx context.Context, claim *entity.Claim) ([]byte, error) {
	m.rendered = claim
	return []byte("xlsx"), nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
