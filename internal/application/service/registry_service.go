package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/pkg/utils"
)

// CreateEmployeeInput carries a new insured member
type CreateEmployeeInput struct {
	NationalCode  string
	FirstName     string
	LastName      string
	PersonnelCode string
}

// InvoiceItemInput carries one billed line
type InvoiceItemInput struct {
	Description     string
	Quantity        int64
	UnitPrice       int64
	TotalPrice      int64
	DeductionAmount int64
	DeductionReason string
}

// CreateInvoiceInput carries a new invoice with its lines
type CreateInvoiceInput struct {
	EmployeeID    int64
	InvoiceNumber string
	InvoiceDate   *time.Time
	TotalAmount   int64
	Items         []InvoiceItemInput
}

// CreateUserInput carries a new back-office user
type CreateUserInput struct {
	Name  string
	Email string
}

// RegistryService manages the records claims refer to
type RegistryService interface {
	CreateEmployee(ctx context.Context, input CreateEmployeeInput) (*entity.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*entity.Employee, error)
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*entity.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*entity.Invoice, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	ListDocumentTypes(ctx context.Context) ([]*entity.DocumentType, error)
}

type registryServiceImpl struct {
	employeeRepo port.EmployeeRepository
	invoiceRepo  port.InvoiceRepository
	userRepo     port.UserRepository
	docTypeRepo  port.DocumentTypeRepository
	txManager    port.TransactionManager
	clock        port.Clock
	logger       Logger
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(
	employeeRepo port.EmployeeRepository,
	invoiceRepo port.InvoiceRepository,
	userRepo port.UserRepository,
	docTypeRepo port.DocumentTypeRepository,
	txManager port.TransactionManager,
	clock port.Clock,
	logger Logger,
) RegistryService {
	return &registryServiceImpl{
		employeeRepo: employeeRepo,
		invoiceRepo:  invoiceRepo,
		userRepo:     userRepo,
		docTypeRepo:  docTypeRepo,
		txManager:    txManager,
		clock:        clock,
		logger:       logger,
	}
}

// CreateEmployee registers an insured member after checking the national code
func (s *registryServiceImpl) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (*entity.Employee, error) {
	code := strings.TrimSpace(input.NationalCode)
	if err := utils.ValidateNationalCode(code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	firstName := utils.SanitizeString(input.FirstName)
	lastName := utils.SanitizeString(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}

	existing, err := s.employeeRepo.GetByNationalCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("employee with national code %s: %w", code, ErrAlreadyExists)
	}

	employee := &entity.Employee{
		NationalCode:  code,
		FirstName:     firstName,
		LastName:      lastName,
		PersonnelCode: utils.SanitizeString(input.PersonnelCode),
		CreatedAt:     s.clock.Now(),
	}

	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		s.logger.Error("Failed to create employee", "error", err)
		return nil, fmt.Errorf("create employee: %w", err)
	}

	s.logger.Info("Employee created", "id", employee.ID)
	return employee, nil
}

// GetEmployee retrieves an employee by ID
func (s *registryServiceImpl) GetEmployee(ctx context.Context, id int64) (*entity.Employee, error) {
	employee, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("employee %d: %w", id, ErrEmployeeNotFound)
	}
	return employee, nil
}

// CreateInvoice stores an invoice and its lines atomically. Line totals
// default to quantity x unit price and the invoice total to the sum of lines.
func (s *registryServiceImpl) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*entity.Invoice, error) {
	number := utils.SanitizeString(input.InvoiceNumber)
	if number == "" {
		return nil, fmt.Errorf("%w: invoice_number is required", ErrValidation)
	}
	if err := utils.ValidateAmount(input.TotalAmount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if _, err := s.GetEmployee(ctx, input.EmployeeID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice := &entity.Invoice{
		EmployeeID:    input.EmployeeID,
		InvoiceNumber: number,
		InvoiceDate:   input.InvoiceDate,
		TotalAmount:   input.TotalAmount,
		CreatedAt:     now,
		Items:         make([]*entity.InvoiceItem, 0, len(input.Items)),
	}

	for i, in := range input.Items {
		item, err := buildInvoiceItem(in, now)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrValidation, i+1, err)
		}
		invoice.Items = append(invoice.Items, item)
	}

	itemsTotal, err := invoice.ItemsTotal()
	if err != nil {
		return nil, fmt.Errorf("%w: items total: %v", ErrValidation, err)
	}
	deduction, err := invoice.TotalDeduction()
	if err != nil {
		return nil, fmt.Errorf("%w: items deduction: %v", ErrValidation, err)
	}
	if invoice.TotalAmount == 0 {
		invoice.TotalAmount = itemsTotal
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.invoiceRepo.Create(txCtx, invoice)
	})
	if err != nil {
		s.logger.Error("Failed to create invoice", "error", err, "invoice_number", number)
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("Invoice created", "id", invoice.ID, "items", len(invoice.Items), "deduction", deduction)
	return invoice, nil
}

// GetInvoice retrieves an invoice with its items
func (s *registryServiceImpl) GetInvoice(ctx context.Context, id int64) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if invoice == nil {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrInvoiceNotFound)
	}
	return invoice, nil
}

// CreateUser registers a back-office user that actions can be attributed to
func (s *registryServiceImpl) CreateUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	name := utils.SanitizeString(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	email := strings.TrimSpace(input.Email)
	if email != "" {
		if err := utils.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	user := &entity.User{Name: name, Email: email, CreatedAt: s.clock.Now()}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User created", "id", user.ID)
	return user, nil
}

// GetUser retrieves a user by ID
func (s *registryServiceImpl) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	return user, nil
}

// ListDocumentTypes returns the attachment classifications
func (s *registryServiceImpl) ListDocumentTypes(ctx context.Context) ([]*entity.DocumentType, error) {
	types, err := s.docTypeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return types, nil
}

func buildInvoiceItem(in InvoiceItemInput, now time.Time) (*entity.InvoiceItem, error) {
	description := utils.SanitizeString(in.Description)
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}

	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if err := utils.ValidateAmount(in.UnitPrice); err != nil {
		return nil, err
	}

	total := in.TotalPrice
	if total == 0 {
		product, err := entity.MulAmount(quantity, in.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("quantity x unit_price: %w", err)
		}
		total = product
	}
	if err := utils.ValidateAmount(total); err != nil {
		return nil, err
	}
	if err := utils.ValidateDeduction(in.DeductionAmount, total); err != nil {
		return nil, err
	}

	return &entity.InvoiceItem{
		Description:     description,
		Quantity:        quantity,
		UnitPrice:       in.UnitPrice,
		TotalPrice:      total,
		DeductionAmount: in.DeductionAmount,
		DeductionReason: utils.SanitizeString(in.DeductionReason),
		CreatedAt:       now,
	}, nil
}
