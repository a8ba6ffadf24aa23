package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/tpa-claims/internal/application/service"
)

// RegistryHandlers serves employees, invoices, users and document types
type RegistryHandlers struct {
	registry service.RegistryService
	logger   Logger
}

// NewRegistryHandlers creates a new RegistryHandlers instance
func NewRegistryHandlers(registry service.RegistryService, logger Logger) *RegistryHandlers {
	return &RegistryHandlers{registry: registry, logger: logger}
}

// CreateEmployeeRequest is the body of POST /api/employees
type CreateEmployeeRequest struct {
	NationalCode  string `json:"national_code" binding:"required"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	PersonnelCode string `json:"personnel_code"`
}

// InvoiceItemRequest is one line of CreateInvoiceRequest
type InvoiceItemRequest struct {
	Description     string `json:"description" binding:"required"`
	Quantity        int64  `json:"quantity"`
	UnitPrice       int64  `json:"unit_price"`
	TotalPrice      int64  `json:"total_price"`
	DeductionAmount int64  `json:"deduction_amount"`
	DeductionReason string `json:"deduction_reason"`
}

// CreateInvoiceRequest is the body of POST /api/invoices.
// InvoiceDate uses the YYYY-MM-DD layout.
type CreateInvoiceRequest struct {
	EmployeeID    int64                `json:"employee_id" binding:"required"`
	InvoiceNumber string               `json:"invoice_number" binding:"required"`
	InvoiceDate   string               `json:"invoice_date"`
	TotalAmount   int64                `json:"total_amount"`
	Items         []InvoiceItemRequest `json:"items" binding:"dive"`
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

// CreateEmployee handles POST /api/employees
func (h *RegistryHandlers) CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	employee, err := h.registry.CreateEmployee(c.Request.Context(), service.CreateEmployeeInput{
		NationalCode:  req.NationalCode,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PersonnelCode: req.PersonnelCode,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, employee)
}

// GetEmployee handles GET /api/employees/:id
func (h *RegistryHandlers) GetEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	employee, err := h.registry.GetEmployee(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, employee)
}

// CreateInvoice handles POST /api/invoices
func (h *RegistryHandlers) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	input := service.CreateInvoiceInput{
		EmployeeID:    req.EmployeeID,
		InvoiceNumber: req.InvoiceNumber,
		TotalAmount:   req.TotalAmount,
		Items:         make([]service.InvoiceItemInput, 0, len(req.Items)),
	}
	if req.InvoiceDate != "" {
		date, err := time.Parse(time.DateOnly, req.InvoiceDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invoice_date must be YYYY-MM-DD")
			return
		}
		input.InvoiceDate = &date
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.InvoiceItemInput{
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TotalPrice:      item.TotalPrice,
			DeductionAmount: item.DeductionAmount,
			DeductionReason: item.DeductionReason,
		})
	}

	invoice, err := h.registry.CreateInvoice(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, invoice)
}

// GetInvoice handles GET /api/invoices/:id
func (h *RegistryHandlers) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.registry.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, invoice)
}

// CreateUser handles POST /api/users
func (h *RegistryHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.registry.CreateUser(c.Request.Context(), service.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, user)
}

// ListDocumentTypes handles GET /api/document-types
func (h *RegistryHandlers) ListDocumentTypes(c *gin.Context) {
	types, err := h.registry.ListDocumentTypes(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, types)
}
