package service

import (
	"context"
	"fmt"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
)

// DeductionService recomputes the deduction and approved amounts of a claim
// from its invoice line items
type DeductionService interface {
	// ApplyDeductions sets DeductionAmount to the sum of the invoice line
	// deductions and ApprovedAmount to TotalAmount minus that sum, then
	// persists both. A claim without an invoice deducts nothing.
	ApplyDeductions(ctx context.Context, claim *entity.Claim) (*entity.Claim, error)
}

type deductionServiceImpl struct {
	claimRepo   port.ClaimRepository
	invoiceRepo port.InvoiceRepository
	clock       port.Clock
	logger      Logger
}

// NewDeductionService creates a new DeductionService
func NewDeductionService(
	claimRepo port.ClaimRepository,
	invoiceRepo port.InvoiceRepository,
	clock port.Clock,
	logger Logger,
) DeductionService {
	return &deductionServiceImpl{
		claimRepo:   claimRepo,
		invoiceRepo: invoiceRepo,
		clock:       clock,
		logger:      logger,
	}
}

// ApplyDeductions always reloads the invoice lines so repeated calls converge
// on the same amounts
func (s *deductionServiceImpl) ApplyDeductions(ctx context.Context, claim *entity.Claim) (*entity.Claim, error) {
	if claim == nil {
		return nil, fmt.Errorf("apply deductions: %w", ErrClaimNotFound)
	}

	var invoice *entity.Invoice
	if claim.InvoiceID != nil {
		inv, err := s.invoiceRepo.GetWithItems(ctx, *claim.InvoiceID)
		if err != nil {
			s.logger.Error("Failed to load invoice for deductions", "error", err, "claim_id", claim.ID, "invoice_id", *claim.InvoiceID)
			return nil, fmt.Errorf("load invoice: %w", err)
		}
		if inv == nil {
			// A dangling reference deducts nothing
			s.logger.Info("Linked invoice not found, deducting zero", "claim_id", claim.ID, "invoice_id", *claim.InvoiceID)
		}
		invoice = inv
		claim.Invoice = inv
	}

	deduction, err := invoice.TotalDeduction()
	if err != nil {
		return nil, fmt.Errorf("%w: invoice deductions: %v", ErrValidation, err)
	}
	claim.DeductionAmount = deduction
	claim.ApprovedAmount = claim.TotalAmount - deduction
	claim.UpdatedAt = s.clock.Now()

	if err := s.claimRepo.UpdateAmounts(ctx, claim); err != nil {
		s.logger.Error("Failed to persist deductions", "error", err, "claim_id", claim.ID)
		return nil, fmt.Errorf("update amounts: %w", err)
	}

	s.logger.Info("Deductions applied",
		"claim_id", claim.ID,
		"total", claim.TotalAmount,
		"deduction", claim.DeductionAmount,
		"approved", claim.ApprovedAmount)

	return claim, nil
}
