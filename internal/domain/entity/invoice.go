package entity

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrAmountOverflow is returned when money arithmetic leaves the int64 range
var ErrAmountOverflow = errors.New("amount overflows int64")

// Invoice represents a medical invoice submitted for an insured employee
type Invoice struct {
	ID            int64          `json:"id"`
	EmployeeID    int64          `json:"employee_id"`
	InvoiceNumber string         `json:"invoice_number"`
	InvoiceDate   *time.Time     `json:"invoice_date,omitempty"`
	TotalAmount   int64          `json:"total_amount"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []*InvoiceItem `json:"items,omitempty"`
}

// InvoiceItem is a single billed line. DeductionAmount is the part of the
// line the insurer refuses to reimburse.
type InvoiceItem struct {
	ID              int64     `json:"id"`
	InvoiceID       int64     `json:"invoice_id"`
	Description     string    `json:"description"`
	Quantity        int64     `json:"quantity"`
	UnitPrice       int64     `json:"unit_price"`
	TotalPrice      int64     `json:"total_price"`
	DeductionAmount int64     `json:"deduction_amount"`
	DeductionReason string    `json:"deduction_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AddAmounts sums non-negative amounts, failing instead of wrapping
func AddAmounts(amounts ...int64) (int64, error) {
	var total int64
	for _, a := range amounts {
		if a < 0 {
			return 0, fmt.Errorf("negative amount %d", a)
		}
		if a > math.MaxInt64-total {
			return 0, ErrAmountOverflow
		}
		total += a
	}
	return total, nil
}

// MulAmount returns quantity x unitPrice for non-negative operands
func MulAmount(quantity, unitPrice int64) (int64, error) {
	if quantity < 0 || unitPrice < 0 {
		return 0, fmt.Errorf("negative operand %d x %d", quantity, unitPrice)
	}
	if unitPrice != 0 && quantity > math.MaxInt64/unitPrice {
		return 0, ErrAmountOverflow
	}
	return quantity * unitPrice, nil
}

// TotalDeduction sums the deduction of every line. A nil invoice or an
// invoice without items deducts nothing.
func (inv *Invoice) TotalDeduction() (int64, error) {
	if inv == nil {
		return 0, nil
	}
	amounts := make([]int64, 0, len(inv.Items))
	for _, item := range inv.Items {
		amounts = append(amounts, item.DeductionAmount)
	}
	return AddAmounts(amounts...)
}

// ItemsTotal sums the billed total of every line
func (inv *Invoice) ItemsTotal() (int64, error) {
	if inv == nil {
		return 0, nil
	}
	amounts := make([]int64, 0, len(inv.Items))
	for _, item := range inv.Items {
		amounts = append(amounts, item.TotalPrice)
	}
	return AddAmounts(amounts...)
}
