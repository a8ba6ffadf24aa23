// Package report renders claim settlement workbooks
package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the single sheet of a settlement workbook
const SheetName = "Settlement"

// First row of the line item table
const itemsHeaderRow = 10

// SettlementRenderer implements port.SettlementRenderer with excelize
type SettlementRenderer struct {
	companyName string
	logger      *zap.Logger
}

// NewSettlementRenderer creates a new SettlementRenderer
func NewSettlementRenderer(companyName string, logger *zap.Logger) *SettlementRenderer {
	return &SettlementRenderer{
		companyName: companyName,
		logger:      logger,
	}
}

// Render builds the settlement sheet: a header block with the claim and
// employee, one row per invoice line and a totals block
func (r *SettlementRenderer) Render(ctx context.Context, claim *entity.Claim) ([]byte, error) {
	if claim == nil {
		return nil, fmt.Errorf("claim is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	employeeName, nationalCode := "", ""
	if claim.Employee != nil {
		employeeName = claim.Employee.FullName()
		nationalCode = claim.Employee.NationalCode
	}
	invoiceNumber := ""
	if claim.Invoice != nil {
		invoiceNumber = claim.Invoice.InvoiceNumber
	}

	header := [][2]interface{}{
		{"Company", r.companyName},
		{"Claim number", claim.ClaimNumber},
		{"Status", claim.Status.Label()},
		{"Employee", employeeName},
		{"National code", nationalCode},
		{"Invoice", invoiceNumber},
		{"Created", claim.CreatedAt.Format("2006-01-02")},
	}
	if claim.SettledAt != nil {
		header = append(header, [2]interface{}{"Settled", claim.SettledAt.Format("2006-01-02")})
	}
	w := &sheetWriter{f: f, sheet: SheetName}
	for i, kv := range header {
		row := i + 1
		w.row(fmt.Sprintf("A%d", row), []interface{}{kv[0], kv[1]})
		w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), bold)
	}

	w.row(fmt.Sprintf("A%d", itemsHeaderRow), []interface{}{
		"#", "Description", "Quantity", "Unit price", "Total", "Deduction", "Reason",
	})
	w.style(fmt.Sprintf("A%d", itemsHeaderRow), fmt.Sprintf("G%d", itemsHeaderRow), bold)

	row := itemsHeaderRow + 1
	if claim.Invoice != nil {
		for i, item := range claim.Invoice.Items {
			w.row(fmt.Sprintf("A%d", row), []interface{}{
				i + 1, item.Description, item.Quantity, item.UnitPrice,
				item.TotalPrice, item.DeductionAmount, item.DeductionReason,
			})
			row++
		}
	}
	if row > itemsHeaderRow+1 {
		w.style(fmt.Sprintf("D%d", itemsHeaderRow+1), fmt.Sprintf("F%d", row-1), money)
	}

	row++
	totals := [][2]interface{}{
		{"Total amount", claim.TotalAmount},
		{"Deduction", claim.DeductionAmount},
		{"Approved amount", claim.ApprovedAmount},
	}
	for _, kv := range totals {
		w.row(fmt.Sprintf("E%d", row), []interface{}{kv[0], kv[1]})
		w.style(fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), bold)
		w.style(fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), money)
		row++
	}

	w.width("A", "A", 16)
	w.width("B", "B", 32)
	w.width("C", "F", 14)
	w.width("G", "G", 28)

	if w.err != nil {
		r.logger.Error("Failed to lay out settlement",
			zap.Int64("claim_id", claim.ID),
			zap.Error(w.err))
		return nil, fmt.Errorf("failed to lay out settlement: %w", w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	r.logger.Info("Settlement rendered",
		zap.Int64("claim_id", claim.ID),
		zap.String("claim_number", claim.ClaimNumber),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

// sheetWriter keeps the first excelize error; later calls become no-ops
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

// row writes values left to right starting at cell
func (w *sheetWriter) row(cell string, values []interface{}) {
	if w.err != nil {
		return
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("row %s: %w", cell, err)
	}
}

func (w *sheetWriter) style(from, to string, style int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, style); err != nil {
		w.err = fmt.Errorf("style %s:%s: %w", from, to, err)
	}
}

func (w *sheetWriter) width(from, to string, width float64) {
	if w.err != nil {
		return
	}
	if err := w.f.SetColWidth(w.sheet, from, to, width); err != nil {
		w.err = fmt.Errorf("width %s:%s: %w", from, to, err)
	}
}

// Verify interface compliance
var _ port.SettlementRenderer = (*SettlementRenderer)(nil)
