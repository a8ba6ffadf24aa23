package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeductionService_ApplyDeductions(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)}

	store := newMemStore()
	invoices := &mockInvoiceRepo{store: store}
	claims := &mockClaimRepo{store: store}

	withItems := &entity.Invoice{Items: []*entity.InvoiceItem{
		{TotalPrice: 600000, DeductionAmount: 100000},
		{TotalPrice: 400000, DeductionAmount: 50000},
	}}
	require.NoError(t, invoices.Create(ctx, withItems))
	noItems := &entity.Invoice{}
	require.NoError(t, invoices.Create(ctx, noItems))
	overDeducted := &entity.Invoice{Items: []*entity.InvoiceItem{{TotalPrice: 500, DeductionAmount: 500}}}
	require.NoError(t, invoices.Create(ctx, overDeducted))
	dangling := int64(9999)

	tests := []struct {
		name          string
		invoiceID     *int64
		total         int64
		wantDeduction int64
		wantApproved  int64
	}{
		{"invoice with items", &withItems.ID, 1000000, 150000, 850000},
		{"no linked invoice", nil, 1000000, 0, 1000000},
		{"invoice without items", &noItems.ID, 300000, 0, 300000},
		{"missing invoice row", &dangling, 300000, 0, 300000},
		{"approved may go negative", &overDeducted.ID, 100, 500, -400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDeductionService(claims, invoices, clock, &mockLogger{})
			claim := &entity.Claim{ID: 1, InvoiceID: tt.invoiceID, TotalAmount: tt.total}

			got, err := svc.ApplyDeductions(ctx, claim)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeduction, got.DeductionAmount)
			assert.Equal(t, tt.wantApproved, got.ApprovedAmount)
			assert.True(t, got.UpdatedAt.Equal(clock.now))
		})
	}
}

func TestDeductionService_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	invoices := &mockInvoiceRepo{store: store}
	claims := &mockClaimRepo{store: store}

	inv := &entity.Invoice{Items: []*entity.InvoiceItem{{TotalPrice: 1000, DeductionAmount: 250}}}
	require.NoError(t, invoices.Create(ctx, inv))

	svc := NewDeductionService(claims, invoices, &fixedClock{now: time.Now()}, &mockLogger{})
	claim := &entity.Claim{ID: 1, InvoiceID: &inv.ID, TotalAmount: 1000}

	for i := 0; i < 3; i++ {
		got, err := svc.ApplyDeductions(ctx, claim)
		require.NoError(t, err)
		assert.Equal(t, int64(250), got.DeductionAmount)
		assert.Equal(t, int64(750), got.ApprovedAmount)
	}
	assert.Equal(t, 3, claims.updateAmountsCalls)
}

func TestDeductionService_NilClaim(t *testing.T) {
	store := newMemStore()
	svc := NewDeductionService(&mockClaimRepo{store: store}, &mockInvoiceRepo{store: store}, &fixedClock{}, &mockLogger{})

	_, err := svc.ApplyDeductions(context.Background(), nil)
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestDeductionService_OverflowingDeductions(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	invoices := &mockInvoiceRepo{store: store}

	inv := &entity.Invoice{Items: []*entity.InvoiceItem{
		{TotalPrice: math.MaxInt64, DeductionAmount: math.MaxInt64},
		{TotalPrice: 1, DeductionAmount: 1},
	}}
	require.NoError(t, invoices.Create(ctx, inv))

	svc := NewDeductionService(&mockClaimRepo{store: store}, invoices, &fixedClock{now: time.Now()}, &mockLogger{})
	_, err := svc.ApplyDeductions(ctx, &entity.Claim{ID: 1, InvoiceID: &inv.ID, TotalAmount: 100})
	assert.ErrorIs(t, err, ErrValidation)
}
