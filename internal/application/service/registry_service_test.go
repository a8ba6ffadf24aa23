package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (RegistryService, *memStore, *mockTxManager) {
	t.Helper()
	store := newMemStore()
	tx := &mockTxManager{}
	svc := NewRegistryService(
		&mockEmployeeRepo{store: store},
		&mockInvoiceRepo{store: store},
		&mockUserRepo{store: store},
		&mockDocTypeRepo{},
		tx,
		&fixedClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		&mockLogger{},
	)
	return svc, store, tx
}

func TestRegistryService_CreateEmployee(t *testing.T) {
	svc, _, _ := newRegistry(t)
	ctx := context.Background()

	emp, err := svc.CreateEmployee(ctx, CreateEmployeeInput{
		NationalCode: " 0013542419 ",
		FirstName:    "Sara",
		LastName:     "Ahmadi",
	})
	require.NoError(t, err)
	assert.NotZero(t, emp.ID)
	assert.Equal(t, "0013542419", emp.NationalCode)

	tests := []struct {
		name    string
		input   CreateEmployeeInput
		wantErr error
	}{
		{"bad checksum", CreateEmployeeInput{NationalCode: "0013542418", FirstName: "A", LastName: "B"}, ErrValidation},
		{"missing name", CreateEmployeeInput{NationalCode: "1234567891", FirstName: "A"}, ErrValidation},
		{"duplicate", CreateEmployeeInput{NationalCode: "0013542419", FirstName: "A", LastName: "B"}, ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEmployee(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = svc.GetEmployee(ctx, 404)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestRegistryService_CreateInvoice(t *testing.T) {
	svc, _, tx := newRegistry(t)
	ctx := context.Background()

	emp, err := svc.CreateEmployee(ctx, CreateEmployeeInput{NationalCode: "0013542419", FirstName: "Sara", LastName: "Ahmadi"})
	require.NoError(t, err)

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		EmployeeID:    emp.ID,
		InvoiceNumber: "INV-77",
		Items: []InvoiceItemInput{
			{Description: "MRI", Quantity: 1, UnitPrice: 800000, DeductionAmount: 120000, DeductionReason: "over tariff"},
			{Description: "Drugs", Quantity: 2, UnitPrice: 100000},
			{Description: "Visit", UnitPrice: 50000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)
	require.Len(t, inv.Items, 3)
	assert.Equal(t, int64(200000), inv.Items[1].TotalPrice)
	assert.Equal(t, int64(1), inv.Items[2].Quantity)
	assert.Equal(t, int64(1050000), inv.TotalAmount)
	deduction, err := inv.TotalDeduction()
	require.NoError(t, err)
	assert.Equal(t, int64(120000), deduction)

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)

	tests := []struct {
		name  string
		input CreateInvoiceInput
		want  error
	}{
		{"missing number", CreateInvoiceInput{EmployeeID: emp.ID}, ErrValidation},
		{"unknown employee", CreateInvoiceInput{EmployeeID: 404, InvoiceNumber: "X"}, ErrEmployeeNotFound},
		{"deduction exceeds line", CreateInvoiceInput{EmployeeID: emp.ID, InvoiceNumber: "X", Items: []InvoiceItemInput{
			{Description: "Lab", UnitPrice: 100, DeductionAmount: 101},
		}}, ErrValidation},
		{"negative quantity", CreateInvoiceInput{EmployeeID: emp.ID, InvoiceNumber: "X", Items: []InvoiceItemInput{
			{Description: "Lab", Quantity: -1, UnitPrice: 100},
		}}, ErrValidation},
		{"missing description", CreateInvoiceInput{EmployeeID: emp.ID, InvoiceNumber: "X", Items: []InvoiceItemInput{
			{UnitPrice: 100},
		}}, ErrValidation},
		{"line total overflows", CreateInvoiceInput{EmployeeID: emp.ID, InvoiceNumber: "X", Items: []InvoiceItemInput{
			{Description: "Lab", Quantity: 1<<62 + 1, UnitPrice: 4},
		}}, ErrValidation},
		{"invoice total overflows", CreateInvoiceInput{EmployeeID: emp.ID, InvoiceNumber: "X", Items: []InvoiceItemInput{
			{Description: "Lab", TotalPrice: math.MaxInt64},
			{Description: "Visit", TotalPrice: 1},
		}}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = svc.GetInvoice(ctx, 404)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestRegistryService_CreateUser(t *testing.T) {
	svc, _, _ := newRegistry(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{Name: "Reviewer", Email: "reviewer@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reviewer", got.Name)

	_, err = svc.GetUser(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.CreateUser(ctx, CreateUserInput{Name: ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "X", Email: "nope"})
	assert.ErrorIs(t, err, ErrValidation)

	types, err := svc.ListDocumentTypes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, types)
}
