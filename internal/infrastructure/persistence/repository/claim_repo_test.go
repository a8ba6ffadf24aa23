package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/tpa-claims/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	db        *sqlite.DB
	claims    *ClaimRepository
	notes     *ClaimNoteRepository
	employee  *entity.Employee
	invoice   *entity.Invoice
	user      *entity.User
	otherUser *entity.User
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db := testutil.NewSQLiteDB(t)
	f := &fixture{
		db:     db,
		claims: NewClaimRepository(db.DB, logger).(*ClaimRepository),
		notes:  NewClaimNoteRepository(db.DB, logger).(*ClaimNoteRepository),
	}

	users := NewUserRepository(db.DB, logger)
	f.user = &entity.User{Name: "Checker", Email: "checker@example.com", CreatedAt: fixedNow}
	require.NoError(t, users.Create(ctx, f.user))
	f.otherUser = &entity.User{Name: "Finance", CreatedAt: fixedNow}
	require.NoError(t, users.Create(ctx, f.otherUser))

	f.employee = &entity.Employee{
		NationalCode: "0013542419",
		FirstName:    "Sara",
		LastName:     "Ahmadi",
		CreatedAt:    fixedNow,
	}
	require.NoError(t, NewEmployeeRepository(db.DB, logger).Create(ctx, f.employee))

	f.invoice = &entity.Invoice{
		EmployeeID:    f.employee.ID,
		InvoiceNumber: "INV-1001",
		TotalAmount:   1000000,
		CreatedAt:     fixedNow,
		Items: []*entity.InvoiceItem{
			{Description: "Visit", Quantity: 1, UnitPrice: 600000, TotalPrice: 600000, DeductionAmount: 100000, DeductionReason: "tariff"},
			{Description: "Lab", Quantity: 2, UnitPrice: 200000, TotalPrice: 400000, DeductionAmount: 50000},
		},
	}
	require.NoError(t, NewInvoiceRepository(db.DB, logger).Create(ctx, f.invoice))

	return f
}

func (f *fixture) newClaim(t *testing.T, number string) *entity.Claim {
	t.Helper()
	claim := &entity.Claim{
		ClaimNumber: number,
		EmployeeID:  f.employee.ID,
		InvoiceID:   &f.invoice.ID,
		Status:      workflow.StatusRegister,
		Description: "outpatient",
		TotalAmount: 1000000,
		CreatedBy:   &f.user.ID,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	require.NoError(t, f.claims.Create(context.Background(), claim))
	return claim
}

func TestClaimRepository_CreateAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	claim := f.newClaim(t, "CLM-20240514-00042")
	assert.NotZero(t, claim.ID)
	assert.Equal(t, int64(1), claim.Version)

	got, err := f.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CLM-20240514-00042", got.ClaimNumber)
	assert.Equal(t, workflow.StatusRegister, got.Status)
	assert.Equal(t, f.invoice.ID, *got.InvoiceID)
	assert.Equal(t, f.user.ID, *got.CreatedBy)
	assert.Nil(t, got.CheckedAt)
	assert.Nil(t, got.CheckedBy)
	assert.True(t, got.CreatedAt.Equal(fixedNow))

	byNumber, err := f.claims.GetByClaimNumber(ctx, "CLM-20240514-00042")
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, claim.ID, byNumber.ID)
}

func TestClaimRepository_GetMissingReturnsNil(t *testing.T) {
	f := setupFixture(t)

	got, err := f.claims.GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClaimRepository_DuplicateClaimNumber(t *testing.T) {
	f := setupFixture(t)
	f.newClaim(t, "CLM-20240514-00001")

	dup := &entity.Claim{
		ClaimNumber: "CLM-20240514-00001",
		EmployeeID:  f.employee.ID,
		Status:      workflow.StatusRegister,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	err := f.claims.Create(context.Background(), dup)
	assert.Error(t, err)
}

func TestClaimRepository_UpdateStatus(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	claim := f.newClaim(t, "CLM-20240514-00002")

	later := fixedNow.Add(time.Hour)
	update := &entity.ClaimStatusUpdate{
		ClaimID:         claim.ID,
		FromStatus:      workflow.StatusRegister,
		ToStatus:        workflow.StatusWaitCheck,
		ExpectedVersion: 1,
		CheckedAt:       &later,
		CheckedBy:       &f.user.ID,
		UpdatedAt:       later,
	}
	require.NoError(t, f.claims.UpdateStatus(ctx, update))

	got, err := f.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusWaitCheck, got.Status)
	assert.Equal(t, int64(2), got.Version)
	require.NotNil(t, got.CheckedAt)
	assert.True(t, got.CheckedAt.Equal(later))
	assert.Equal(t, f.user.ID, *got.CheckedBy)
	assert.Nil(t, got.ConfirmedAt)
	assert.Nil(t, got.SettledAt)
}

func TestClaimRepository_UpdateStatus_NullActor(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	claim := f.newClaim(t, "CLM-20240514-00003")

	update := &entity.ClaimStatusUpdate{
		ClaimID:         claim.ID,
		FromStatus:      workflow.StatusRegister,
		ToStatus:        workflow.StatusWaitCheck,
		ExpectedVersion: 1,
		CheckedAt:       &fixedNow,
		UpdatedAt:       fixedNow,
	}
	require.NoError(t, f.claims.UpdateStatus(ctx, update))

	got, err := f.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CheckedAt)
	assert.Nil(t, got.CheckedBy)
}

func TestClaimRepository_UpdateStatus_StaleWrite(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	claim := f.newClaim(t, "CLM-20240514-00004")

	first := &entity.ClaimStatusUpdate{
		ClaimID:         claim.ID,
		FromStatus:      workflow.StatusRegister,
		ToStatus:        workflow.StatusWaitCheck,
		ExpectedVersion: 1,
		UpdatedAt:       fixedNow,
	}
	require.NoError(t, f.claims.UpdateStatus(ctx, first))

	tests := []struct {
		name   string
		update *entity.ClaimStatusUpdate
	}{
		{
			name: "stale status",
			update: &entity.ClaimStatusUpdate{
				ClaimID:         claim.ID,
				FromStatus:      workflow.StatusRegister,
				ToStatus:        workflow.StatusReturned,
				ExpectedVersion: 2,
				UpdatedAt:       fixedNow,
			},
		},
		{
			name: "stale version",
			update: &entity.ClaimStatusUpdate{
				ClaimID:         claim.ID,
				FromStatus:      workflow.StatusWaitCheck,
				ToStatus:        workflow.StatusWaitConfirm,
				ExpectedVersion: 1,
				UpdatedAt:       fixedNow,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.claims.UpdateStatus(ctx, tt.update)
			require.Error(t, err)
			assert.True(t, errors.Is(err, workflow.ErrConcurrentModification))
		})
	}

	got, err := f.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusWaitCheck, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestClaimRepository_UpdateAmounts(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	claim := f.newClaim(t, "CLM-20240514-00005")

	claim.DeductionAmount = 150000
	claim.ApprovedAmount = 850000
	claim.UpdatedAt = fixedNow.Add(time.Minute)
	require.NoError(t, f.claims.UpdateAmounts(ctx, claim))

	got, err := f.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), got.DeductionAmount)
	assert.Equal(t, int64(850000), got.ApprovedAmount)
	assert.Equal(t, int64(1), got.Version)
}

func TestClaimRepository_TransactionRollback(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	claim := f.newClaim(t, "CLM-20240514-00006")

	boom := errors.New("boom")
	err := f.db.WithTransaction(ctx, func(txCtx context.Context) error {
		update := &entity.ClaimStatusUpdate{
			ClaimID:         claim.ID,
			FromStatus:      workflow.StatusRegister,
			ToStatus:        workflow.StatusWaitCheck,
			ExpectedVersion: 1,
			UpdatedAt:       fixedNow,
		}
		if err := f.claims.UpdateStatus(txCtx, update); err != nil {
			return err
		}
		if err := f.notes.Create(txCtx, &entity.ClaimNote{
			ClaimID:   claim.ID,
			Body:      "should vanish",
			NoteType:  entity.NoteTypeGeneral,
			CreatedAt: fixedNow,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := f.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRegister, got.Status)
	assert.Equal(t, int64(1), got.Version)

	notes, err := f.notes.GetByClaimID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func setupMockClaimRepo(t *testing.T) (sqlmock.Sqlmock, *ClaimRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return mock, NewClaimRepository(db, zap.NewNop()).(*ClaimRepository)
}

func TestClaimRepository_UpdateStatus_NoRowsAffected(t *testing.T) {
	mock, repo := setupMockClaimRepo(t)

	mock.ExpectExec(`UPDATE claims SET status = \?, version = version \+ 1, updated_at = \? WHERE id = \? AND status = \? AND version = \?`).
		WithArgs(workflow.StatusWaitConfirm.Code(), fixedNow, int64(7), workflow.StatusWaitCheck.Code(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), &entity.ClaimStatusUpdate{
		ClaimID:         7,
		FromStatus:      workflow.StatusWaitCheck,
		ToStatus:        workflow.StatusWaitConfirm,
		ExpectedVersion: 3,
		UpdatedAt:       fixedNow,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_UpdateStatus_StampsSettlement(t *testing.T) {
	mock, repo := setupMockClaimRepo(t)

	mock.ExpectExec(`UPDATE claims SET .*settled_at = \? WHERE`).
		WithArgs(workflow.StatusArchived.Code(), fixedNow, fixedNow, int64(7), workflow.StatusWaitFinancial.Code(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), &entity.ClaimStatusUpdate{
		ClaimID:         7,
		FromStatus:      workflow.StatusWaitFinancial,
		ToStatus:        workflow.StatusArchived,
		ExpectedVersion: 5,
		SettledAt:       &fixedNow,
		UpdatedAt:       fixedNow,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_UpdateStatus_DriverError(t *testing.T) {
	mock, repo := setupMockClaimRepo(t)

	mock.ExpectExec(`UPDATE claims`).WillReturnError(errors.New("database is locked"))

	err := repo.UpdateStatus(context.Background(), &entity.ClaimStatusUpdate{
		ClaimID:         7,
		FromStatus:      workflow.StatusRegister,
		ToStatus:        workflow.StatusWaitCheck,
		ExpectedVersion: 1,
		UpdatedAt:       fixedNow,
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, workflow.ErrConcurrentModification))
	assert.NoError(t, mock.ExpectationsWereMet())
}
