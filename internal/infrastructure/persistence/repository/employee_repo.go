package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// EmployeeRepository implements port.EmployeeRepository
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new employee
func (r *EmployeeRepository) Create(ctx context.Context, employee *entity.Employee) error {
	query := `
		INSERT INTO employees (national_code, first_name, last_name, personnel_code, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		employee.NationalCode,
		employee.FirstName,
		employee.LastName,
		nullString(employee.PersonnelCode),
		employee.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create employee", zap.Error(err))
		return fmt.Errorf("failed to create employee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	employee.ID = id
	return nil
}

// GetByID retrieves an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByNationalCode retrieves an employee by national code
func (r *EmployeeRepository) GetByNationalCode(ctx context.Context, nationalCode string) (*entity.Employee, error) {
	return r.getOne(ctx, "national_code = ?", nationalCode)
}

func (r *EmployeeRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Employee, error) {
	query := `
		SELECT id, national_code, first_name, last_name, personnel_code, created_at
		FROM employees
		WHERE ` + where

	var employee entity.Employee
	var personnelCode sql.NullString

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&employee.ID,
		&employee.NationalCode,
		&employee.FirstName,
		&employee.LastName,
		&personnelCode,
		&employee.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	employee.PersonnelCode = personnelCode.String
	return &employee, nil
}

// Verify interface compliance
var _ port.EmployeeRepository = (*EmployeeRepository)(nil)
