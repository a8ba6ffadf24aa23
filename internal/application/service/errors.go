package service

import "errors"

// Lookup and validation failures surfaced by the services
var (
	ErrClaimNotFound    = errors.New("claim not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyExists    = errors.New("already exists")
	ErrExportDisabled   = errors.New("settlement export not configured")
)
