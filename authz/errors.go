package authz

import "errors"

// Common errors
var (
	ErrForbidden       = errors.New("forbidden: you don't have permission to perform this action")
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict: resource was modified concurrently")
	ErrPendingApproval = errors.New("account is pending administrator approval")
	ErrCargoInUse      = errors.New("cargo is still referenced by one or more users")
)
