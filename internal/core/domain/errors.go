package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Queue errors
var (
	ErrDuplicateActiveEntry = errors.New("patient already has an active queue entry for this day")
	ErrQueueEmpty           = errors.New("no waiting queue entries")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrConcurrencyConflict  = errors.New("concurrent update conflict, retry the operation")
)

// Stock errors
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMedicineNotFound  = errors.New("medicine not found")
)

// InsufficientStockError reports which medicine blocked a deduction.
// errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	MedicineID   uint
	MedicineName string
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	if e.MedicineName != "" {
		return fmt.Sprintf("insufficient stock for %s (medicine %d): requested %d, available %d",
			e.MedicineName, e.MedicineID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for medicine %d: requested %d, available %d",
		e.MedicineID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
