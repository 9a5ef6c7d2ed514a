package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrLocationMismatch       = errors.New("location mismatch")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrValidation             = errors.New("validation failed")
	ErrConcurrencyConflict    = errors.New("concurrency conflict")
	ErrItemInUse              = errors.New("item in use")
	ErrDuplicateRequest       = errors.New("duplicate request")
)

// StockError explains a shortfall. Line is the 1-based request line, or 0
// outside fulfillment.
type StockError struct {
	ItemID    string
	Line      int
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *StockError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("insufficient stock on line %d: available %s, requested %s", e.Line, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock: available %s, requested %s", e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type TransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}
