package ledger

import (
	"errors"
	"fmt"
)

// Error classes. Callers branch on these with errors.Is.
var (
	// ErrValidation is a rejected request that changed nothing.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an unknown transaction or inventory item.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent operation changed the record first.
	// Retrying may succeed.
	ErrConflict = errors.New("modified concurrently")
	// ErrConsistency means a unit of work detected a partial write and was
	// rolled back.
	ErrConsistency = errors.New("consistency fault")
)

// Specific validation failures, all wrapping ErrValidation.
var (
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInsufficientRedemption = fmt.Errorf("%w: insufficient for redemption", ErrValidation)
	ErrNotActive              = fmt.Errorf("%w: transaction is not active", ErrValidation)
	ErrNoItems                = fmt.Errorf("%w: transaction has no items", ErrValidation)
	ErrInvalidPawn            = fmt.Errorf("%w: invalid pawn", ErrValidation)
	ErrNotAvailable           = fmt.Errorf("%w: inventory item not available", ErrValidation)
)
