package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller is not allowed to perform the operation.
var ErrForbidden = errors.New("operation forbidden")

// ErrConflict indicates the operation conflicts with the current state of the resource.
var ErrConflict = errors.New("operation conflicts with current state")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// ErrAllocation indicates that a valid cost split could not be produced
// from the given total, participants and rules.
var ErrAllocation = errors.New("allocation error")

// ErrAlreadyVoid indicates that a ledger entry targeted for voiding or
// correction has already been voided. Voiding is terminal.
var ErrAlreadyVoid = errors.New("ledger entry is already void")

// ErrSuperseded indicates that a ledger entry is already the corrected-from
// target of another entry; a correction chain has at most one live head.
var ErrSuperseded = errors.New("ledger entry has already been superseded")

// ErrLastMaster indicates an attempt to demote or delete the only Master
// admin account. The Master count can never drop to zero.
var ErrLastMaster = errors.New("cannot remove the last master admin account")

// ErrDuplicateMaster indicates an attempt to promote a second account to
// Master while one already exists.
var ErrDuplicateMaster = errors.New("a master admin account already exists")

// ErrIntegrity indicates a sum-of-charges mismatch or a concurrent
// modification conflict detected at commit time. The transaction is rolled
// back, so the caller may safely retry.
var ErrIntegrity = errors.New("ledger integrity violation")

// AppError wraps a lower-level error with an HTTP-ish status code and a
// human message. Repositories use it for infrastructure failures so handlers
// can distinguish them from the domain sentinels above.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that also matches ErrNotFound via errors.Is.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
