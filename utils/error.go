package utils

import "errors"

// ErrorKind classifies engine failures so the HTTP layer can map them to
// status codes without string matching.
type ErrorKind string

const (
	ErrInvalidLoanParameters ErrorKind = "InvalidLoanParameters"
	ErrMissingRequiredField  ErrorKind = "MissingRequiredField"
	ErrDuplicateLoanId       ErrorKind = "DuplicateLoanId"
	ErrLoanNotFound          ErrorKind = "LoanNotFound"
	ErrInvalidPaymentAmount  ErrorKind = "InvalidPaymentAmount"
	ErrInvalidStatus         ErrorKind = "InvalidStatus"

	// ErrPersistenceFailure wraps storage errors. Domain kinds never carry
	// driver-level details; callers that need the cause can Unwrap.
	ErrPersistenceFailure ErrorKind = "PersistenceFailure"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WrapPersistence converts a storage error into a PersistenceFailure.
// nil stays nil so call sites can wrap unconditionally.
func WrapPersistence(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Kind: ErrPersistenceFailure, Message: "persistence failure", Err: err}
}

// KindOf returns the error's kind, or PersistenceFailure for anything
// that is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrPersistenceFailure
}
