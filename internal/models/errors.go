package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the storage, auth and ledger packages
// matches exactly one of these through errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrInfrastructure = errors.New("infrastructure error")
)

var (
	// Validation
	ErrMissingFields = kindError(ErrValidation, "missing fields")
	ErrMissingEmail  = kindError(ErrValidation, "missing email")
	ErrMissingID     = kindError(ErrValidation, "missing transaction id")
	ErrNoFields      = kindError(ErrValidation, "no fields to update")

	// Authentication
	ErrInvalidCredentials = kindError(ErrAuthentication, "invalid credentials")
	ErrNotLoggedIn        = kindError(ErrAuthentication, "not logged in")

	// Conflict
	ErrEmailInUse = kindError(ErrConflict, "email already in use")

	// Not found
	ErrUserNotFound        = kindError(ErrNotFound, "user not found")
	ErrTransactionNotFound = kindError(ErrNotFound, "transaction not found")
)

type kindErr struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &kindErr{kind: kind, msg: msg}
}

func (e *kindErr) Error() string { return e.msg }
func (e *kindErr) Unwrap() error { return e.kind }

// ValidationError represents a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// InfraError wraps a failure of the underlying store.
type InfraError struct {
	Op  string
	Err error
}

// Infra wraps err as an infrastructure failure of op. A nil err stays nil.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InfraError{Op: op, Err: err}
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() []error { return []error{ErrInfrastructure, e.Err} }

// Kind returns a stable name for the kind of err, or "" when err is not one of ours.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInfrastructure):
		return "infrastructure"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return ""
}
