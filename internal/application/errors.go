package application

import (
	"errors"

	"github.com/oksasatya/go-account-service/pkg/validation"
)

var (
	ErrDuplicateEmail    = errors.New("A user with that email already exists")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrNotFound          = errors.New("user not found")
	ErrEmailNotFound     = errors.New("Email not found")
	ErrIncorrectPassword = errors.New("Incorrect Password")
)

// ValidationError lists every violated input field.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Fields[0].Param + " " + e.Fields[0].Msg
}

// InternalError wraps a store or hashing failure. Its message is never shown to clients.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *InternalError) Unwrap() error { return e.Err }

func internal(op string, err error) error { return &InternalError{Op: op, Err: err} }

// TokenSigningError carries the signer's message, which login reports to the client.
type TokenSigningError struct {
	Err error
}

func (e *TokenSigningError) Error() string { return e.Err.Error() }
func (e *TokenSigningError) Unwrap() error { return e.Err }
