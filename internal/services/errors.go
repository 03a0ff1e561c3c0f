package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Handlers translate these to
// HTTP statuses; everything else is treated as an internal error.
var (
	// ErrEmailTaken is returned when the duplicate pre-check finds an
	// existing account for the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrEmailConflict is returned when the insert itself hits the unique
	// constraint: two registrations raced past the pre-check and the
	// database rejected the loser.
	ErrEmailConflict = errors.New("email already registered (concurrent registration)")

	// ErrPasswordTooLong guards the bcrypt 72-byte input ceiling.
	ErrPasswordTooLong = errors.New("password must be 72 bytes or fewer")

	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInvalidToken covers malformed, tampered, expired and
	// missing-subject tokens uniformly.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTodoNotFound covers both absent todos and todos owned by someone
	// else, so existence never leaks across owners.
	ErrTodoNotFound = errors.New("todo not found")
)

// ValidationError reports a field-level constraint violation in a request
// payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
