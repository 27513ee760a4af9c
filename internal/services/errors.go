package services

import "errors"

// Sentinel errors shared by all services. Handlers map these to either a
// re-rendered form (validation, credentials), a 403/404, or a generic 500.
var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when the acting user does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials covers unknown email, wrong password and
	// unverified accounts alike, so the login page cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput is returned for a well-formed request carrying a value
	// outside the allowed set (e.g. an unknown listing status).
	ErrInvalidInput = errors.New("invalid input")

	// ErrSelfChat is returned when a user tries to open a chat room on their
	// own listing.
	ErrSelfChat = errors.New("cannot open a chat room on your own listing")
)

// ValidationError carries a user-correctable message to re-render a form
// with. It is never produced from infrastructure failures.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// AsValidation extracts a ValidationError from err, if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
