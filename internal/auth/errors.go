package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, inactive account and wrong
	// password alike so responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates a token failed verification for any reason;
	// expired and malformed tokens are deliberately not distinguished.
	ErrInvalidToken = errors.New("invalid token")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
	ErrForbidden    = errors.New("permission denied")
)
