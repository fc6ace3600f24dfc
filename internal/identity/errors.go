package identity

import "errors"

var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrMissingToken indicates a token was required but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidSecret indicates the signing secret is too short
	ErrInvalidSecret = errors.New("jwt secret must be at least 32 characters")
)

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrMissingToken)
}
