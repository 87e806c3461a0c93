package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the token service. Every failure crossing a
// component boundary is classified as exactly one of these so the HTTP
// layer can respond uniformly without leaking which check failed.
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")

	// Access token errors
	ErrMalformed    = errors.New("malformed token")
	ErrBadSignature = errors.New("bad token signature")
	ErrExpired      = errors.New("token expired")
	ErrRevoked      = errors.New("token revoked")

	// Refresh token errors
	ErrNotFound = errors.New("token not found")

	// Store errors
	ErrUnavailable = errors.New("store unavailable")
)

// Kind returns the stable wire identifier for an error kind, or
// "internal_error" for anything unclassified. Handlers use it to build
// error bodies.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal_error"
	}
}

// IsAuthFailure reports whether err is one of the authentication or
// authorization failure kinds, as opposed to a transient store problem.
func IsAuthFailure(err error) bool {
	for _, kind := range []error{
		ErrInvalidCredentials, ErrAccountLocked, ErrMalformed,
		ErrBadSignature, ErrExpired, ErrRevoked, ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
