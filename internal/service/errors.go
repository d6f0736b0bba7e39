package service

import "errors"

// Validation sentinels. Both are reported before any portal call.
var (
	ErrMissingPortalURL  = errors.New("portal URL is required")
	ErrMissingMACAddress = errors.New("MAC address is required")
	ErrInvalidMode       = errors.New("unknown enumeration mode")
)

// ValidationError marks a request that was rejected without touching the
// portal. errors.Is matches the wrapped sentinel.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
