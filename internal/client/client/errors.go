package client

import "errors"

var (
	// ErrUnavailable marks transport-level failures (DNS, refused, timeout).
	// Callers treat it as transient and retry on the next natural trigger.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized marks a 401 on an authenticated endpoint.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidGrant marks an explicit 400/401 on token exchange or refresh:
	// the presented credential is known-bad and must not be reused.
	ErrInvalidGrant = errors.New("invalid grant")

	// Device-code protocol sentinels, mapped from the {error: code} body.
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrSlowDown             = errors.New("slow down")
	ErrDeviceCodeExpired    = errors.New("device code expired")
	ErrAccessDenied         = errors.New("access denied")
)

// deviceCodeErrors maps the wire error codes of POST /auth/token to
// sentinel errors. Unknown codes fall through to ErrInvalidGrant.
var deviceCodeErrors = map[string]error{
	"AUTHORIZATION_PENDING": ErrAuthorizationPending,
	"SLOW_DOWN":             ErrSlowDown,
	"EXPIRED_TOKEN":         ErrDeviceCodeExpired,
	"ACCESS_DENIED":         ErrAccessDenied,
	"INVALID_GRANT":         ErrInvalidGrant,
}

// MapDeviceCodeError resolves a wire error code to its sentinel.
func MapDeviceCodeError(code string) error {
	if err, ok := deviceCodeErrors[code]; ok {
		return err
	}
	return ErrInvalidGrant
}
