// Package common defines shared constants and sentinel errors used across
// client and server layers of SyncList. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Device-code grant lifecycle errors.
	ErrGrantPending = errors.New("authorization pending")
	ErrGrantDenied  = errors.New("access denied")
	ErrGrantExpired = errors.New("device code expired")
	ErrSlowDown     = errors.New("polling too fast")
)
