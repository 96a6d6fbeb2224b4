package models

import "time"

// MagicLink is a single-use sign-in token delivered out of band. Consuming it
// signs the email's account in; a consumed or expired link is rejected.
type MagicLink struct {
	Token      string
	Email      string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
