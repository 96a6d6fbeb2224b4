package session

import (
	"errors"

	"github.com/dmitrijs2005/synclist/internal/client/client"
)

// User-facing notices attached to session-changed notifications.
const (
	msgSignedIn       = "Signed in."
	msgSignedOut      = "Signed out."
	msgCancelled      = "Sign-in cancelled."
	msgExpired        = "Sign-in expired. Start again to get a new code."
	msgNetwork        = "Could not reach the server. Check your connection and try again."
	msgDenied         = "Sign-in was declined."
	msgInvalidCode    = "This sign-in code is no longer valid."
	msgLinkFailed     = "That sign-in link did not work. Request a new one and try again."
	msgSessionExpired = "Your session expired. Sign in again."
)

// activationMessage maps terminal device-code protocol errors to the fixed
// user-facing table.
func activationMessage(err error) string {
	switch {
	case errors.Is(err, client.ErrAccessDenied):
		return msgDenied
	case errors.Is(err, client.ErrDeviceCodeExpired):
		return msgExpired
	default:
		return msgInvalidCode
	}
}
