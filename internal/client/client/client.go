// Package client implements the JSON-over-HTTP API client used by the
// session manager and the sync engine. It knows nothing about local state;
// it only shapes requests, maps response codes to sentinel errors, and
// decodes bodies.
package client

import (
	"context"

	"github.com/dmitrijs2005/synclist/internal/client/models"
)

// DeviceCodeGrant is the server's answer to a device-code request.
type DeviceCodeGrant struct {
	DeviceCode      string `json:"deviceCode"`
	UserCode        string `json:"userCode"`
	VerificationURI string `json:"verificationUri"`
	ExpiresIn       int    `json:"expiresIn"`
	Interval        int    `json:"interval"`
}

// TokenPair bundles an access token with an optional refresh token.
// RefreshToken is empty when the server chose not to rotate it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// MagicLinkResult is the server's answer to a magic-link verification:
// a full token pair plus the user profile.
type MagicLinkResult struct {
	TokenPair
	User models.User `json:"user"`
}

// PullResult is the server's answer to a sync pull: the workspace task set,
// legacy items not bound to any workspace, and any divergent task pairs the
// server wants a human to resolve.
type PullResult struct {
	WorkspaceTodos  []models.Task     `json:"workspaceTodos"`
	UnassignedTodos []models.Task     `json:"unassignedTodos"`
	Conflicts       []models.Conflict `json:"conflicts,omitempty"`
}

// Client is the remote API surface the client core depends on.
//
// Contract:
//   - RequestDeviceCode / ExchangeDeviceCode: the polling activation flow.
//     ExchangeDeviceCode returns the protocol sentinels (ErrAuthorizationPending,
//     ErrSlowDown, ...) while the grant is not yet approved.
//   - VerifyMagicLink: the out-of-band activation flow, single round-trip.
//   - Refresh: exchanges a refresh token for a new pair. Returns
//     ErrInvalidGrant when the server rejects the token as invalid (400/401);
//     any other failure must be treated as transient.
//   - Me: fetches the profile; ErrUnauthorized on 401.
//   - Push/Pull/MigrateUnassigned: workspace task synchronization.
//
// All methods must honor context cancellation/timeouts.
type Client interface {
	RequestDeviceCode(ctx context.Context, deviceName string) (*DeviceCodeGrant, error)
	ExchangeDeviceCode(ctx context.Context, deviceCode string) (*TokenPair, error)
	VerifyMagicLink(ctx context.Context, token string) (*MagicLinkResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Me(ctx context.Context, accessToken string) (*models.User, error)
	Push(ctx context.Context, accessToken, workspaceID string, todos []models.Task, lastSyncAt int64) error
	Pull(ctx context.Context, accessToken, workspaceID string) (*PullResult, error)
	MigrateUnassigned(ctx context.Context, accessToken, workspaceID string) error
}
