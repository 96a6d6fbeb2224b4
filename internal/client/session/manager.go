// Package session owns the authenticated session: the two activation flows
// (device-code polling and magic link), refresh rotation, sign-out, and
// session-changed notifications.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/synclist/internal/client/client"
	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/client/storage"
	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/logging"
)

// Status is the coarse session state.
type Status string

const (
	StatusSignedOut         Status = "signed_out"
	StatusActivationPending Status = "activation_pending"
	StatusAuthenticated     Status = "authenticated"
)

// ErrActivationInProgress is returned by StartActivation when an activation
// flow is already pending.
var ErrActivationInProgress = errors.New("activation already in progress")

// PendingActivation is what the UI needs to show while the user approves the
// device on another surface.
type PendingActivation struct {
	UserCode        string
	VerificationURI string
	ExpiresAt       time.Time
}

// State is an immutable snapshot handed to subscribers on every transition.
// Message carries the user-facing notice for terminal activation outcomes.
type State struct {
	Status  Status
	Pending *PendingActivation
	User    *models.User
	Message string
}

// TokenStore is the subset of local storage the manager needs.
type TokenStore interface {
	GetTokens(ctx context.Context) (storage.TokenPair, error)
	SetTokens(ctx context.Context, pair storage.TokenPair) error
	ClearTokens(ctx context.Context) error
}

// Manager owns AuthSession state. All exported methods are safe for
// concurrent use; subscribers are invoked outside the internal lock.
type Manager struct {
	client client.Client
	store  TokenStore
	log    logging.Logger

	deviceName   string
	pollInterval time.Duration

	mu           sync.Mutex
	status       Status
	pending      *PendingActivation
	user         *models.User
	cancelFlag   *atomic.Bool // per-activation; nil when no flow is pending
	linkInFlight bool
	devFakeTier  common.Tier
	subs         []func(State)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithPollInterval overrides the base device-code polling interval
// (default 2s). Used by tests to compress time.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithDeviceName sets the device name reported during activation.
func WithDeviceName(name string) Option {
	return func(m *Manager) { m.deviceName = name }
}

// NewManager constructs a Manager. The initial status is derived from the
// token store: stored tokens mean the previous session is still considered
// authenticated until the server says otherwise.
func NewManager(ctx context.Context, c client.Client, store TokenStore, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		client:       c,
		store:        store,
		log:          log,
		deviceName:   "synclist-cli",
		pollInterval: 2 * time.Second,
		status:       StatusSignedOut,
	}
	for _, opt := range opts {
		opt(m)
	}

	pair, err := store.GetTokens(ctx)
	if err != nil {
		log.Warn(ctx, "failed to load stored tokens", "err", err)
	} else if pair.Access != "" {
		m.status = StatusAuthenticated
	}
	return m
}

// Subscribe registers fn to receive a snapshot on every session transition.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked("")
}

func (m *Manager) snapshotLocked(message string) State {
	s := State{Status: m.status, Message: message}
	if m.pending != nil {
		p := *m.pending
		s.Pending = &p
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// notifyLocked snapshots state under the lock, then releases it to invoke
// subscribers. Callers must hold m.mu and must not touch state afterwards.
func (m *Manager) notifyLocked(message string) {
	snapshot := m.snapshotLocked(message)
	subs := append([]func(State)(nil), m.subs...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
	m.mu.Lock()
}

// StartActivation begins the device-code flow. If an activation is already
// pending it returns ErrActivationInProgress and changes nothing.
func (m *Manager) StartActivation(ctx context.Context) (*PendingActivation, error) {
	m.mu.Lock()
	if m.pending != nil {
		m.mu.Unlock()
		return nil, ErrActivationInProgress
	}
	m.mu.Unlock()

	grant, err := m.client.RequestDeviceCode(ctx, m.deviceName)
	if err != nil {
		m.log.Warn(ctx, "device code request failed", "err", err)
		return nil, err
	}

	pending := &PendingActivation{
		UserCode:        grant.UserCode,
		VerificationURI: grant.VerificationURI,
		ExpiresAt:       time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
	cancelled := &atomic.Bool{}

	m.mu.Lock()
	if m.pending != nil {
		// Lost the race to a concurrent StartActivation.
		m.mu.Unlock()
		return nil, ErrActivationInProgress
	}
	m.pending = pending
	m.cancelFlag = cancelled
	m.status = StatusActivationPending
	m.notifyLocked("")
	m.mu.Unlock()

	go m.pollLoop(ctx, grant.DeviceCode, pending.ExpiresAt, cancelled)

	p := *pending
	return &p, nil
}

// pollLoop exchanges the device code until a terminal outcome. Cancellation
// is a shared flag consulted after every wait and every round-trip rather
// than a request abort, so in-flight responses never race a torn-down state.
func (m *Manager) pollLoop(ctx context.Context, deviceCode string, expiresAt time.Time, cancelled *atomic.Bool) {
	interval := m.pollInterval

	for {
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			m.finishActivation(cancelled, msgCancelled)
			return
		}
		if cancelled.Load() {
			m.finishActivation(cancelled, msgCancelled)
			return
		}
		if !time.Now().Before(expiresAt) {
			m.finishActivation(cancelled, msgExpired)
			return
		}

		pair, err := m.client.ExchangeDeviceCode(ctx, deviceCode)
		if cancelled.Load() {
			m.finishActivation(cancelled, msgCancelled)
			return
		}

		switch {
		case err == nil:
			m.completeActivation(ctx, pair, nil, cancelled)
			return
		case errors.Is(err, client.ErrAuthorizationPending):
			// Keep polling at the current interval.
		case errors.Is(err, client.ErrSlowDown):
			interval += time.Second
		case errors.Is(err, client.ErrUnavailable):
			m.finishActivation(cancelled, msgNetwork)
			return
		default:
			m.finishActivation(cancelled, activationMessage(err))
			return
		}
	}
}

// finishActivation clears pending state and notifies with a terminal
// message. It is a no-op if another path already finished this activation.
func (m *Manager) finishActivation(cancelled *atomic.Bool, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelFlag != cancelled {
		return
	}
	m.pending = nil
	m.cancelFlag = nil
	if m.status == StatusActivationPending {
		m.status = StatusSignedOut
	}
	m.notifyLocked(message)
}

// completeActivation stores the token pair, loads the profile, and moves the
// session to Authenticated.
func (m *Manager) completeActivation(ctx context.Context, pair *client.TokenPair, user *models.User, cancelled *atomic.Bool) {
	if err := m.store.SetTokens(ctx, storage.TokenPair{Access: pair.AccessToken, Refresh: pair.RefreshToken}); err != nil {
		m.log.Error(ctx, "failed to persist tokens", "err", err)
	}

	if user == nil {
		u, err := m.client.Me(ctx, pair.AccessToken)
		if err != nil {
			m.log.Warn(ctx, "profile fetch after activation failed", "err", err)
		} else {
			user = u
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cancelled != nil && m.cancelFlag != cancelled {
		return
	}
	m.pending = nil
	m.cancelFlag = nil
	m.user = user
	m.status = StatusAuthenticated
	m.notifyLocked(msgSignedIn)
}

// CancelActivation requests the pending activation to stop. In-flight
// requests are not aborted; the polling loop observes the flag on its next
// step.
func (m *Manager) CancelActivation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelFlag != nil {
		m.cancelFlag.Store(true)
	}
}

// CompleteViaMagicLink verifies an externally delivered magic-link token and
// establishes the session. A second call while one is in flight is a no-op.
func (m *Manager) CompleteViaMagicLink(ctx context.Context, token string) error {
	m.mu.Lock()
	if m.linkInFlight {
		m.mu.Unlock()
		return nil
	}
	m.linkInFlight = true
	cancelled := m.cancelFlag
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.linkInFlight = false
		m.mu.Unlock()
	}()

	result, err := m.client.VerifyMagicLink(ctx, token)
	if err != nil {
		m.log.Warn(ctx, "magic link verification failed", "err", err)
		return errors.New(msgLinkFailed)
	}

	// A concurrent device-code poll must not finish on top of this.
	if cancelled != nil {
		cancelled.Store(true)
	}

	user := result.User
	m.completeActivation(ctx, &result.TokenPair, &user, nil)
	return nil
}

// refresh exchanges the refresh token for a new access token.
//
// Storage policy: the new access token is always stored; the new refresh
// token is stored only if the server rotated it. Tokens are cleared only on
// an explicit invalid-grant answer; transient failures leave them in place,
// since they may still be valid.
func (m *Manager) refresh(ctx context.Context) error {
	pair, err := m.store.GetTokens(ctx)
	if err != nil {
		return err
	}
	if pair.Refresh == "" {
		return client.ErrUnauthorized
	}

	fresh, err := m.client.Refresh(ctx, pair.Refresh)
	if err != nil {
		if errors.Is(err, client.ErrInvalidGrant) {
			m.log.Info(ctx, "refresh token rejected, signing out")
			m.clearSession(ctx, msgSessionExpired)
		}
		return err
	}

	pair.Access = fresh.AccessToken
	if fresh.RefreshToken != "" {
		pair.Refresh = fresh.RefreshToken
	}
	return m.store.SetTokens(ctx, pair)
}

// FetchUser loads the profile. On a 401 it attempts exactly one refresh and
// retries once; any other failure yields nil without touching the session.
func (m *Manager) FetchUser(ctx context.Context) *models.User {
	if tier := m.fakeTier(); tier != "" {
		return m.fakeUser(tier)
	}

	user := m.fetchUserOnce(ctx)
	if user == nil {
		return nil
	}

	m.mu.Lock()
	m.user = user
	if m.status != StatusAuthenticated {
		m.status = StatusAuthenticated
	}
	m.notifyLocked("")
	m.mu.Unlock()

	u := *user
	return &u
}

func (m *Manager) fetchUserOnce(ctx context.Context) *models.User {
	pair, err := m.store.GetTokens(ctx)
	if err != nil || pair.Access == "" {
		return nil
	}

	user, err := m.client.Me(ctx, pair.Access)
	if err == nil {
		return user
	}
	if !errors.Is(err, client.ErrUnauthorized) {
		m.log.Warn(ctx, "profile fetch failed", "err", err)
		return nil
	}

	if err := m.refresh(ctx); err != nil {
		return nil
	}
	pair, err = m.store.GetTokens(ctx)
	if err != nil || pair.Access == "" {
		return nil
	}
	user, err = m.client.Me(ctx, pair.Access)
	if err != nil {
		m.log.Warn(ctx, "profile fetch retry failed", "err", err)
		return nil
	}
	return user
}

// SignOut clears tokens and user state and cancels any pending activation.
func (m *Manager) SignOut(ctx context.Context) {
	m.CancelActivation()
	m.clearSession(ctx, msgSignedOut)
}

func (m *Manager) clearSession(ctx context.Context, message string) {
	if err := m.store.ClearTokens(ctx); err != nil {
		m.log.Error(ctx, "failed to clear tokens", "err", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.status = StatusSignedOut
	m.notifyLocked(message)
}

// AccessToken returns the stored access token, or "" when signed out.
func (m *Manager) AccessToken(ctx context.Context) string {
	pair, err := m.store.GetTokens(ctx)
	if err != nil {
		return ""
	}
	return pair.Access
}

// IsAuthenticated reports whether a session is established. The dev tier
// override makes this unconditionally true.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	if m.fakeTier() != "" {
		return true
	}
	return m.AccessToken(ctx) != ""
}

// CanSync reports whether the account tier includes cloud sync. The profile
// is fetched lazily when unknown.
func (m *Manager) CanSync(ctx context.Context) bool {
	if tier := m.fakeTier(); tier != "" {
		return tier.CanSync()
	}

	m.mu.Lock()
	user := m.user
	m.mu.Unlock()

	if user == nil {
		user = m.FetchUser(ctx)
	}
	return user != nil && user.Tier.CanSync()
}

// SetDevFakeTier forces the given tier for test/demo purposes, bypassing the
// network path entirely. An empty tier restores normal behavior.
func (m *Manager) SetDevFakeTier(tier common.Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devFakeTier = tier
}

func (m *Manager) fakeTier() common.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devFakeTier
}

func (m *Manager) fakeUser(tier common.Tier) *models.User {
	return &models.User{ID: "dev", Email: "dev@localhost", Tier: tier}
}
