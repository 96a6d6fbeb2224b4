// Package services holds the server business logic between the HTTP
// transport and the repositories: the device-code and magic-link auth
// flows, refresh token rotation, and workspace synchronization.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/dbx"
	"github.com/dmitrijs2005/synclist/internal/server/auth"
	"github.com/dmitrijs2005/synclist/internal/server/config"
	"github.com/dmitrijs2005/synclist/internal/server/models"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/repomanager"
)

// userCodeAlphabet excludes visually ambiguous characters (0/O, 1/I/L)
// since the user retypes the code by hand on another device.
const userCodeAlphabet = "BCDFGHJKMNPQRSTVWXYZ23456789"

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// DeviceAuthorization is the response to a device-code request. ExpiresIn
// and Interval are in seconds, following the RFC 8628 response shape.
type DeviceAuthorization struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int
	Interval        int
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	deviceCodeValidityDuration   time.Duration
	deviceCodePollInterval       time.Duration
	magicLinkValidityDuration    time.Duration
	verificationURI              string

	mu       sync.Mutex
	lastPoll map[string]time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		deviceCodeValidityDuration:   cfg.DeviceCodeValidityDuration,
		deviceCodePollInterval:       cfg.DeviceCodePollInterval,
		magicLinkValidityDuration:    cfg.MagicLinkValidityDuration,
		verificationURI:              cfg.VerificationURI,
	}
}

// RequestDeviceCode starts a device-code grant: it mints an opaque device
// code for polling and a short human-typable user code for approval.
func (s *AuthService) RequestDeviceCode(ctx context.Context, deviceName string) (*DeviceAuthorization, error) {

	deviceCode, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}

	userCode, err := makeUserCode()
	if err != nil {
		return nil, common.ErrInternal
	}

	grant := &models.DeviceGrant{
		DeviceCode: deviceCode,
		UserCode:   userCode,
		DeviceName: deviceName,
		Status:     models.GrantPending,
		ExpiresAt:  time.Now().Add(s.deviceCodeValidityDuration),
	}

	repo := s.repomanager.DeviceGrants(s.db)
	if err := repo.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("error creating device grant: %v", err)
	}

	return &DeviceAuthorization{
		DeviceCode:      deviceCode,
		UserCode:        userCode,
		VerificationURI: s.verificationURI,
		ExpiresIn:       int(s.deviceCodeValidityDuration.Seconds()),
		Interval:        int(s.deviceCodePollInterval.Seconds()),
	}, nil
}

// ExchangeDeviceCode is the polling half of the grant. It returns
// common.ErrGrantPending until the user approves, common.ErrSlowDown when
// polled faster than the advertised interval, and a token pair once the
// grant is approved. Approved, denied and expired grants are consumed.
func (s *AuthService) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*TokenPair, error) {

	if s.polledTooFast(deviceCode) {
		return nil, common.ErrSlowDown
	}

	repo := s.repomanager.DeviceGrants(s.db)

	grant, err := repo.FindByDeviceCode(ctx, deviceCode)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrGrantDenied
		}
		return nil, common.ErrInternal
	}

	if grant.ExpiresAt.Before(time.Now()) {
		_ = repo.Delete(ctx, deviceCode)
		s.forgetPoll(deviceCode)
		return nil, common.ErrGrantExpired
	}

	switch grant.Status {
	case models.GrantPending:
		return nil, common.ErrGrantPending
	case models.GrantDenied:
		_ = repo.Delete(ctx, deviceCode)
		s.forgetPoll(deviceCode)
		return nil, common.ErrGrantDenied
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.DeviceGrants(tx).Delete(ctx, deviceCode); err != nil {
			return fmt.Errorf("error deleting device grant: %v", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, grant.UserID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %v", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.forgetPoll(deviceCode)
	return tokenPair, nil
}

// ApproveDevice attaches the authenticated user to a pending grant.
// Unknown, expired or already-decided user codes yield common.ErrNotFound.
func (s *AuthService) ApproveDevice(ctx context.Context, userCode, userID string) error {
	repo := s.repomanager.DeviceGrants(s.db)
	return repo.SetStatus(ctx, normalizeUserCode(userCode), models.GrantApproved, userID)
}

// DenyDevice marks a pending grant as denied; the polling device gets
// access_denied on its next poll.
func (s *AuthService) DenyDevice(ctx context.Context, userCode string) error {
	repo := s.repomanager.DeviceGrants(s.db)
	return repo.SetStatus(ctx, normalizeUserCode(userCode), models.GrantDenied, "")
}

// RequestMagicLink mints a single-use login token for email. Delivery is
// the caller's concern; in dev mode the handler just logs the link.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) (string, error) {

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", common.ErrInvalidToken
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrInternal
	}

	repo := s.repomanager.MagicLinks(s.db)
	if err := repo.Create(ctx, token, email, s.magicLinkValidityDuration); err != nil {
		return "", fmt.Errorf("error creating magic link: %v", err)
	}

	return token, nil
}

// VerifyMagicLink consumes a magic-link token, creating the account on
// first login, and returns the profile with a fresh token pair.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*models.User, *TokenPair, error) {

	link, err := s.repomanager.MagicLinks(s.db).Consume(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		return nil, nil, common.ErrInternal
	}

	user, err := s.FindOrCreateUser(ctx, link.Email, common.TierFree)
	if err != nil {
		return nil, nil, err
	}

	var tokenPair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tokenPair, err = s.generateTokenPair(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, nil, common.ErrInternal
	}

	return user, tokenPair, nil
}

// RefreshToken rotates a refresh token: the old token is deleted and a new
// pair is issued in the same transaction, so a token can be redeemed once.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {

	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %v", err)
	}

	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %v", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, token.UserID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %v", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// SignOut drops every refresh token the user holds. Issued access tokens
// stay valid until they expire.
func (s *AuthService) SignOut(ctx context.Context, userID string) error {
	return s.repomanager.RefreshTokens(s.db).DeleteForUser(ctx, userID)
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}
	return user, nil
}

// FindOrCreateUser looks the account up by email and creates it with the
// given tier when absent. Existing accounts keep their tier.
func (s *AuthService) FindOrCreateUser(ctx context.Context, email string, tier common.Tier) (*models.User, error) {

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInternal
	}

	user, err = repo.Create(ctx, email, tier)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	return user, nil
}

func (s *AuthService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *AuthService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrInternal
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrInternal
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) polledTooFast(deviceCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastPoll == nil {
		s.lastPoll = make(map[string]time.Time)
	}

	now := time.Now()
	last, ok := s.lastPoll[deviceCode]
	s.lastPoll[deviceCode] = now
	return ok && now.Sub(last) < s.deviceCodePollInterval
}

func (s *AuthService) forgetPoll(deviceCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastPoll, deviceCode)
}

func makeUserCode() (string, error) {
	raw := common.GenerateRandByteArray(8)
	code := make([]byte, 0, 9)
	for i, b := range raw {
		if i == 4 {
			code = append(code, '-')
		}
		code = append(code, userCodeAlphabet[int(b)%len(userCodeAlphabet)])
	}
	return string(code), nil
}

func normalizeUserCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
