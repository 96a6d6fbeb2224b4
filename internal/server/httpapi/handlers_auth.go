package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/synclist/internal/common"
)

func (a *API) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceName string `json:"deviceName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	da, err := a.auth.RequestDeviceCode(r.Context(), req.DeviceName)
	if err != nil {
		a.log.Error(r.Context(), "device code request failed", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deviceCode":      da.DeviceCode,
		"userCode":        da.UserCode,
		"verificationUri": da.VerificationURI,
		"expiresIn":       da.ExpiresIn,
		"interval":        da.Interval,
	})
}

// handleDeviceToken is the polling endpoint of the device-code flow. The
// grant state travels in the {"error": CODE} body so clients can tell
// "keep waiting" from hard failures.
func (a *API) handleDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceCode string `json:"deviceCode"`
	}
	if err := decodeJSON(r, &req); err != nil || req.DeviceCode == "" {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_GRANT")
		return
	}

	pair, err := a.auth.ExchangeDeviceCode(r.Context(), req.DeviceCode)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrGrantPending):
			writeErrorCode(w, http.StatusBadRequest, "AUTHORIZATION_PENDING")
		case errors.Is(err, common.ErrSlowDown):
			writeErrorCode(w, http.StatusBadRequest, "SLOW_DOWN")
		case errors.Is(err, common.ErrGrantExpired):
			writeErrorCode(w, http.StatusBadRequest, "EXPIRED_TOKEN")
		case errors.Is(err, common.ErrGrantDenied):
			writeErrorCode(w, http.StatusBadRequest, "ACCESS_DENIED")
		default:
			a.log.Error(r.Context(), "device token exchange failed", "error", err)
			writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenPairDoc{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (a *API) handleDeviceApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserCode string `json:"userCode"`
		Approve  bool   `json:"approve"`
	}
	if err := decodeJSON(r, &req); err != nil || req.UserCode == "" {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	var err error
	if req.Approve {
		err = a.auth.ApproveDevice(r.Context(), req.UserCode, userIDFromContext(r.Context()))
	} else {
		err = a.auth.DenyDevice(r.Context(), req.UserCode)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeErrorCode(w, http.StatusNotFound, "UNKNOWN_CODE")
			return
		}
		a.log.Error(r.Context(), "device approval failed", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMagicLinkRequest mints a login link. The response is the same for
// known and unknown emails; in dev mode the token comes back in the body
// since there is no mail delivery locally.
func (a *API) handleMagicLinkRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	token, err := a.auth.RequestMagicLink(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			writeErrorCode(w, http.StatusBadRequest, "INVALID_EMAIL")
			return
		}
		a.log.Error(r.Context(), "magic link request failed", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	body := map[string]any{"ok": true}
	if a.cfg.DevMode {
		a.log.Info(r.Context(), "magic link issued", "email", req.Email, "token", token)
		body["token"] = token
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleMagicLinkVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	user, pair, err := a.auth.VerifyMagicLink(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			writeErrorCode(w, http.StatusUnauthorized, "INVALID_TOKEN")
			return
		}
		a.log.Error(r.Context(), "magic link verification failed", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toUserDoc(user),
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_GRANT")
		return
	}

	pair, err := a.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrRefreshTokenExpired):
			writeErrorCode(w, http.StatusUnauthorized, "INVALID_GRANT")
		default:
			a.log.Error(r.Context(), "token refresh failed", "error", err)
			writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenPairDoc{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.GetUser(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED")
		return
	}
	writeJSON(w, http.StatusOK, toUserDoc(user))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.SignOut(r.Context(), userIDFromContext(r.Context())); err != nil {
		a.log.Error(r.Context(), "logout failed", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
