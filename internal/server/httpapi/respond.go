// Package httpapi is the REST and websocket transport of the SyncList
// backend: a chi router over the auth and sync services, plus a hub that
// fans realtime change events out to a user's connected devices.
package httpapi

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeErrorCode emits the {"error": CODE} body used by the device-code
// token endpoint and other protocol-level failures.
func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
