package common

const (
	// AuthorizationHeader carries the bearer access token on REST and
	// websocket handshake requests.
	AuthorizationHeader = "Authorization"

	// DevIdentityHeader carries a fixed development identity. The server
	// honors it only when running in dev mode; it fully replaces the bearer
	// token for local testing.
	DevIdentityHeader = "X-Dev-Identity"
)

// Tier is the account access level. Cloud sync and realtime features are
// active for pro and team accounts only; free accounts persist locally.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierTeam Tier = "team"
)

// CanSync reports whether the tier includes cloud synchronization.
func (t Tier) CanSync() bool {
	return t == TierPro || t == TierTeam
}
