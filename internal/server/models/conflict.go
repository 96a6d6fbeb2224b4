package models

// Conflict is a divergent task pair recorded during a push and delivered to
// the owning client on the next pull. Local and Remote hold the two task
// versions as wire JSON.
type Conflict struct {
	ID     string
	UserID string
	Local  []byte
	Remote []byte
}
