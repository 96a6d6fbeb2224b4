package models

// ResolutionPolicy names the three ways a human can resolve a conflict.
type ResolutionPolicy string

const (
	// KeepLocal keeps the local version; the remote one is discarded.
	KeepLocal ResolutionPolicy = "keep_local"
	// KeepRemote replaces the local version with the remote one.
	KeepRemote ResolutionPolicy = "keep_remote"
	// KeepBoth keeps the local version and appends the remote one under a
	// derived id.
	KeepBoth ResolutionPolicy = "keep_both"
)

// Valid reports whether p is one of the three known policies.
func (p ResolutionPolicy) Valid() bool {
	switch p {
	case KeepLocal, KeepRemote, KeepBoth:
		return true
	}
	return false
}

// Conflict is a pair of divergent local/remote versions of the same task,
// awaiting human resolution. Conflicts are produced by the server (in the
// pull response); the client only consumes and resolves them.
type Conflict struct {
	ID     string `json:"id"`
	Local  Task   `json:"localTask"`
	Remote Task   `json:"remoteTask"`
}
