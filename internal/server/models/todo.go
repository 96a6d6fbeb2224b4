package models

// Todo is a task row. WorkspaceID is empty for legacy rows created before
// the owning account had a workspace; those stay invisible to sync until
// explicitly migrated. CreatedAt/UpdatedAt are epoch milliseconds, matching
// the wire format.
type Todo struct {
	ID          string
	UserID      string
	WorkspaceID string
	Text        string
	Completed   bool
	CreatedAt   int64
	UpdatedAt   int64
}
