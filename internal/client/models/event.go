package models

import "encoding/json"

// EventType enumerates the realtime frame types the backend emits.
type EventType string

const (
	EventConnected EventType = "connected"

	EventTaskCreated EventType = "task:created"
	EventTaskUpdated EventType = "task:updated"
	EventTaskDeleted EventType = "task:deleted"

	EventIssueCreated EventType = "issue:created"
	EventIssueUpdated EventType = "issue:updated"
	EventIssueDeleted EventType = "issue:deleted"

	EventSprintCreated   EventType = "sprint:created"
	EventSprintUpdated   EventType = "sprint:updated"
	EventSprintDeleted   EventType = "sprint:deleted"
	EventSprintCompleted EventType = "sprint:completed"

	EventTagCreated EventType = "tag:created"
	EventTagUpdated EventType = "tag:updated"
	EventTagDeleted EventType = "tag:deleted"

	EventProjectCreated EventType = "project:created"
	EventProjectUpdated EventType = "project:updated"
	EventProjectDeleted EventType = "project:deleted"
)

// Event is a single inbound realtime frame. Data is kept raw; consumers
// decode it based on Type.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
