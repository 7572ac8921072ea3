package eventbus

import "time"

type EventType string

const (
	EventTaskCreated  EventType = "task.created"
	EventTaskUpdated  EventType = "task.updated"
	EventTaskDeleted  EventType = "task.deleted"
	EventNoteCreated  EventType = "note.created"
	EventNoteUpdated  EventType = "note.updated"
	EventNoteDeleted  EventType = "note.deleted"
	EventNoteLinked   EventType = "relation.linked"
	EventNoteUnlinked EventType = "relation.unlinked"
)

type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resource_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
