package domain

import "time"

const CurrentEventSchemaVersion = 1

// ChangeEvent is the envelope published for every recorded schema change.
type ChangeEvent struct {
	EventID       string       `json:"event_id"`
	EventType     string       `json:"event_type"`
	SchemaVersion int          `json:"schema_version"`
	Collection    string       `json:"collection"`
	OccurredAt    time.Time    `json:"occurred_at"`
	Change        SchemaChange `json:"change"`
}

func NewChangeEvent(change SchemaChange) ChangeEvent {
	return ChangeEvent{
		EventID:       change.EventID,
		EventType:     change.Topic(),
		SchemaVersion: CurrentEventSchemaVersion,
		Collection:    change.Collection,
		OccurredAt:    change.OccurredAt,
		Change:        change,
	}
}

const (
	OutboxPending    = "pending"
	OutboxDispatched = "dispatched"
	OutboxDead       = "dead"
)

type OutboxEvent struct {
	ID            int64
	EventID       string
	Topic         string
	PayloadJSON   []byte
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}
