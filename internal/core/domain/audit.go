package domain

import "time"

// SchemaChange is one audit trail entry describing a schema operation.
type SchemaChange struct {
	ID              int64           `json:"id"`
	EventID         string          `json:"event_id"`
	Collection      string          `json:"collection"`
	Operation       string          `json:"operation"`
	Outcome         string          `json:"outcome"`
	ValidationLevel ValidationLevel `json:"validation_level,omitempty"`
	Validator       Value           `json:"validator"`
	ErrorKind       string          `json:"error_kind,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

type SchemaChangeFilter struct {
	Collection string
	AfterID    int64
	Limit      int
}

func (f SchemaChangeFilter) Validate() error {
	if f.Collection != "" {
		if err := ValidateCollectionName(f.Collection); err != nil {
			return err
		}
	}
	if f.AfterID < 0 {
		return ErrInvalidFilter
	}
	return nil
}

// Topic is the outbox topic a change is published under.
func (c SchemaChange) Topic() string {
	return "schema." + c.Operation + "." + c.Outcome
}
