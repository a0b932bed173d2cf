package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

// LogPublisher writes change events to the application log. It is the
// publisher used when no webhook is configured.
type LogPublisher struct {
	log *zap.SugaredLogger
}

func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event domain.ChangeEvent) error {
	p.log.Infow("schema change published",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"collection", event.Collection,
		"operation", event.Change.Operation,
		"outcome", event.Change.Outcome,
	)
	return nil
}
