package ports

import (
	"context"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type ChangePublisher interface {
	Publish(ctx context.Context, topic string, event domain.ChangeEvent) error
}

// OutcomeObserver receives one observation per finished schema operation.
type OutcomeObserver interface {
	ObserveOperation(operation, outcome string)
}

// DispatchObserver counts outbox delivery results.
type DispatchObserver interface {
	ObserveDispatch(result string)
}
