package ports

import (
	"context"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type SeedStore interface {
	DropCollection(ctx context.Context, name string) error
	InsertMany(ctx context.Context, collection string, docs []any) error
}

type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline []domain.Value) ([]domain.Value, error)
}
