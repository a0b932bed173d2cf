package ports

import (
	"context"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type SchemaChangeRepository interface {
	Append(ctx context.Context, change domain.SchemaChange) (domain.SchemaChange, error)
	List(ctx context.Context, filter domain.SchemaChangeFilter) ([]domain.SchemaChange, error)
}
