package ports

import (
	"context"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

// DocumentEngine is the document-database handle the schema manager drives.
// Implementations classify failures with domain.Unavailable / domain.Rejected.
type DocumentEngine interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts domain.CreateOptions) error
	RunCommand(ctx context.Context, command domain.Value) error
}
