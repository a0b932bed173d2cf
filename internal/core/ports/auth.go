package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type APIKeyRepository interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (domain.APIKey, error)
	Upsert(ctx context.Context, key domain.APIKey) error
	CountActive(ctx context.Context) (int64, error)
	MarkUsed(ctx context.Context, tokenHash string, at time.Time) error
}
