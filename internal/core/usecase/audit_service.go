package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
)

type AuditService struct {
	repo ports.SchemaChangeRepository
	now  func() time.Time
}

func NewAuditService(repo ports.SchemaChangeRepository) *AuditService {
	return &AuditService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores change, assigning an event id and timestamp when missing.
func (s *AuditService) Record(ctx context.Context, change domain.SchemaChange) (domain.SchemaChange, error) {
	if change.EventID == "" {
		change.EventID = uuid.NewString()
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = s.now()
	}
	return s.repo.Append(ctx, change)
}

func (s *AuditService) List(ctx context.Context, filter domain.SchemaChangeFilter) ([]domain.SchemaChange, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}
