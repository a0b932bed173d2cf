package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
)

// SchemaOperator is the schema surface shared by the CLI, the HTTP API and
// the seed service.
type SchemaOperator interface {
	EnsureCollection(ctx context.Context, name string, validator domain.Value) (domain.Outcome, error)
	UpdateValidator(ctx context.Context, name string, validator domain.Value, level domain.ValidationLevel) (domain.Outcome, error)
	Collections(ctx context.Context) ([]string, error)
}

type changeRecorder interface {
	Record(ctx context.Context, change domain.SchemaChange) (domain.SchemaChange, error)
}

// TrackedSchemaManager records every schema operation it forwards. Recording
// failures are logged and never alter the operation's result.
type TrackedSchemaManager struct {
	inner    SchemaOperator
	recorder changeRecorder
	observer ports.OutcomeObserver
	logger   *zap.SugaredLogger
}

type TrackedOption func(*TrackedSchemaManager)

func WithRecorder(recorder changeRecorder) TrackedOption {
	return func(m *TrackedSchemaManager) {
		m.recorder = recorder
	}
}

func WithObserver(observer ports.OutcomeObserver) TrackedOption {
	return func(m *TrackedSchemaManager) {
		m.observer = observer
	}
}

func WithLogger(logger *zap.SugaredLogger) TrackedOption {
	return func(m *TrackedSchemaManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewTrackedSchemaManager(inner SchemaOperator, opts ...TrackedOption) *TrackedSchemaManager {
	m := &TrackedSchemaManager{inner: inner, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *TrackedSchemaManager) EnsureCollection(ctx context.Context, name string, validator domain.Value) (domain.Outcome, error) {
	out, err := m.inner.EnsureCollection(ctx, name, validator)
	m.track(ctx, domain.SchemaChange{
		Collection: name,
		Operation:  domain.OpEnsureCollection,
		Validator:  validator,
	}, out, err)
	return out, err
}

func (m *TrackedSchemaManager) UpdateValidator(ctx context.Context, name string, validator domain.Value, level domain.ValidationLevel) (domain.Outcome, error) {
	out, err := m.inner.UpdateValidator(ctx, name, validator, level)
	if parsed, perr := domain.ParseValidationLevel(string(level)); perr == nil {
		level = parsed
	}
	m.track(ctx, domain.SchemaChange{
		Collection:      name,
		Operation:       domain.OpUpdateValidator,
		ValidationLevel: level,
		Validator:       validator,
	}, out, err)
	return out, err
}

func (m *TrackedSchemaManager) Collections(ctx context.Context) ([]string, error) {
	names, err := m.inner.Collections(ctx)
	if err != nil {
		m.observe(domain.OpListCollections, domain.OutcomeFailed)
		m.logger.Warnw("list collections failed", "error", err)
	}
	return names, err
}

func (m *TrackedSchemaManager) track(ctx context.Context, change domain.SchemaChange, out domain.Outcome, opErr error) {
	if domain.IsAlreadyExists(opErr) {
		// a concurrent create won the race; the collection exists
		out, opErr = domain.Outcome{Kind: domain.OutcomeAlreadyExists, Collection: change.Collection}, nil
	}
	if opErr != nil {
		change.Outcome = domain.OutcomeFailed
		change.ErrorMessage = opErr.Error()
		var se *domain.SchemaError
		if errors.As(opErr, &se) {
			change.ErrorKind = se.Kind.String()
		}
		m.logger.Warnw("schema operation failed",
			"operation", change.Operation,
			"collection", change.Collection,
			"error_kind", change.ErrorKind,
			"error", opErr,
		)
	} else {
		change.Outcome = out.Kind.String()
		m.logger.Infow("schema operation finished",
			"operation", change.Operation,
			"collection", change.Collection,
			"outcome", change.Outcome,
		)
	}
	m.observe(change.Operation, change.Outcome)

	if m.recorder == nil {
		return
	}
	if _, err := m.recorder.Record(ctx, change); err != nil {
		m.logger.Errorw("record schema change failed",
			"operation", change.Operation,
			"collection", change.Collection,
			"error", err,
		)
	}
}

func (m *TrackedSchemaManager) observe(operation, outcome string) {
	if m.observer != nil {
		m.observer.ObserveOperation(operation, outcome)
	}
}
