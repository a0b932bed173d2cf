package usecase

import (
	"context"
	"slices"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
)

// SchemaManager creates collections with a validator or replaces the
// validator of an existing collection. Every call reads the engine's live
// collection list first; nothing is cached.
type SchemaManager struct {
	engine ports.DocumentEngine
}

func NewSchemaManager(engine ports.DocumentEngine) *SchemaManager {
	return &SchemaManager{engine: engine}
}

// EnsureCollection creates name with validator attached when it does not
// exist yet. An existing collection is left untouched.
func (m *SchemaManager) EnsureCollection(ctx context.Context, name string, validator domain.Value) (domain.Outcome, error) {
	spec := domain.CollectionValidationSpec{Collection: name, Validator: validator}
	if err := spec.Validate(); err != nil {
		return domain.Outcome{}, domain.InvalidSpec(domain.OpEnsureCollection, name, err)
	}

	exists, err := m.exists(ctx, domain.OpEnsureCollection, name)
	if err != nil {
		return domain.Outcome{}, err
	}
	if exists {
		return domain.Outcome{Kind: domain.OutcomeAlreadyExists, Collection: name}, nil
	}

	if err := m.engine.CreateCollection(ctx, name, domain.CreateOptions{Validator: validator}); err != nil {
		return domain.Outcome{}, domain.NewSchemaError(domain.OpEnsureCollection, name, domain.KindEngineRejected, err)
	}
	return domain.Outcome{Kind: domain.OutcomeCreated, Collection: name}, nil
}

// UpdateValidator replaces the validator of an existing collection wholesale
// and sets its validation level. A missing collection is not created.
func (m *SchemaManager) UpdateValidator(ctx context.Context, name string, validator domain.Value, level domain.ValidationLevel) (domain.Outcome, error) {
	level, err := domain.ParseValidationLevel(string(level))
	if err != nil {
		return domain.Outcome{}, domain.InvalidSpec(domain.OpUpdateValidator, name, err)
	}
	spec := domain.CollectionValidationSpec{Collection: name, Validator: validator, Level: level}
	if err := spec.Validate(); err != nil {
		return domain.Outcome{}, domain.InvalidSpec(domain.OpUpdateValidator, name, err)
	}

	exists, err := m.exists(ctx, domain.OpUpdateValidator, name)
	if err != nil {
		return domain.Outcome{}, err
	}
	if !exists {
		return domain.Outcome{Kind: domain.OutcomeNotFound, Collection: name}, nil
	}

	if err := m.engine.RunCommand(ctx, CollModCommand(spec)); err != nil {
		return domain.Outcome{}, domain.NewSchemaError(domain.OpUpdateValidator, name, domain.KindEngineRejected, err)
	}
	return domain.Outcome{Kind: domain.OutcomeUpdated, Collection: name}, nil
}

// Collections returns the engine's current collection names.
func (m *SchemaManager) Collections(ctx context.Context) ([]string, error) {
	names, err := m.engine.ListCollectionNames(ctx)
	if err != nil {
		return nil, listError(domain.OpListCollections, "", err)
	}
	slices.Sort(names)
	return names, nil
}

func (m *SchemaManager) exists(ctx context.Context, op, name string) (bool, error) {
	names, err := m.engine.ListCollectionNames(ctx)
	if err != nil {
		return false, listError(op, name, err)
	}
	return slices.Contains(names, name), nil
}

// listError reports a failed listing as unavailable whatever the engine
// classified it as; the create path never ran, so it is never a rejection.
func listError(op, name string, err error) *domain.SchemaError {
	se := domain.NewSchemaError(op, name, domain.KindEngineUnavailable, err)
	se.Kind = domain.KindEngineUnavailable
	se.AlreadyExists = false
	return se
}

// CollModCommand builds the collMod command document; the command name must
// be the first field.
func CollModCommand(spec domain.CollectionValidationSpec) domain.Value {
	level := spec.Level
	if level == "" {
		level = domain.ValidationModerate
	}
	return domain.Doc(
		domain.E("collMod", domain.String(spec.Collection)),
		domain.E("validator", spec.Validator),
		domain.E("validationLevel", domain.String(string(level))),
	)
}
