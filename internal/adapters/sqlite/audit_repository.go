package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type schemaChangeModel struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID         string    `gorm:"column:event_id;not null"`
	Collection      string    `gorm:"column:collection;not null"`
	Operation       string    `gorm:"column:operation;not null"`
	Outcome         string    `gorm:"column:outcome;not null"`
	ValidationLevel string    `gorm:"column:validation_level;not null"`
	ValidatorJSON   string    `gorm:"column:validator_json;not null"`
	ErrorKind       string    `gorm:"column:error_kind;not null"`
	ErrorMessage    string    `gorm:"column:error_message;not null"`
	OccurredAt      time.Time `gorm:"column:occurred_at;not null"`
}

func (schemaChangeModel) TableName() string {
	return "schema_changes"
}

// SchemaChangeRepository keeps the audit trail of schema operations. Every
// appended change is queued in the outbox in the same transaction.
type SchemaChangeRepository struct {
	db *gormsqlite.DB
}

func NewSchemaChangeRepository(db *gormsqlite.DB) *SchemaChangeRepository {
	return &SchemaChangeRepository{db: db}
}

func (r *SchemaChangeRepository) Append(ctx context.Context, change domain.SchemaChange) (domain.SchemaChange, error) {
	validatorJSON, err := json.Marshal(change.Validator)
	if err != nil {
		return domain.SchemaChange{}, fmt.Errorf("marshal validator: %w", err)
	}
	occurredAt := change.OccurredAt.UTC()

	model := schemaChangeModel{
		EventID:         change.EventID,
		Collection:      change.Collection,
		Operation:       change.Operation,
		Outcome:         change.Outcome,
		ValidationLevel: string(change.ValidationLevel),
		ValidatorJSON:   string(validatorJSON),
		ErrorKind:       change.ErrorKind,
		ErrorMessage:    change.ErrorMessage,
		OccurredAt:      occurredAt,
	}

	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert schema change: %w", err)
		}

		change.ID = model.ID
		payload, err := json.Marshal(domain.NewChangeEvent(change))
		if err != nil {
			return fmt.Errorf("marshal change event: %w", err)
		}
		outbox := outboxEventModel{
			EventID:       change.EventID,
			Topic:         change.Topic(),
			PayloadJSON:   string(payload),
			Status:        domain.OutboxPending,
			NextAttemptAt: occurredAt,
			CreatedAt:     occurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.SchemaChange{}, err
	}
	return change, nil
}

// List returns changes newest first. AfterID pages backwards: only rows with
// a smaller id are returned.
func (r *SchemaChangeRepository) List(ctx context.Context, filter domain.SchemaChangeFilter) ([]domain.SchemaChange, error) {
	var rows []schemaChangeModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&schemaChangeModel{})
		if filter.Collection != "" {
			query = query.Where("collection = ?", filter.Collection)
		}
		if filter.AfterID > 0 {
			query = query.Where("id < ?", filter.AfterID)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query.Order("id DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list schema changes: %w", err)
	}

	result := make([]domain.SchemaChange, 0, len(rows))
	for _, row := range rows {
		validator, err := domain.ParseJSON([]byte(row.ValidatorJSON))
		if err != nil {
			return nil, fmt.Errorf("decode validator of change %d: %w", row.ID, err)
		}
		result = append(result, domain.SchemaChange{
			ID:              row.ID,
			EventID:         row.EventID,
			Collection:      row.Collection,
			Operation:       row.Operation,
			Outcome:         row.Outcome,
			ValidationLevel: domain.ValidationLevel(row.ValidationLevel),
			Validator:       validator,
			ErrorKind:       row.ErrorKind,
			ErrorMessage:    row.ErrorMessage,
			OccurredAt:      row.OccurredAt,
		})
	}
	return result, nil
}
