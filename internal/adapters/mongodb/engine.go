package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

// Server error codes the adapter classifies explicitly.
const (
	codeAuthenticationFailed = 18
	codeNamespaceExists      = 48
)

// Engine drives one MongoDB database through the official driver.
type Engine struct {
	db *mongo.Database
}

func NewEngine(db *mongo.Database) *Engine {
	return &Engine{db: db}
}

func (e *Engine) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := e.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, classifyList(fmt.Errorf("list collection names: %w", err))
	}
	return names, nil
}

func (e *Engine) CreateCollection(ctx context.Context, name string, opts domain.CreateOptions) error {
	createOpts := options.CreateCollection()
	if !opts.Validator.IsNull() {
		createOpts.SetValidator(ToBSON(opts.Validator))
	}
	if err := e.db.CreateCollection(ctx, name, createOpts); err != nil {
		return classify(err)
	}
	return nil
}

func (e *Engine) RunCommand(ctx context.Context, command domain.Value) error {
	if !command.IsDocument() {
		return domain.Rejected(errors.New("command must be a document"))
	}
	if err := e.db.RunCommand(ctx, ToBSON(command)).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Describe reads the validator and validation level currently stored for name.
func (e *Engine) Describe(ctx context.Context, name string) (domain.CollectionValidationSpec, bool, error) {
	specs, err := e.db.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return domain.CollectionValidationSpec{}, false, classify(fmt.Errorf("list collection specifications: %w", err))
	}
	if len(specs) == 0 {
		return domain.CollectionValidationSpec{}, false, nil
	}

	out := domain.CollectionValidationSpec{Collection: name, Level: domain.ValidationStrict}
	opts := specs[0].Options
	if opts == nil {
		return out, true, nil
	}
	if raw, err := opts.LookupErr("validator"); err == nil {
		doc, ok := raw.DocumentOK()
		if !ok {
			return domain.CollectionValidationSpec{}, false, fmt.Errorf("validator of %s is not a document", name)
		}
		validator, err := FromBSON(doc)
		if err != nil {
			return domain.CollectionValidationSpec{}, false, fmt.Errorf("decode validator of %s: %w", name, err)
		}
		out.Validator = validator
	}
	if raw, err := opts.LookupErr("validationLevel"); err == nil {
		if level, ok := raw.StringValueOK(); ok {
			out.Level = domain.ValidationLevel(level)
		}
	}
	return out, true, nil
}

func (e *Engine) DropCollection(ctx context.Context, name string) error {
	if err := e.db.Collection(name).Drop(ctx); err != nil {
		return classify(fmt.Errorf("drop %s: %w", name, err))
	}
	return nil
}

func (e *Engine) InsertMany(ctx context.Context, collection string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := e.db.Collection(collection).InsertMany(ctx, docs); err != nil {
		return classify(fmt.Errorf("insert into %s: %w", collection, err))
	}
	return nil
}

func (e *Engine) Aggregate(ctx context.Context, collection string, pipeline []domain.Value) ([]domain.Value, error) {
	cursor, err := e.db.Collection(collection).Aggregate(ctx, Pipeline(pipeline))
	if err != nil {
		return nil, classify(fmt.Errorf("aggregate %s: %w", collection, err))
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("read %s cursor: %w", collection, err))
	}

	out := make([]domain.Value, 0, len(docs))
	for _, doc := range docs {
		v, err := FromBSON(doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s result: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// classify tags driver failures with the schema error taxonomy. Errors it
// cannot attribute are returned unchanged so the caller's default applies.
// classifyList marks every listing failure as unavailable: a listing that the
// server refuses (unauthorized, not primary) says nothing about the validator.
func classifyList(err error) error {
	if err == nil {
		return nil
	}
	return domain.Unavailable(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Unavailable(err)
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return domain.Unavailable(err)
	}
	var selErr topology.ServerSelectionError
	if errors.As(err, &selErr) {
		return domain.Unavailable(err)
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		switch {
		case serverErr.HasErrorCode(codeAuthenticationFailed):
			return domain.Unavailable(err)
		case serverErr.HasErrorCode(codeNamespaceExists):
			return domain.RejectedAlreadyExists(err)
		default:
			return domain.Rejected(err)
		}
	}
	return err
}
