package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type collection struct {
	validator domain.Value
	level     domain.ValidationLevel
	docs      []any
}

// Engine is an in-memory document engine. It honors the same contract as the
// MongoDB adapter: creating an existing collection is rejected with an
// already-exists classification and collMod on a missing collection is
// rejected. Safe for concurrent use.
type Engine struct {
	mu          sync.RWMutex
	collections map[string]*collection

	// Optional hooks for tests. Returning an error fails the call before
	// any state is touched.
	OnList    func(ctx context.Context) error
	OnCreate  func(ctx context.Context, name string) error
	OnCommand func(ctx context.Context, command domain.Value) error

	listCalls    int
	createCalls  int
	commandCalls int
}

func NewEngine() *Engine {
	return &Engine{collections: make(map[string]*collection)}
}

func (e *Engine) ListCollectionNames(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	e.listCalls++
	hook := e.OnList
	e.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable(err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (e *Engine) CreateCollection(ctx context.Context, name string, opts domain.CreateOptions) error {
	e.mu.Lock()
	e.createCalls++
	hook := e.OnCreate
	e.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, name); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Unavailable(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.collections[name]; ok {
		return domain.RejectedAlreadyExists(fmt.Errorf("Collection %s already exists.", name))
	}
	if !opts.Validator.IsNull() && !opts.Validator.IsDocument() {
		return domain.Rejected(errors.New("'validator' has to be a document"))
	}
	e.collections[name] = &collection{validator: opts.Validator.Clone(), level: domain.ValidationStrict}
	return nil
}

// RunCommand supports collMod with validator and validationLevel.
func (e *Engine) RunCommand(ctx context.Context, command domain.Value) error {
	e.mu.Lock()
	e.commandCalls++
	hook := e.OnCommand
	e.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, command); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Unavailable(err)
	}

	fields := command.Fields()
	if !command.IsDocument() || len(fields) == 0 {
		return domain.Rejected(errors.New("command must be a non-empty document"))
	}
	if fields[0].Key != "collMod" {
		return domain.Rejected(fmt.Errorf("no such command: '%s'", fields[0].Key))
	}
	name := fields[0].Value.StringValue()

	e.mu.Lock()
	defer e.mu.Unlock()
	coll, ok := e.collections[name]
	if !ok {
		return domain.Rejected(fmt.Errorf("ns does not exist: %s", name))
	}

	next := *coll
	for _, f := range fields[1:] {
		switch f.Key {
		case "validator":
			if !f.Value.IsDocument() {
				return domain.Rejected(errors.New("'validator' has to be a document"))
			}
			next.validator = f.Value.Clone()
		case "validationLevel":
			level, err := domain.ParseValidationLevel(f.Value.StringValue())
			if err != nil || f.Value.Kind() != domain.KindString {
				return domain.Rejected(fmt.Errorf("invalid validationLevel: %s", f.Value))
			}
			next.level = level
		default:
			return domain.Rejected(fmt.Errorf("unknown option to collMod: %s", f.Key))
		}
	}
	*coll = next
	return nil
}

// Validator returns the validator stored for name.
func (e *Engine) Validator(name string) (domain.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	coll, ok := e.collections[name]
	if !ok {
		return domain.Value{}, false
	}
	return coll.validator.Clone(), true
}

// ValidationLevel returns the level stored for name. Collections created
// without collMod report strict, the engine default.
func (e *Engine) ValidationLevel(name string) (domain.ValidationLevel, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	coll, ok := e.collections[name]
	if !ok {
		return "", false
	}
	return coll.level, true
}

func (e *Engine) DropCollection(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.collections, name)
	return nil
}

// InsertMany appends docs without validating them against the collection validator.
func (e *Engine) InsertMany(_ context.Context, name string, docs []any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	coll, ok := e.collections[name]
	if !ok {
		coll = &collection{level: domain.ValidationStrict}
		e.collections[name] = coll
	}
	coll.docs = append(coll.docs, docs...)
	return nil
}

// DocumentCount returns how many documents were inserted into name.
func (e *Engine) DocumentCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if coll, ok := e.collections[name]; ok {
		return len(coll.docs)
	}
	return 0
}

type Calls struct {
	List    int
	Create  int
	Command int
}

func (e *Engine) Calls() Calls {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Calls{List: e.listCalls, Create: e.createCalls, Command: e.commandCalls}
}
