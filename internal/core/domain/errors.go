package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCollectionName    = errors.New("collection name must not be empty")
	ErrInvalidCollectionName  = errors.New("invalid collection name")
	ErrInvalidValidator       = errors.New("validator must be a document")
	ErrInvalidValidationLevel = errors.New("validation level must be off, moderate or strict")
	ErrInvalidFilter          = errors.New("invalid filter")
	ErrNotFound               = errors.New("not found")
)

// ErrorKind classifies schema operation failures.
type ErrorKind int

const (
	KindInvalidSpec ErrorKind = iota + 1
	KindEngineUnavailable
	KindEngineRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidSpec:
		return "invalid_spec"
	case KindEngineUnavailable:
		return "engine_unavailable"
	case KindEngineRejected:
		return "engine_rejected"
	default:
		return "unknown"
	}
}

// Kind sentinels; errors.Is(err, ErrEngineRejected) matches any *SchemaError of that kind.
var (
	ErrInvalidSpec       = &kindSentinel{KindInvalidSpec}
	ErrEngineUnavailable = &kindSentinel{KindEngineUnavailable}
	ErrEngineRejected    = &kindSentinel{KindEngineRejected}
)

type kindSentinel struct {
	kind ErrorKind
}

func (s *kindSentinel) Error() string {
	return s.kind.String()
}

// SchemaError is returned by every schema operation failure. Message carries
// the engine's text verbatim for rejected operations.
type SchemaError struct {
	Kind          ErrorKind
	Op            string
	Collection    string
	Message       string
	AlreadyExists bool
	Err           error
}

func (e *SchemaError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	return fmt.Sprintf("%s %q: %s: %s", e.Op, e.Collection, e.Kind, msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func (e *SchemaError) Is(target error) bool {
	s, ok := target.(*kindSentinel)
	return ok && s.kind == e.Kind
}

// Benign reports whether the error is the namespace-exists race of a
// concurrent create, which callers may treat as success.
func (e *SchemaError) Benign() bool {
	return e.Kind == KindEngineRejected && e.AlreadyExists
}

// IsAlreadyExists reports whether err is a rejected create because the
// collection already exists.
func IsAlreadyExists(err error) bool {
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Benign()
	}
	var ee *EngineError
	return errors.As(err, &ee) && ee.AlreadyExists
}

// EngineError is how engine adapters classify a driver failure before the
// schema manager attaches operation and collection.
type EngineError struct {
	Kind          ErrorKind
	AlreadyExists bool
	Err           error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Unavailable marks err as a connectivity or authentication failure.
func Unavailable(err error) error {
	return &EngineError{Kind: KindEngineUnavailable, Err: err}
}

// Rejected marks err as a refusal by the engine.
func Rejected(err error) error {
	return &EngineError{Kind: KindEngineRejected, Err: err}
}

// RejectedAlreadyExists marks err as a create refused because the namespace exists.
func RejectedAlreadyExists(err error) error {
	return &EngineError{Kind: KindEngineRejected, AlreadyExists: true, Err: err}
}

// NewSchemaError normalizes an engine failure. A classification attached by
// the adapter wins over fallback.
func NewSchemaError(op, collection string, fallback ErrorKind, err error) *SchemaError {
	se := &SchemaError{Kind: fallback, Op: op, Collection: collection, Err: err}
	var ee *EngineError
	if errors.As(err, &ee) {
		se.Kind = ee.Kind
		se.AlreadyExists = ee.AlreadyExists
		if ee.Err != nil {
			se.Message = ee.Err.Error()
		}
	} else if err != nil {
		se.Message = err.Error()
	}
	return se
}

// InvalidSpec builds the error for rejected caller arguments.
func InvalidSpec(op, collection string, err error) *SchemaError {
	return &SchemaError{Kind: KindInvalidSpec, Op: op, Collection: collection, Message: err.Error(), Err: err}
}
