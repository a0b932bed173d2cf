package domain

import (
	"regexp"
	"strings"
)

// ValidationLevel is the enforcement strength applied by the engine when a
// document fails the collection validator.
type ValidationLevel string

const (
	ValidationOff      ValidationLevel = "off"
	ValidationModerate ValidationLevel = "moderate"
	ValidationStrict   ValidationLevel = "strict"
)

// ParseValidationLevel accepts off, moderate or strict (case-insensitive).
// An empty string yields ValidationModerate.
func ParseValidationLevel(raw string) (ValidationLevel, error) {
	switch ValidationLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ValidationModerate:
		return ValidationModerate, nil
	case ValidationOff:
		return ValidationOff, nil
	case ValidationStrict:
		return ValidationStrict, nil
	}
	return "", ErrInvalidValidationLevel
}

// CollectionValidationSpec names a collection and the validator it should carry.
type CollectionValidationSpec struct {
	Collection string
	Validator  Value
	Level      ValidationLevel
}

var collectionNamePattern = regexp.MustCompile(`^[^\x00$]+$`)

func ValidateCollectionName(name string) error {
	if name == "" {
		return ErrEmptyCollectionName
	}
	if !collectionNamePattern.MatchString(name) || strings.HasPrefix(name, "system.") {
		return ErrInvalidCollectionName
	}
	return nil
}

func (s CollectionValidationSpec) Validate() error {
	if err := ValidateCollectionName(s.Collection); err != nil {
		return err
	}
	if !s.Validator.IsDocument() {
		return ErrInvalidValidator
	}
	return nil
}

// CreateOptions carries the creation-time options of a collection.
type CreateOptions struct {
	Validator Value
}

type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota + 1
	OutcomeAlreadyExists
	OutcomeUpdated
	OutcomeNotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeUpdated:
		return "updated"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Outcome reports which branch a schema operation took.
type Outcome struct {
	Kind       OutcomeKind
	Collection string
}

// Mutated reports whether the engine state was changed.
func (o Outcome) Mutated() bool {
	return o.Kind == OutcomeCreated || o.Kind == OutcomeUpdated
}

const (
	OpEnsureCollection = "ensure_collection"
	OpUpdateValidator  = "update_validator"
	OpListCollections  = "list_collections"

	// OutcomeFailed is the audit outcome of an operation that returned an error.
	OutcomeFailed = "failed"
)
