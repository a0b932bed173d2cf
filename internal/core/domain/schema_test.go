package domain

import (
	"errors"
	"testing"
)

func TestParseValidationLevel(t *testing.T) {
	cases := map[string]ValidationLevel{
		"":         ValidationModerate,
		"moderate": ValidationModerate,
		"STRICT":   ValidationStrict,
		" off ":    ValidationOff,
	}
	for raw, want := range cases {
		got, err := ParseValidationLevel(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}

	if _, err := ParseValidationLevel("warn"); !errors.Is(err, ErrInvalidValidationLevel) {
		t.Fatalf("expected invalid level error, got %v", err)
	}
}

func TestValidateCollectionName(t *testing.T) {
	if err := ValidateCollectionName(""); !errors.Is(err, ErrEmptyCollectionName) {
		t.Fatalf("expected empty name error, got %v", err)
	}
	for _, name := range []string{"bad$name", "nul\x00name", "system.views"} {
		if err := ValidateCollectionName(name); !errors.Is(err, ErrInvalidCollectionName) {
			t.Fatalf("expected invalid name error for %q, got %v", name, err)
		}
	}
	for _, name := range []string{"Users", "T_Person", "orders.archive"} {
		if err := ValidateCollectionName(name); err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
	}
}

func TestSpecValidateRequiresDocumentValidator(t *testing.T) {
	spec := CollectionValidationSpec{Collection: "Users", Validator: String("nope")}
	if err := spec.Validate(); !errors.Is(err, ErrInvalidValidator) {
		t.Fatalf("expected invalid validator, got %v", err)
	}
	spec.Validator = Doc()
	if err := spec.Validate(); err != nil {
		t.Fatalf("empty document is a valid validator: %v", err)
	}
}

func TestOutcomeMutated(t *testing.T) {
	for kind, want := range map[OutcomeKind]bool{
		OutcomeCreated:       true,
		OutcomeUpdated:       true,
		OutcomeAlreadyExists: false,
		OutcomeNotFound:      false,
	} {
		if got := (Outcome{Kind: kind}).Mutated(); got != want {
			t.Fatalf("%s: expected mutated=%v", kind, want)
		}
	}
}

func TestSchemaChangeTopic(t *testing.T) {
	change := SchemaChange{Operation: OpEnsureCollection, Outcome: OutcomeCreated.String()}
	if got := change.Topic(); got != "schema.ensure_collection.created" {
		t.Fatalf("unexpected topic %q", got)
	}
	if ev := NewChangeEvent(change); ev.EventType != change.Topic() || ev.SchemaVersion != CurrentEventSchemaVersion {
		t.Fatalf("unexpected envelope %+v", ev)
	}
}
