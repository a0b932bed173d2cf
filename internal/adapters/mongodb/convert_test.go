package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

func TestToBSONKeepsFieldOrderAndIntegerTypes(t *testing.T) {
	v := domain.Doc(
		domain.E("collMod", domain.String("Orders")),
		domain.E("validator", domain.Doc(
			domain.E("$jsonSchema", domain.Doc(
				domain.E("required", domain.Strings("total")),
				domain.E("properties", domain.Doc(
					domain.E("total", domain.Doc(domain.E("minimum", domain.Int(0)))),
					domain.E("rate", domain.Doc(domain.E("maximum", domain.Number(0.05)))),
				)),
			)),
		)),
		domain.E("validationLevel", domain.String("strict")),
	)

	d, ok := ToBSON(v).(bson.D)
	if !ok {
		t.Fatalf("expected bson.D, got %T", ToBSON(v))
	}
	if d[0].Key != "collMod" || d[2].Key != "validationLevel" {
		t.Fatalf("field order lost: %v", d)
	}

	data, err := bson.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	raw := bson.Raw(data)
	minimum := raw.Lookup("validator", "$jsonSchema", "properties", "total", "minimum")
	if minimum.Type != bson.TypeInt32 {
		t.Fatalf("expected int32 minimum, got %s", minimum.Type)
	}
	maximum := raw.Lookup("validator", "$jsonSchema", "properties", "rate", "maximum")
	if maximum.Type != bson.TypeDouble {
		t.Fatalf("expected double maximum, got %s", maximum.Type)
	}
	required := raw.Lookup("validator", "$jsonSchema", "required")
	if required.Type != bson.TypeArray {
		t.Fatalf("expected array, got %s", required.Type)
	}
}

func TestToBSONLargeIntegerUsesInt64(t *testing.T) {
	if _, ok := ToBSON(domain.Int(1 << 40)).(int64); !ok {
		t.Fatalf("expected int64, got %T", ToBSON(domain.Int(1<<40)))
	}
}

func TestFromBSONRoundTrip(t *testing.T) {
	v := domain.Doc(
		domain.E("$jsonSchema", domain.Doc(
			domain.E("bsonType", domain.String("object")),
			domain.E("required", domain.Strings("name", "age")),
			domain.E("additionalProperties", domain.Bool(false)),
			domain.E("nothing", domain.Null()),
		)),
	)

	raw, err := bson.Marshal(ToBSON(v))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded bson.D
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := FromBSON(decoded)
	if err != nil {
		t.Fatalf("from bson: %v", err)
	}
	if !got.Equal(v) {
		t.Fatalf("round trip mismatch:\nwant %s\ngot  %s", v, got)
	}
}

func TestFromBSONDriverTypesBecomeStrings(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	got, err := FromBSON(bson.D{
		{Key: "_id", Value: id},
		{Key: "order_date", Value: primitive.NewDateTimeFromTime(at)},
	})
	if err != nil {
		t.Fatalf("from bson: %v", err)
	}
	if v, _ := got.Lookup("_id"); v.StringValue() != id.Hex() {
		t.Fatalf("unexpected id: %s", v)
	}
	if v, _ := got.Lookup("order_date"); v.StringValue() != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected date: %s", v)
	}
}

func TestFromBSONRejectsUnknownTypes(t *testing.T) {
	_, err := FromBSON(bson.D{{Key: "code", Value: primitive.JavaScript("return 1")}})
	if err == nil {
		t.Fatal("expected error for javascript value")
	}
}

func TestClassifyNamespaceExists(t *testing.T) {
	err := classify(mongo.CommandError{Code: 48, Name: "NamespaceExists", Message: "Collection TestDB.Orders already exists."})
	if !domain.IsAlreadyExists(err) {
		t.Fatalf("expected already-exists classification, got %v", err)
	}
	se := domain.NewSchemaError(domain.OpEnsureCollection, "Orders", domain.KindEngineRejected, err)
	if !errors.Is(se, domain.ErrEngineRejected) || !se.Benign() {
		t.Fatalf("expected benign rejection, got %+v", se)
	}
}

func TestClassifyValidatorRejection(t *testing.T) {
	err := classify(mongo.CommandError{Code: 2, Name: "BadValue", Message: "unknown operator: $jsonSchemaa"})
	se := domain.NewSchemaError(domain.OpEnsureCollection, "Orders", domain.KindEngineUnavailable, err)
	if se.Kind != domain.KindEngineRejected {
		t.Fatalf("expected rejected, got %s", se.Kind)
	}
	if se.Benign() {
		t.Fatal("validator rejection must not be benign")
	}
}

func TestClassifyAuthenticationFailure(t *testing.T) {
	err := classify(mongo.CommandError{Code: 18, Name: "AuthenticationFailed", Message: "Authentication failed."})
	se := domain.NewSchemaError(domain.OpEnsureCollection, "Orders", domain.KindEngineRejected, err)
	if !errors.Is(se, domain.ErrEngineUnavailable) {
		t.Fatalf("expected unavailable, got %v", se)
	}
}

func TestClassifyListUnauthorizedIsUnavailable(t *testing.T) {
	err := classifyList(fmt.Errorf("list collection names: %w", mongo.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized on TestDB to execute command { listCollections: 1 }"}))
	se := domain.NewSchemaError(domain.OpEnsureCollection, "Orders", domain.KindEngineUnavailable, err)
	if !errors.Is(se, domain.ErrEngineUnavailable) {
		t.Fatalf("expected unavailable, got %v", se)
	}
	if errors.Is(se, domain.ErrEngineRejected) || se.Benign() {
		t.Fatalf("listing failure must not be a rejection: %+v", se)
	}
	if classifyList(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestClassifyContextErrors(t *testing.T) {
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		se := domain.NewSchemaError(domain.OpUpdateValidator, "Orders", domain.KindEngineRejected, classify(cause))
		if !errors.Is(se, domain.ErrEngineUnavailable) {
			t.Fatalf("expected unavailable for %v, got %v", cause, se)
		}
	}
}

func TestClassifyLeavesUnknownErrorsUnclassified(t *testing.T) {
	cause := errors.New("boom")
	if got := classify(cause); got != cause {
		t.Fatalf("expected error unchanged, got %v", got)
	}
}
