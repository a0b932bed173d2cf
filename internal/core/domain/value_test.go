package domain

import (
	"encoding/json"
	"testing"
)

func TestParseJSONKeepsKeyOrder(t *testing.T) {
	src := `{"$jsonSchema":{"bsonType":"object","required":["z","a"],"properties":{"z":{"minimum":0},"a":{"maxLength":10}}}}`

	v, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != src {
		t.Fatalf("expected %s, got %s", src, out)
	}

	schema, _ := v.Lookup("$jsonSchema")
	props, _ := schema.Lookup("properties")
	fields := props.Fields()
	if len(fields) != 2 || fields[0].Key != "z" || fields[1].Key != "a" {
		t.Fatalf("unexpected property order: %+v", fields)
	}
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing document")
	}
	if _, err := ParseJSON([]byte(`{"a":`)); err == nil {
		t.Fatal("expected error for truncated document")
	}
}

func TestParseJSONNumbers(t *testing.T) {
	v, err := ParseJSON([]byte(`{"int":3,"frac":0.05}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, _ := v.Lookup("int")
	if !n.IsIntegral() || n.NumberValue() != 3 {
		t.Fatalf("expected integral 3, got %s", n)
	}
	f, _ := v.Lookup("frac")
	if f.IsIntegral() {
		t.Fatalf("expected fractional number, got %s", f)
	}
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	yml := `
$jsonSchema:
  bsonType: object
  required: [name, age]
  properties:
    age:
      bsonType: int
      minimum: 0
    active:
      bsonType: bool
      default: true
    note: ~
`
	fromYAML, err := ParseYAML([]byte(yml))
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	fromJSON, err := ParseJSON([]byte(`{"$jsonSchema":{"bsonType":"object","required":["name","age"],"properties":{"age":{"bsonType":"int","minimum":0},"active":{"bsonType":"bool","default":true},"note":null}}}`))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if !fromYAML.Equal(fromJSON) {
		t.Fatalf("yaml and json disagree:\nyaml %s\njson %s", fromYAML, fromJSON)
	}
}

func TestValueEqualIsOrderSensitive(t *testing.T) {
	a := Doc(E("x", Int(1)), E("y", Int(2)))
	b := Doc(E("y", Int(2)), E("x", Int(1)))
	if a.Equal(b) {
		t.Fatal("documents with different field order must differ")
	}
	if !a.Equal(Doc(E("x", Int(1)), E("y", Int(2)))) {
		t.Fatal("identical documents must be equal")
	}
	if Int(1).Equal(String("1")) {
		t.Fatal("values of different kinds must differ")
	}
}

func TestCloneIsDeep(t *testing.T) {
	items := []Value{String("a")}
	original := Doc(E("list", Array(items...)))
	clone := original.Clone()

	items[0] = String("mutated")
	if got, _ := clone.Lookup("list"); got.Items()[0].StringValue() != "a" {
		t.Fatalf("clone shares storage with caller: %s", clone)
	}
	if !clone.Equal(original) {
		t.Fatalf("clone differs from original: %s vs %s", clone, original)
	}
}

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() || v.IsDocument() {
		t.Fatalf("expected null zero value, got %s", v.Kind())
	}
	if v.String() != "null" {
		t.Fatalf("expected null, got %s", v)
	}
}
