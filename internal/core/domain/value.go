package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDocument:
		return "document"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an opaque structured document: validators, commands and pipeline
// stages are built from it and forwarded to the engine without interpretation.
// Document fields keep their insertion order.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	items  []Value
	fields []Field
}

// Field is one key/value pair of a document.
type Field struct {
	Key   string
	Value Value
}

func Null() Value { return Value{kind: KindNull} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n)} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value{}, items...)}
}

// Doc builds a document value from ordered fields.
func Doc(fields ...Field) Value {
	return Value{kind: KindDocument, fields: append([]Field{}, fields...)}
}

// E is shorthand for a document field.
func E(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// Strings builds an array of string values.
func Strings(ss ...string) Value {
	items := make([]Value, 0, len(ss))
	for _, s := range ss {
		items = append(items, String(s))
	}
	return Value{kind: KindArray, items: items}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsDocument() bool { return v.kind == KindDocument }
func (v Value) BoolValue() bool { return v.b }
func (v Value) NumberValue() float64 { return v.n }
func (v Value) StringValue() string { return v.s }

// Items returns a copy of the array elements.
func (v Value) Items() []Value {
	return append([]Value{}, v.items...)
}

// Fields returns a copy of the document fields in order.
func (v Value) Fields() []Field {
	return append([]Field{}, v.fields...)
}

// Len is the number of array items or document fields.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindDocument:
		return len(v.fields)
	default:
		return 0
	}
}

// Lookup returns the first field named key of a document.
func (v Value) Lookup(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// IsIntegral reports whether a number value has no fractional part.
func (v Value) IsIntegral() bool {
	return v.kind == KindNumber && v.n == math.Trunc(v.n) && !math.IsInf(v.n, 0)
}

// Equal compares two values structurally, including document field order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindDocument:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy so stored values cannot be mutated through the caller's slices.
func (v Value) Clone() Value {
	out := v
	if v.items != nil {
		out.items = make([]Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	}
	if v.fields != nil {
		out.fields = make([]Field, len(v.fields))
		for i, f := range v.fields {
			out.fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
	}
	return out
}

func (v Value) String() string {
	b, err := json.Marshal(v)
	if err != nil {
		return "<" + v.kind.String() + ">"
	}
	return string(b)
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return fmt.Errorf("unsupported number %v", v.n)
		}
		buf.WriteString(strconv.FormatFloat(v.n, 'f', -1, 64))
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindDocument:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("extra json tokens")
	}
	*v = parsed
	return nil
}

// ParseJSON decodes a JSON text into a Value, keeping object key order.
func ParseJSON(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", t, err)
		}
		return Number(n), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindArray, items: items}, nil
		case '{':
			fields := make([]Field, 0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindDocument, fields: fields}, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected json token %v", tok)
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseYAML decodes a YAML document into a Value, keeping mapping key order.
func ParseYAML(data []byte) (Value, error) {
	var v Value
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}

func fromYAMLNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := fromYAMLNode(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindArray, items: items}, nil
	case yaml.MappingNode:
		fields := make([]Field, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			val, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Key: node.Content[i].Value, Value: val})
		}
		return Value{kind: KindDocument, fields: fields}, nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return Null(), nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return Value{}, err
			}
			return Bool(b), nil
		case "!!int", "!!float":
			var f float64
			if err := node.Decode(&f); err != nil {
				return Value{}, err
			}
			return Number(f), nil
		default:
			return String(node.Value), nil
		}
	}
	return Value{}, fmt.Errorf("unsupported yaml node kind %d at line %d", node.Kind, node.Line)
}
