package mongodb

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

// ToBSON converts a domain value into the driver's representation. Integral
// numbers become int32 (or int64 when out of range) so validators such as
// {"minimum": 0} and stages such as {"$sum": 1} keep their integer type.
func ToBSON(v domain.Value) any {
	switch v.Kind() {
	case domain.KindNull:
		return nil
	case domain.KindBool:
		return v.BoolValue()
	case domain.KindNumber:
		n := v.NumberValue()
		if v.IsIntegral() {
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return int32(n)
			}
			if n >= math.MinInt64 && n < math.MaxInt64 {
				return int64(n)
			}
		}
		return n
	case domain.KindString:
		return v.StringValue()
	case domain.KindArray:
		items := v.Items()
		out := make(bson.A, 0, len(items))
		for _, item := range items {
			out = append(out, ToBSON(item))
		}
		return out
	case domain.KindDocument:
		return toBSOND(v)
	}
	return nil
}

func toBSOND(v domain.Value) bson.D {
	fields := v.Fields()
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		out = append(out, bson.E{Key: f.Key, Value: ToBSON(f.Value)})
	}
	return out
}

// FromBSON converts a decoded driver value back into a domain value. BSON
// types without a JSON counterpart (ObjectID, dates, decimals) become strings.
func FromBSON(raw any) (domain.Value, error) {
	switch t := raw.(type) {
	case nil:
		return domain.Null(), nil
	case primitive.Null, primitive.Undefined:
		return domain.Null(), nil
	case bool:
		return domain.Bool(t), nil
	case int32:
		return domain.Int(int64(t)), nil
	case int64:
		return domain.Int(t), nil
	case int:
		return domain.Int(int64(t)), nil
	case float64:
		return domain.Number(t), nil
	case string:
		return domain.String(t), nil
	case primitive.ObjectID:
		return domain.String(t.Hex()), nil
	case primitive.DateTime:
		return domain.String(t.Time().UTC().Format(time.RFC3339Nano)), nil
	case time.Time:
		return domain.String(t.UTC().Format(time.RFC3339Nano)), nil
	case primitive.Decimal128:
		return domain.String(t.String()), nil
	case primitive.Regex:
		return domain.String(t.Pattern), nil
	case bson.D:
		fields := make([]domain.Field, 0, len(t))
		for _, e := range t {
			val, err := FromBSON(e.Value)
			if err != nil {
				return domain.Value{}, fmt.Errorf("field %q: %w", e.Key, err)
			}
			fields = append(fields, domain.E(e.Key, val))
		}
		return domain.Doc(fields...), nil
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]domain.Field, 0, len(keys))
		for _, k := range keys {
			val, err := FromBSON(t[k])
			if err != nil {
				return domain.Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields = append(fields, domain.E(k, val))
		}
		return domain.Doc(fields...), nil
	case bson.A:
		return fromSlice(t)
	case []any:
		return fromSlice(t)
	case bson.Raw:
		var d bson.D
		if err := bson.Unmarshal(t, &d); err != nil {
			return domain.Value{}, fmt.Errorf("decode raw document: %w", err)
		}
		return FromBSON(d)
	}
	return domain.Value{}, fmt.Errorf("unsupported bson type %T", raw)
}

func fromSlice(items []any) (domain.Value, error) {
	out := make([]domain.Value, 0, len(items))
	for i, item := range items {
		val, err := FromBSON(item)
		if err != nil {
			return domain.Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, val)
	}
	return domain.Array(out...), nil
}

// Pipeline converts aggregation stages.
func Pipeline(stages []domain.Value) bson.A {
	out := make(bson.A, 0, len(stages))
	for _, stage := range stages {
		out = append(out, ToBSON(stage))
	}
	return out
}
