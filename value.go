package landsync

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// ValueKind tags the concrete shape stored inside a SnapshotValue.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// SnapshotValue is the closed sum type every extracted field value is
// normalized into before it is diffed or put on the wire. Only one of the
// fields is meaningful, selected by Kind; the value is JSON-shaped rather
// than wire-encoded.
type SnapshotValue struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Double float64
	Str    string
	Array  []SnapshotValue
	Object map[string]SnapshotValue
}

// Null returns the null value.
func Null() SnapshotValue { return SnapshotValue{Kind: KindNull} }

// BoolValue wraps a bool.
func BoolValue(b bool) SnapshotValue { return SnapshotValue{Kind: KindBool, Bool: b} }

// IntValue wraps an int64.
func IntValue(i int64) SnapshotValue { return SnapshotValue{Kind: KindInt, Int: i} }

// DoubleValue wraps a float64.
func DoubleValue(f float64) SnapshotValue { return SnapshotValue{Kind: KindDouble, Double: f} }

// StringValue wraps a string.
func StringValue(s string) SnapshotValue { return SnapshotValue{Kind: KindString, Str: s} }

// ArrayValue wraps a slice of values.
func ArrayValue(v []SnapshotValue) SnapshotValue { return SnapshotValue{Kind: KindArray, Array: v} }

// ObjectValue wraps a field-name-keyed map of values.
func ObjectValue(v map[string]SnapshotValue) SnapshotValue {
	return SnapshotValue{Kind: KindObject, Object: v}
}

// FromAny converts a Go value produced by a field getter into a SnapshotValue.
// It panics on types with no defined mapping (func, chan, complex) since those
// can never legally sit behind a synced field; callers should only ever feed
// it values the schema already constrained.
func FromAny(v interface{}) SnapshotValue {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int8:
		return IntValue(int64(t))
	case int16:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint:
		return IntValue(int64(t))
	case uint8:
		return IntValue(int64(t))
	case uint16:
		return IntValue(int64(t))
	case uint32:
		return IntValue(int64(t))
	case uint64:
		return IntValue(int64(t))
	case float32:
		return DoubleValue(float64(t))
	case float64:
		return DoubleValue(t)
	case string:
		return StringValue(t)
	case SnapshotValue:
		return t
	case []SnapshotValue:
		return ArrayValue(t)
	case map[string]SnapshotValue:
		return ObjectValue(t)
	default:
		return fromMap(v)
	}
}

// fromMap handles slices and arrays of any element type, converting each
// element with FromAny, and any map-typed field value whose key isn't already
// `string`, chiefly `map[PlayerID]V` (and similar newtype-keyed maps) used
// by perPlayer fields. Keys are rendered with fmt.Sprint, which for the
// string-based ID types in this package is just the underlying string.
func fromMap(v interface{}) SnapshotValue {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		arr := make([]SnapshotValue, rv.Len())
		for i := range arr {
			arr[i] = FromAny(rv.Index(i).Interface())
		}
		return ArrayValue(arr)
	}
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		panic(fmt.Sprintf("landsync: value %v (%T) has no SnapshotValue mapping", v, v))
	}
	obj := make(map[string]SnapshotValue, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		obj[fmt.Sprint(iter.Key().Interface())] = FromAny(iter.Value().Interface())
	}
	return ObjectValue(obj)
}

// Equal reports whether two values are structurally identical. NaN doubles
// are never equal to anything, matching JSON's own inability to represent NaN.
func (v SnapshotValue) Equal(o SnapshotValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindDouble:
		if math.IsNaN(v.Double) || math.IsNaN(o.Double) {
			return false
		}
		return v.Double == o.Double
	case KindString:
		return v.Str == o.Str
	case KindArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Object) != len(o.Object) {
			return false
		}
		for k, vv := range v.Object {
			ov, ok := o.Object[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value the way it would appear on the wire.
func (v SnapshotValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindDouble:
		return json.Marshal(v.Double)
	case KindString:
		return json.Marshal(v.Str)
	case KindArray:
		return json.Marshal(v.Array)
	case KindObject:
		return json.Marshal(v.Object)
	default:
		return nil, fmt.Errorf("landsync: cannot marshal value kind %s", v.Kind)
	}
}

// UnmarshalJSON reconstructs a SnapshotValue from wire JSON. It is primarily
// used by tests and by clients replaying recorded traffic.
func (v *SnapshotValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromDecodedJSON(raw)
	return nil
}

func fromDecodedJSON(raw interface{}) SnapshotValue {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return BoolValue(t)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return IntValue(int64(t))
		}
		return DoubleValue(t)
	case string:
		return StringValue(t)
	case []interface{}:
		out := make([]SnapshotValue, len(t))
		for i, e := range t {
			out[i] = fromDecodedJSON(e)
		}
		return ArrayValue(out)
	case map[string]interface{}:
		out := make(map[string]SnapshotValue, len(t))
		for k, e := range t {
			out[k] = fromDecodedJSON(e)
		}
		return ObjectValue(out)
	default:
		return Null()
	}
}
