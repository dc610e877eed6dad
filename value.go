package spanz

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindInvalid is the zero Kind. No constructor produces it.
	KindInvalid Kind = iota
	// KindInt64 holds a signed integer.
	KindInt64
	// KindUint64 holds an unsigned integer.
	KindUint64
	// KindFloat64 holds a float.
	KindFloat64
	// KindBool holds a bool.
	KindBool
	// KindString holds a string.
	KindString
	// KindFallback holds the rendered form of a type outside the closed set.
	KindFallback
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindFallback:
		return "fallback"
	default:
		return "invalid"
	}
}

// Value holds one field value from the closed set of supported variants:
// int64, uint64, float64, bool, string, and the rendered fallback for
// everything else. The zero Value is invalid - use the typed constructors
// or record through a FieldStore, which normalizes raw values.
type Value struct {
	kind Kind
	num  uint64
	str  string
}

// Int64Value returns a Value holding a signed integer.
func Int64Value(v int64) Value {
	return Value{kind: KindInt64, num: uint64(v)}
}

// Uint64Value returns a Value holding an unsigned integer.
func Uint64Value(v uint64) Value {
	return Value{kind: KindUint64, num: v}
}

// Float64Value returns a Value holding a float.
func Float64Value(v float64) Value {
	return Value{kind: KindFloat64, num: math.Float64bits(v)}
}

// BoolValue returns a Value holding a bool.
func BoolValue(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// StringValue returns a Value holding a string.
func StringValue(v string) Value {
	return Value{kind: KindString, str: v}
}

// FallbackValue returns a Value holding the rendered form of a value
// outside the supported set.
func FallbackValue(rendered string) Value {
	return Value{kind: KindFallback, str: rendered}
}

// Kind returns the variant this value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// Int64 returns the signed integer payload. Valid only for KindInt64.
func (v Value) Int64() int64 {
	return int64(v.num)
}

// Uint64 returns the unsigned integer payload. Valid only for KindUint64.
func (v Value) Uint64() uint64 {
	return v.num
}

// Float64 returns the float payload. Valid only for KindFloat64.
func (v Value) Float64() float64 {
	return math.Float64frombits(v.num)
}

// Bool returns the bool payload. Valid only for KindBool.
func (v Value) Bool() bool {
	return v.num == 1
}

// Str returns the string payload. Valid for KindString and KindFallback.
func (v Value) Str() string {
	return v.str
}

// Any returns the payload as its natural Go type.
func (v Value) Any() any {
	switch v.kind {
	case KindInt64:
		return v.Int64()
	case KindUint64:
		return v.num
	case KindFloat64:
		return v.Float64()
	case KindBool:
		return v.Bool()
	case KindString, KindFallback:
		return v.str
	default:
		return nil
	}
}

// String renders the payload for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case KindUint64:
		return strconv.FormatUint(v.num, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindString, KindFallback:
		return v.str
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the payload in its natural JSON form. Strings and
// fallback values become JSON strings. Non-finite floats have no JSON
// number form and encode as null, so a record carrying one still emits.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt64:
		return strconv.AppendInt(nil, v.Int64(), 10), nil
	case KindUint64:
		return strconv.AppendUint(nil, v.num, 10), nil
	case KindFloat64:
		f := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(f)
	case KindBool:
		return strconv.AppendBool(nil, v.Bool()), nil
	default:
		return json.Marshal(v.str)
	}
}

// fieldValue normalizes an arbitrary host value into the closed Value set.
// Integer widths widen to int64 or uint64 and floats to float64. Anything
// outside the set is rendered through the fallback path.
func fieldValue(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case int64:
		return Int64Value(x)
	case int:
		return Int64Value(int64(x))
	case int32:
		return Int64Value(int64(x))
	case int16:
		return Int64Value(int64(x))
	case int8:
		return Int64Value(int64(x))
	case uint64:
		return Uint64Value(x)
	case uint:
		return Uint64Value(uint64(x))
	case uint32:
		return Uint64Value(uint64(x))
	case uint16:
		return Uint64Value(uint64(x))
	case uint8:
		return Uint64Value(uint64(x))
	case uintptr:
		return Uint64Value(uint64(x))
	case float64:
		return Float64Value(x)
	case float32:
		return Float64Value(float64(x))
	case bool:
		return BoolValue(x)
	case string:
		return StringValue(x)
	default:
		return FallbackValue(fmt.Sprintf("%+v", v))
	}
}
