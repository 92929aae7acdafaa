package activities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the scalar type held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNone Kind = iota
	KindString
	KindFloat
	KindInt
	KindBool
)

// Value is a scalar attribute value. Nested structures are not representable.
type Value struct {
	kind Kind
	s    string
	f    float64
	i    int64
	b    bool
}

// StringValue constructs a string value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// FloatValue constructs a floating point value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// IntValue constructs an integer value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ValueOf converts a Go scalar into a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return FloatValue(float64(x)), nil
		}
		return IntValue(int64(x)), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", v)
}

// Kind returns the scalar kind.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the value is absent or empty. Zero numbers and
// blank strings count as empty; false does not.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.s) == ""
	case KindFloat:
		return v.f == 0
	case KindInt:
		return v.i == 0
	case KindBool:
		return false
	}
	return true
}

// Float returns the numeric value, if any.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	}
	return 0, false
}

// Interface returns the underlying Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		return v.f
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	}
	return nil
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// numericTolerance is the relative difference under which two readings of the
// same metric from different devices count as equal.
const numericTolerance = 0.01

// Equal reports whether two values describe the same thing. Strings compare
// case-folded with surrounding space trimmed; numbers compare within 1%.
func (v Value) Equal(o Value) bool {
	if v.IsZero() && o.IsZero() {
		return true
	}
	if a, ok := v.Float(); ok && v.kind != KindString {
		if b, ok := o.Float(); ok {
			return closeEnough(a, b)
		}
	}
	if v.kind == KindBool || o.kind == KindBool {
		return v.kind == o.kind && v.b == o.b
	}
	// Casers carry state, so each comparison gets its own.
	fold := cases.Fold()
	a := fold.String(strings.TrimSpace(v.String()))
	fold.Reset()
	return a == fold.String(strings.TrimSpace(o.String()))
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= scale*numericTolerance
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as ints.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler.
func (v *Value) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Extra holds attributes with no dedicated slot, keyed by name.
type Extra map[string]Value

// Clone returns a copy of the map.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
