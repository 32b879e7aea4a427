// Package protocol is the core's RPC boundary (spec.md §6.2): tagged
// values, dotted-method requests/responses, and a method router.
// Adapted from the teacher's internal/protocol tagged-union-over-JSON
// pattern (ClientMsg/ServerMsg choosing the one non-nil field via
// custom Marshal/Unmarshal), generalized from a fixed OT message set to
// an open value union plus a method-name router.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/sloked-go/sloked/internal/corerr"
)

// Kind tags which alternative a Value holds.
type Kind int

const (
	Null Kind = iota
	IntKind
	FloatKind
	BoolKind
	StringKind
	ArrayKind
	MappingKind
)

// Value is the tagged union (null, int, float, bool, string, array,
// mapping) passed across the RPC boundary, per spec.md §6.
type Value struct {
	kind    Kind
	intV    int64
	floatV  float64
	boolV   bool
	stringV string
	arrayV  []Value
	mapV    map[string]Value
}

// VNull is the null value.
var VNull = Value{kind: Null}

func VInt(v int64) Value       { return Value{kind: IntKind, intV: v} }
func VFloat(v float64) Value   { return Value{kind: FloatKind, floatV: v} }
func VBool(v bool) Value       { return Value{kind: BoolKind, boolV: v} }
func VString(v string) Value   { return Value{kind: StringKind, stringV: v} }
func VArray(v []Value) Value   { return Value{kind: ArrayKind, arrayV: v} }
func VMapping(v map[string]Value) Value {
	return Value{kind: MappingKind, mapV: v}
}

// Kind reports which alternative v holds.
func (v Value) Kind() Kind { return v.kind }

func (v Value) Int() (int64, bool)              { return v.intV, v.kind == IntKind }
func (v Value) Float() (float64, bool)           { return v.floatV, v.kind == FloatKind }
func (v Value) Bool() (bool, bool)               { return v.boolV, v.kind == BoolKind }
func (v Value) String() (string, bool)           { return v.stringV, v.kind == StringKind }
func (v Value) Array() ([]Value, bool)           { return v.arrayV, v.kind == ArrayKind }
func (v Value) Mapping() (map[string]Value, bool) { return v.mapV, v.kind == MappingKind }

// IsNull reports whether v holds the null alternative.
func (v Value) IsNull() bool { return v.kind == Null }

// MarshalJSON encodes v as the plain JSON value it represents (not as a
// tagged envelope); a Value round-trips through ordinary JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case IntKind:
		return json.Marshal(v.intV)
	case FloatKind:
		return json.Marshal(v.floatV)
	case BoolKind:
		return json.Marshal(v.boolV)
	case StringKind:
		return json.Marshal(v.stringV)
	case ArrayKind:
		return json.Marshal(v.arrayV)
	case MappingKind:
		return json.Marshal(v.mapV)
	default:
		return nil, corerr.Newf(corerr.InvalidState, "unhandled value kind %d", v.kind)
	}
}

// UnmarshalJSON decodes raw JSON into the Value alternative it
// naturally maps to (object -> mapping, array -> array, number -> int
// or float, etc).
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return VNull
	case bool:
		return VBool(t)
	case string:
		return VString(t)
	case float64:
		if t == float64(int64(t)) {
			return VInt(int64(t))
		}
		return VFloat(t)
	case []interface{}:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = fromInterface(e)
		}
		return VArray(out)
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = fromInterface(e)
		}
		return VMapping(out)
	default:
		return VNull
	}
}

// GoString renders v for debugging/error messages.
func (v Value) GoString() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid value kind %d>", v.kind)
	}
	return string(b)
}
