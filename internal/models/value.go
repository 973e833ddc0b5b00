package models

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a structured metadata value: a scalar, a list, or a nested map.
// Metadata crossing store boundaries is always expressed through Value so
// that serialization stays explicit instead of relying on untyped maps.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
	Map  map[string]Value
}

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Boolean returns a boolean Value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Strings returns a list Value from string elements.
func Strings(ss []string) Value {
	list := make([]Value, len(ss))
	for i, s := range ss {
		list[i] = String(s)
	}
	return Value{Kind: KindList, List: list}
}

// Numbers returns a list Value from float64 elements.
func Numbers(ns []float64) Value {
	list := make([]Value, len(ns))
	for i, n := range ns {
		list[i] = Number(n)
	}
	return Value{Kind: KindList, List: list}
}

// StringSlice extracts []string from a list Value. Non-string elements
// are skipped.
func (v Value) StringSlice() []string {
	if v.Kind != KindList {
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, el := range v.List {
		if el.Kind == KindString {
			out = append(out, el.Str)
		}
	}
	return out
}

// NumberSlice extracts []float64 from a list Value.
func (v Value) NumberSlice() []float64 {
	if v.Kind != KindList {
		return nil
	}
	out := make([]float64, 0, len(v.List))
	for _, el := range v.List {
		if el.Kind == KindNumber {
			out = append(out, el.Num)
		}
	}
	return out
}

// MarshalJSON renders the Value as native JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindMap:
		if v.Map == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Map)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON parses native JSON back into a tagged Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromInterface converts a decoded JSON value into a Value.
func FromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case bool:
		return Boolean(x), nil
	case []interface{}:
		list := make([]Value, len(x))
		for i, el := range x {
			parsed, err := FromInterface(el)
			if err != nil {
				return Value{}, err
			}
			list[i] = parsed
		}
		return Value{Kind: KindList, List: list}, nil
	case map[string]interface{}:
		m := make(map[string]Value, len(x))
		for k, el := range x {
			parsed, err := FromInterface(el)
			if err != nil {
				return Value{}, err
			}
			m[k] = parsed
		}
		return Value{Kind: KindMap, Map: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata type %T", raw)
	}
}

// ToInterface converts a Value into plain Go types suitable for store
// clients that expect map[string]interface{} properties.
func (v Value) ToInterface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, el := range v.List {
			out[i] = el.ToInterface()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, el := range v.Map {
			out[k] = el.ToInterface()
		}
		return out
	default:
		return nil
	}
}

// Metadata is a structured metadata map attached to knowledge entries and
// vector chunks.
type Metadata map[string]Value

// GetString returns the string at key, and whether it was present as a
// string.
func (m Metadata) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// GetStrings returns the string list at key.
func (m Metadata) GetStrings(key string) ([]string, bool) {
	v, ok := m[key]
	if !ok || v.Kind != KindList {
		return nil, false
	}
	return v.StringSlice(), true
}

// GetNumbers returns the numeric list at key.
func (m Metadata) GetNumbers(key string) ([]float64, bool) {
	v, ok := m[key]
	if !ok || v.Kind != KindList {
		return nil, false
	}
	return v.NumberSlice(), true
}

// ToInterface converts the whole map into plain Go types.
func (m Metadata) ToInterface() map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.ToInterface()
	}
	return out
}
