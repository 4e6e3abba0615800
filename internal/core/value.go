package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the content of a Value.
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindText
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a dynamic property value: a number, a string or a nested map.
// The zero Value is invalid.
type Value struct {
	kind Kind
	num  float64
	text string
	m    Properties
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

func Text(s string) Value { return Value{kind: KindText, text: s} }

// Map wraps a copy of p.
func Map(p Properties) Value { return Value{kind: KindMap, m: p.Clone()} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) Str() (string, bool) { return v.text, v.kind == KindText }

func (v Value) Props() (Properties, bool) { return v.m, v.kind == KindMap }

// Clone returns a deep copy.
func (v Value) Clone() Value {
	if v.kind == KindMap {
		return Value{kind: KindMap, m: v.m.Clone()}
	}
	return v
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindMap:
		return v.m.Equal(o.m)
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	case KindMap:
		return v.m.Fingerprint()
	}
	return "<invalid>"
}

// Interface converts the value to plain Go data (float64, string or
// map[string]interface{}).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindMap:
		return v.m.Interface()
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsInf(v.num, 0) || math.IsNaN(v.num)) {
		return json.Marshal(strconv.FormatFloat(v.num, 'g', -1, 64))
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	val, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// FromInterface converts decoded JSON/YAML data into a Value. Booleans
// become 0 or 1.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t.Clone(), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", t, err)
		}
		return Number(f), nil
	case bool:
		if t {
			return Number(1), nil
		}
		return Number(0), nil
	case string:
		return Text(t), nil
	case map[string]interface{}:
		p := make(Properties, len(t))
		for k, e := range t {
			val, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			p[k] = val
		}
		return Value{kind: KindMap, m: p}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}
