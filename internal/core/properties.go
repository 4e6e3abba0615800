package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMissingProperty is returned when a key is absent from a bag.
	ErrMissingProperty = errors.New("missing property")
	// ErrPropertyType is returned when a key holds a value of another kind.
	ErrPropertyType = errors.New("property type mismatch")
)

// Properties is a property bag: unique string keys to owned values.
// Use NewProperties or a literal; Set on a nil bag panics.
type Properties map[string]Value

func NewProperties() Properties { return make(Properties) }

// Set inserts or replaces key.
func (p Properties) Set(key string, v Value) { p[key] = v }

func (p Properties) SetNumber(key string, f float64) { p[key] = Number(f) }

func (p Properties) SetText(key, s string) { p[key] = Text(s) }

func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Get returns the value stored under key.
func (p Properties) Get(key string) (Value, error) {
	v, ok := p[key]
	if !ok {
		return Value{}, fmt.Errorf("property %q: %w", key, ErrMissingProperty)
	}
	return v, nil
}

// Number returns the numeric value stored under key.
func (p Properties) Number(key string) (float64, error) {
	v, err := p.Get(key)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("property %q is %s: %w", key, v.Kind(), ErrPropertyType)
	}
	return f, nil
}

// NumberOr returns the numeric value under key, or def when absent or
// not a number.
func (p Properties) NumberOr(key string, def float64) float64 {
	f, err := p.Number(key)
	if err != nil {
		return def
	}
	return f
}

// Text returns the string value stored under key.
func (p Properties) Text(key string) (string, error) {
	v, err := p.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.Str()
	if !ok {
		return "", fmt.Errorf("property %q is %s: %w", key, v.Kind(), ErrPropertyType)
	}
	return s, nil
}

// TextOr returns the string under key, or def.
func (p Properties) TextOr(key, def string) string {
	s, err := p.Text(key)
	if err != nil {
		return def
	}
	return s
}

// Clone returns a deep copy. Cloning nil yields an empty bag.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v.Clone()
	}
	return out
}

func (p Properties) Equal(o Properties) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		w, ok := o[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

// Keys returns the keys in lexical order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fingerprint is a canonical rendering used for deterministic ordering.
func (p Properties) Fingerprint() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

func (p Properties) Interface() map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

// PropertiesFrom converts plain decoded data into a bag.
func PropertiesFrom(m map[string]interface{}) (Properties, error) {
	p := make(Properties, len(m))
	for k, x := range m {
		v, err := FromInterface(x)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		p[k] = v
	}
	return p, nil
}
