package candid

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a string-keyed map that preserves insertion order. Decoded
// Map values and normalized metadata are represented as Objects so
// attribute ordering from the ledger survives round trips to the UI.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty ordered object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set stores a value under key. A repeated key overwrites the value but
// keeps the key's original position.
func (o *Object) Set(key string, value any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Object returns the nested object stored under key, or nil if the key
// is absent or holds a different type.
func (o *Object) Object(key string) *Object {
	v, ok := o.Get(key)
	if !ok {
		return nil
	}
	nested, _ := v.(*Object)
	return nested
}

// String returns the string stored under key.
func (o *Object) String(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Array returns the slice stored under key, or nil.
func (o *Object) Array(key string) []any {
	v, ok := o.Get(key)
	if !ok {
		return nil
	}
	arr, _ := v.([]any)
	return arr
}

// MarshalJSON writes the object as a JSON object with keys in insertion
// order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, fmt.Errorf("marshal value for %q: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
