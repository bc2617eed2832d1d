// Package candid models the self-describing variant values the ledger
// returns for token and collection metadata, and decodes them into plain
// Go value trees.
package candid

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Value is a tagged union with exactly one of the tag fields set.
// It mirrors the wire shape of the ledger's metadata values.
type Value struct {
	Text  *string
	Nat   *big.Int
	Int   *big.Int
	Bool  *bool
	Blob  []byte
	Map   []MapEntry
	Array []Value
}

// MapEntry is one (key, value) pair of a Map value. Pairs are ordered
// and keys are expected to be unique; duplicates are resolved
// last-write-wins at decode time.
type MapEntry struct {
	Key   string
	Value Value
}

// Constructors for the common tags, used when building mint metadata.

func TextValue(s string) Value { return Value{Text: &s} }

func NatValue(n uint64) Value { return Value{Nat: new(big.Int).SetUint64(n)} }

func IntValue(n int64) Value { return Value{Int: big.NewInt(n)} }

func BoolValue(b bool) Value { return Value{Bool: &b} }

func BlobValue(b []byte) Value { return Value{Blob: b} }

func MapValue(entries ...MapEntry) Value { return Value{Map: entries} }

func ArrayValue(elems ...Value) Value { return Value{Array: elems} }

// tagCount reports how many tags are populated. A well-formed value has
// exactly one.
func (v Value) tagCount() int {
	n := 0
	if v.Text != nil {
		n++
	}
	if v.Nat != nil {
		n++
	}
	if v.Int != nil {
		n++
	}
	if v.Bool != nil {
		n++
	}
	if v.Blob != nil {
		n++
	}
	if v.Map != nil {
		n++
	}
	if v.Array != nil {
		n++
	}
	return n
}

// MarshalJSON writes the single populated tag as a one-key object,
// matching the wire shape ({"Text": "..."}, {"Nat": 5}, ...).
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.Text != nil:
		return json.Marshal(map[string]string{"Text": *v.Text})
	case v.Nat != nil:
		return json.Marshal(map[string]*big.Int{"Nat": v.Nat})
	case v.Int != nil:
		return json.Marshal(map[string]*big.Int{"Int": v.Int})
	case v.Bool != nil:
		return json.Marshal(map[string]bool{"Bool": *v.Bool})
	case v.Blob != nil:
		return json.Marshal(map[string][]byte{"Blob": v.Blob})
	case v.Map != nil:
		return json.Marshal(map[string][]MapEntry{"Map": v.Map})
	case v.Array != nil:
		return json.Marshal(map[string][]Value{"Array": v.Array})
	}
	return nil, ErrMalformedValue
}

// UnmarshalJSON reads the one-key wire object. Unknown or absent tags
// leave the value empty; Decode reports those as ErrMalformedValue.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}

	*v = Value{}
	for tag, body := range raw {
		switch tag {
		case "Text":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("unmarshal Text tag: %w", err)
			}
			v.Text = &s
		case "Nat":
			n := new(big.Int)
			if err := json.Unmarshal(body, n); err != nil {
				return fmt.Errorf("unmarshal Nat tag: %w", err)
			}
			v.Nat = n
		case "Int":
			n := new(big.Int)
			if err := json.Unmarshal(body, n); err != nil {
				return fmt.Errorf("unmarshal Int tag: %w", err)
			}
			v.Int = n
		case "Bool":
			var b bool
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("unmarshal Bool tag: %w", err)
			}
			v.Bool = &b
		case "Blob":
			var b []byte
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("unmarshal Blob tag: %w", err)
			}
			if b == nil {
				b = []byte{}
			}
			v.Blob = b
		case "Map":
			var entries []MapEntry
			if err := json.Unmarshal(body, &entries); err != nil {
				return fmt.Errorf("unmarshal Map tag: %w", err)
			}
			if entries == nil {
				entries = []MapEntry{}
			}
			v.Map = entries
		case "Array":
			var elems []Value
			if err := json.Unmarshal(body, &elems); err != nil {
				return fmt.Errorf("unmarshal Array tag: %w", err)
			}
			if elems == nil {
				elems = []Value{}
			}
			v.Array = elems
		}
	}
	return nil
}

// MarshalJSON writes a map entry as a [key, value] pair.
func (e MapEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Key, e.Value})
}

// UnmarshalJSON reads a [key, value] pair.
func (e *MapEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("unmarshal map entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("unmarshal map entry: expected [key, value], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Key); err != nil {
		return fmt.Errorf("unmarshal map entry key: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Value); err != nil {
		return fmt.Errorf("unmarshal map entry value: %w", err)
	}
	return nil
}
