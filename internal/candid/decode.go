package candid

import "errors"

// ErrMalformedValue is returned when a wire value has zero or more than
// one variant tag populated.
var ErrMalformedValue = errors.New("malformed value: expected exactly one variant tag")

// Decode converts a wire value into a plain Go value tree:
// string, *big.Int, bool, []byte, *Object (ordered map) or []any.
// Nat and Int both decode to *big.Int, so arbitrary-precision values
// survive decoding without truncation.
func Decode(v Value) (any, error) {
	if v.tagCount() != 1 {
		return nil, ErrMalformedValue
	}

	switch {
	case v.Text != nil:
		return *v.Text, nil
	case v.Nat != nil:
		return v.Nat, nil
	case v.Int != nil:
		return v.Int, nil
	case v.Bool != nil:
		return *v.Bool, nil
	case v.Blob != nil:
		return v.Blob, nil
	case v.Map != nil:
		obj := NewObject()
		for _, entry := range v.Map {
			decoded, err := Decode(entry.Value)
			if err != nil {
				return nil, err
			}
			// Duplicate keys are a producer bug; keep the last value.
			obj.Set(entry.Key, decoded)
		}
		return obj, nil
	default:
		elems := make([]any, 0, len(v.Array))
		for _, elem := range v.Array {
			decoded, err := Decode(elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, decoded)
		}
		return elems, nil
	}
}
