package candid

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestDecodeScalars(t *testing.T) {
	got, err := Decode(TextValue("hello"))
	if err != nil {
		t.Fatalf("Decode(Text) error: %v", err)
	}
	if got != "hello" {
		t.Errorf("Decode(Text) = %v, want hello", got)
	}

	got, err = Decode(NatValue(42))
	if err != nil {
		t.Fatalf("Decode(Nat) error: %v", err)
	}
	if n, ok := got.(*big.Int); !ok || n.Uint64() != 42 {
		t.Errorf("Decode(Nat) = %v, want 42", got)
	}

	got, err = Decode(IntValue(-7))
	if err != nil {
		t.Fatalf("Decode(Int) error: %v", err)
	}
	if n, ok := got.(*big.Int); !ok || n.Int64() != -7 {
		t.Errorf("Decode(Int) = %v, want -7", got)
	}

	got, err = Decode(BoolValue(true))
	if err != nil {
		t.Fatalf("Decode(Bool) error: %v", err)
	}
	if got != true {
		t.Errorf("Decode(Bool) = %v, want true", got)
	}

	got, err = Decode(BlobValue([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("Decode(Blob) error: %v", err)
	}
	if b, ok := got.([]byte); !ok || len(b) != 3 {
		t.Errorf("Decode(Blob) = %v, want [1 2 3]", got)
	}
}

func TestDecodeLargeNat(t *testing.T) {
	// Values beyond 2^64 must survive without truncation.
	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	got, err := Decode(Value{Nat: huge})
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	n, ok := got.(*big.Int)
	if !ok || n.Cmp(huge) != 0 {
		t.Errorf("Decode = %v, want %v", got, huge)
	}
}

func TestDecodeEmptyValue(t *testing.T) {
	_, err := Decode(Value{})
	if !errors.Is(err, ErrMalformedValue) {
		t.Errorf("Decode(empty) error = %v, want ErrMalformedValue", err)
	}
}

func TestDecodeMultipleTags(t *testing.T) {
	s := "x"
	_, err := Decode(Value{Text: &s, Nat: big.NewInt(1)})
	if !errors.Is(err, ErrMalformedValue) {
		t.Errorf("Decode(two tags) error = %v, want ErrMalformedValue", err)
	}
}

func TestDecodeNestedMalformed(t *testing.T) {
	// A malformed element deep inside fails the whole decode.
	v := MapValue(MapEntry{Key: "inner", Value: ArrayValue(Value{})})
	if _, err := Decode(v); !errors.Is(err, ErrMalformedValue) {
		t.Errorf("Decode(nested empty) error = %v, want ErrMalformedValue", err)
	}
}

func TestDecodeMapOrderAndDuplicates(t *testing.T) {
	v := MapValue(
		MapEntry{Key: "b", Value: NatValue(1)},
		MapEntry{Key: "a", Value: NatValue(2)},
		MapEntry{Key: "b", Value: NatValue(3)},
	)
	got, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	obj := got.(*Object)

	keys := obj.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v, want [b a]", keys)
	}
	bVal, _ := obj.Get("b")
	if n := bVal.(*big.Int); n.Uint64() != 3 {
		t.Errorf("duplicate key kept %v, want last value 3", n)
	}
}

func TestDecodeArray(t *testing.T) {
	got, err := Decode(ArrayValue(TextValue("x"), NatValue(9)))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	elems := got.([]any)
	if len(elems) != 2 {
		t.Fatalf("len = %d, want 2", len(elems))
	}
	if elems[0] != "x" {
		t.Errorf("elems[0] = %v, want x", elems[0])
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	got, err := Decode(Value{Array: []Value{}})
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	elems := got.([]any)
	if len(elems) != 0 {
		t.Errorf("len = %d, want 0", len(elems))
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	v := MapValue(
		MapEntry{Key: "name", Value: TextValue("Rock")},
		MapEntry{Key: "weight", Value: NatValue(12)},
	)
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(back.Map) != 2 || back.Map[0].Key != "name" || *back.Map[0].Value.Text != "Rock" {
		t.Errorf("round trip lost structure: %+v", back)
	}
}

func TestValueUnmarshalUnknownTag(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"Float":1.5}`), &v); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	// The unknown tag leaves the value empty; Decode reports it.
	if _, err := Decode(v); !errors.Is(err, ErrMalformedValue) {
		t.Errorf("Decode error = %v, want ErrMalformedValue", err)
	}
}

func TestObjectMarshalOrdered(t *testing.T) {
	obj := NewObject()
	obj.Set("z", "1")
	obj.Set("a", "2")
	obj.Set("z", "3")

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"z":"3","a":"2"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}
