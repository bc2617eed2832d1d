package principal

import (
	"errors"
	"testing"
)

func TestAnonymousText(t *testing.T) {
	if got := Anonymous().String(); got != "2vxsx-fae" {
		t.Errorf("Anonymous().String() = %q, want 2vxsx-fae", got)
	}
	if !Anonymous().IsAnonymous() {
		t.Error("Anonymous().IsAnonymous() = false")
	}
}

func TestFromTextRoundTrip(t *testing.T) {
	for _, text := range []string{
		"2vxsx-fae",
		"aaaaa-aa",
	} {
		p, err := FromText(text)
		if err != nil {
			t.Fatalf("FromText(%q) error: %v", text, err)
		}
		if got := p.String(); got != text {
			t.Errorf("FromText(%q).String() = %q", text, got)
		}
	}
}

func TestFromTextChecksumMismatch(t *testing.T) {
	// Valid base32, wrong checksum for the payload.
	if _, err := FromText("2vxsx-fad"); !errors.Is(err, ErrInvalidPrincipal) {
		t.Errorf("FromText(tampered) error = %v, want ErrInvalidPrincipal", err)
	}
}

func TestFromTextGarbage(t *testing.T) {
	for _, text := range []string{"", "!!!", "2VXSX_FAE"} {
		if _, err := FromText(text); !errors.Is(err, ErrInvalidPrincipal) {
			t.Errorf("FromText(%q) error = %v, want ErrInvalidPrincipal", text, err)
		}
	}
}

func TestSelfAuthenticatingRoundTrip(t *testing.T) {
	der := []byte("not-a-real-key-but-any-bytes-work-here")
	p := SelfAuthenticating(der)

	if p.IsAnonymous() || p.IsZero() {
		t.Fatal("self-authenticating principal is anonymous or zero")
	}

	back, err := FromText(p.String())
	if err != nil {
		t.Fatalf("FromText(%q) error: %v", p.String(), err)
	}
	if !back.Equal(p) {
		t.Errorf("round trip changed principal: %q vs %q", back, p)
	}
}

func TestSelfAuthenticatingDeterministic(t *testing.T) {
	a := SelfAuthenticating([]byte{1, 2, 3})
	b := SelfAuthenticating([]byte{1, 2, 3})
	c := SelfAuthenticating([]byte{1, 2, 4})
	if !a.Equal(b) {
		t.Error("same key produced different principals")
	}
	if a.Equal(c) {
		t.Error("different keys produced the same principal")
	}
}

func TestTextMarshalling(t *testing.T) {
	p := Anonymous()
	data, err := p.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText error: %v", err)
	}

	var back Principal
	if err := back.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if !back.Equal(p) {
		t.Errorf("round trip changed principal: %q vs %q", back, p)
	}
}
