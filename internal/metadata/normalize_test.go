package metadata

import (
	"testing"

	"icrc-nft-gallery/internal/candid"
)

func icrc97Entry(inner ...candid.MapEntry) candid.MapEntry {
	return candid.MapEntry{Key: "icrc97:metadata", Value: candid.MapValue(inner...)}
}

func TestNormalizeKeepsOrderAndLastWrite(t *testing.T) {
	attrs := Normalize([]candid.MapEntry{
		{Key: "edition", Value: candid.NatValue(1)},
		{Key: "artist", Value: candid.TextValue("alice")},
		{Key: "edition", Value: candid.NatValue(2)},
	})

	keys := attrs.Keys()
	if len(keys) != 2 || keys[0] != "edition" || keys[1] != "artist" {
		t.Errorf("Keys() = %v, want [edition artist]", keys)
	}
}

func TestNormalizeMalformedEntryKeepsKey(t *testing.T) {
	attrs := Normalize([]candid.MapEntry{
		{Key: "good", Value: candid.TextValue("ok")},
		{Key: "bad", Value: candid.Value{}},
	})

	if attrs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", attrs.Len())
	}
	v, ok := attrs.Get("bad")
	if !ok || v != nil {
		t.Errorf("malformed entry = %v (present %v), want nil value present", v, ok)
	}
}

func TestDisplayName(t *testing.T) {
	attrs := Normalize([]candid.MapEntry{
		icrc97Entry(candid.MapEntry{Key: "name", Value: candid.TextValue("Genesis Rock")}),
	})
	if got := DisplayName(attrs, 3); got != "Genesis Rock" {
		t.Errorf("DisplayName = %q, want Genesis Rock", got)
	}
}

func TestDisplayNameFallback(t *testing.T) {
	if got := DisplayName(nil, 7); got != "NFT #7" {
		t.Errorf("DisplayName(nil) = %q, want NFT #7", got)
	}
	attrs := Normalize([]candid.MapEntry{icrc97Entry()})
	if got := DisplayName(attrs, 7); got != "NFT #7" {
		t.Errorf("DisplayName(empty block) = %q, want NFT #7", got)
	}
}

func TestDisplayDescriptionFallback(t *testing.T) {
	if got := DisplayDescription(nil); got != DefaultDescription {
		t.Errorf("DisplayDescription(nil) = %q, want %q", got, DefaultDescription)
	}
}

func TestPrimaryImageURLFirstMatch(t *testing.T) {
	asset := func(url, purpose string) candid.Value {
		return candid.MapValue(
			candid.MapEntry{Key: "url", Value: candid.TextValue(url)},
			candid.MapEntry{Key: "purpose", Value: candid.TextValue(purpose)},
		)
	}
	attrs := Normalize([]candid.MapEntry{
		icrc97Entry(candid.MapEntry{Key: "assets", Value: candid.ArrayValue(
			asset("/thumb.png", "thumbnail"),
			asset("/full.png", "icrc97:image"),
			asset("/other.png", "icrc97:image"),
		)}),
	})

	if got := PrimaryImageURL(attrs); got != "/full.png" {
		t.Errorf("PrimaryImageURL = %q, want /full.png", got)
	}
}

func TestPrimaryImageURLFallback(t *testing.T) {
	if got := PrimaryImageURL(nil); got != DefaultImage {
		t.Errorf("PrimaryImageURL(nil) = %q, want %q", got, DefaultImage)
	}

	// An asset without the image purpose does not qualify.
	attrs := Normalize([]candid.MapEntry{
		icrc97Entry(candid.MapEntry{Key: "assets", Value: candid.ArrayValue(
			candid.MapValue(candid.MapEntry{Key: "url", Value: candid.TextValue("/x.png")}),
		)}),
	})
	if got := PrimaryImageURL(attrs); got != DefaultImage {
		t.Errorf("PrimaryImageURL = %q, want %q", got, DefaultImage)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := ShortPrincipal("2vxsx-fae", 5); got == "" {
		t.Error("ShortPrincipal returned empty string")
	}
	if got := FormatTokenID(12); got != "#12" {
		t.Errorf("FormatTokenID = %q, want #12", got)
	}
}
