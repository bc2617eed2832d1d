// Package metadata normalizes raw token metadata entries into ordered
// attribute maps and derives the display fields the UI renders.
package metadata

import (
	"fmt"

	"icrc-nft-gallery/internal/candid"
)

// Keys and literals of the icrc97 metadata convention.
const (
	metadataKey  = "icrc97:metadata"
	imagePurpose = "icrc97:image"
)

// Fallbacks used when metadata is missing or malformed. The UI must
// never crash on absent data.
const (
	DefaultDescription = "No description available"
	DefaultImage       = "/default-nft.png"
)

// Normalize decodes every metadata entry into a plain value keyed by
// the original text key. Insertion order is preserved and duplicate
// keys are last-write-wins. An entry whose value fails to decode is
// kept with a nil value rather than failing the whole map.
func Normalize(entries []candid.MapEntry) *candid.Object {
	attrs := candid.NewObject()
	for _, entry := range entries {
		decoded, err := candid.Decode(entry.Value)
		if err != nil {
			attrs.Set(entry.Key, nil)
			continue
		}
		attrs.Set(entry.Key, decoded)
	}
	return attrs
}

// DisplayName returns the token's name from the icrc97 block, or
// "NFT #<id>" when absent.
func DisplayName(attrs *candid.Object, tokenID uint64) string {
	if name, ok := attrs.Object(metadataKey).String("name"); ok && name != "" {
		return name
	}
	return fmt.Sprintf("NFT #%d", tokenID)
}

// DisplayDescription returns the token's description from the icrc97
// block, or a fixed placeholder when absent.
func DisplayDescription(attrs *candid.Object) string {
	if desc, ok := attrs.Object(metadataKey).String("description"); ok && desc != "" {
		return desc
	}
	return DefaultDescription
}

// PrimaryImageURL returns the URL of the first icrc97 asset whose
// purpose is the image literal, or the default image reference when
// the assets list is absent, malformed or has no matching entry.
func PrimaryImageURL(attrs *candid.Object) string {
	for _, elem := range attrs.Object(metadataKey).Array("assets") {
		asset, ok := elem.(*candid.Object)
		if !ok {
			continue
		}
		if purpose, ok := asset.String("purpose"); !ok || purpose != imagePurpose {
			continue
		}
		if url, ok := asset.String("url"); ok && url != "" {
			return url
		}
	}
	return DefaultImage
}
