// Package principal implements the ledger's textual principal format:
// lowercase base32 of a CRC32 checksum followed by the raw identifier,
// grouped in dash-separated runs of five characters.
package principal

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// ErrInvalidPrincipal is returned when text input does not parse as a
// principal identifier.
var ErrInvalidPrincipal = errors.New("invalid principal")

const maxRawLen = 29

// Suffix bytes discriminating how an identifier was derived.
const (
	selfAuthenticatingTag = 0x02
	anonymousTag          = 0x04
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is an opaque identity handle used for signers, owners and
// approval counterparties.
type Principal struct {
	raw string
}

// Anonymous is the principal of an unauthenticated caller.
func Anonymous() Principal {
	return Principal{raw: string([]byte{anonymousTag})}
}

// FromBytes builds a principal from its raw identifier bytes.
func FromBytes(b []byte) (Principal, error) {
	if len(b) > maxRawLen {
		return Principal{}, fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrInvalidPrincipal, len(b), maxRawLen)
	}
	return Principal{raw: string(b)}, nil
}

// SelfAuthenticating derives the principal of a public key: the SHA-224
// digest of the DER-encoded key with a self-authenticating suffix byte.
func SelfAuthenticating(derPublicKey []byte) Principal {
	digest := sha256.Sum224(derPublicKey)
	return Principal{raw: string(digest[:]) + string([]byte{selfAuthenticatingTag})}
}

// FromText parses the dash-grouped textual form and verifies its
// checksum.
func FromText(text string) (Principal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), "-", "")
	decoded, err := encoding.DecodeString(strings.ToUpper(cleaned))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %s", ErrInvalidPrincipal, err)
	}
	if len(decoded) < 4 {
		return Principal{}, fmt.Errorf("%w: too short", ErrInvalidPrincipal)
	}

	checksum := binary.BigEndian.Uint32(decoded[:4])
	raw := decoded[4:]
	if len(raw) > maxRawLen {
		return Principal{}, fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrInvalidPrincipal, len(raw), maxRawLen)
	}
	if checksum != crc32.ChecksumIEEE(raw) {
		return Principal{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidPrincipal)
	}

	p := Principal{raw: string(raw)}
	if p.String() != strings.ToLower(strings.TrimSpace(text)) {
		return Principal{}, fmt.Errorf("%w: non-canonical text", ErrInvalidPrincipal)
	}
	return p, nil
}

// MustFromText parses text and panics on failure. For fixtures and
// configuration defaults known to be valid.
func MustFromText(text string) Principal {
	p, err := FromText(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Bytes returns the raw identifier bytes.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// String renders the canonical textual form.
func (p Principal) String() string {
	data := make([]byte, 4+len(p.raw))
	binary.BigEndian.PutUint32(data[:4], crc32.ChecksumIEEE([]byte(p.raw)))
	copy(data[4:], p.raw)

	b32 := strings.ToLower(encoding.EncodeToString(data))

	var sb strings.Builder
	for i, r := range b32 {
		if i > 0 && i%5 == 0 {
			sb.WriteByte('-')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Equal reports whether two principals carry the same identifier.
func (p Principal) Equal(other Principal) bool {
	return p.raw == other.raw
}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return p.raw == string([]byte{anonymousTag})
}

// IsZero reports whether p is the zero value (no identifier at all,
// distinct from the anonymous principal).
func (p Principal) IsZero() bool {
	return p.raw == ""
}

// MarshalText renders the canonical textual form.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the textual form.
func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := FromText(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
