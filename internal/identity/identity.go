// Package identity provides the signing identity used against the
// ledger: ed25519 keys held in a local keystore file, and a session
// that tracks the signed-in identity and its administrator flag.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"icrc-nft-gallery/internal/principal"
)

// ErrNoIdentity is returned when an operation requires a signed-in
// identity and none is present.
var ErrNoIdentity = errors.New("no signed-in identity")

// ed25519 SubjectPublicKeyInfo DER prefix; the principal is derived
// from the DER encoding of the public key.
var ed25519DERPrefix = []byte{
	0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00,
}

// Identity signs call envelopes and carries the derived principal.
type Identity interface {
	Principal() principal.Principal
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

// Ed25519Identity is an identity backed by an ed25519 key pair.
type Ed25519Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	p    principal.Principal
}

// NewEd25519Identity generates a fresh random identity.
func NewEd25519Identity() (*Ed25519Identity, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return FromSeed(seed)
}

// FromSeed derives an identity from a 32-byte seed. The resulting
// public key is checked to be a canonical curve point.
func FromSeed(seed []byte) (*Ed25519Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("public key is not a valid curve point: %w", err)
	}

	der := make([]byte, 0, len(ed25519DERPrefix)+ed25519.PublicKeySize)
	der = append(der, ed25519DERPrefix...)
	der = append(der, pub...)

	return &Ed25519Identity{
		priv: priv,
		pub:  pub,
		p:    principal.SelfAuthenticating(der),
	}, nil
}

// Principal returns the self-authenticating principal of the key.
func (id *Ed25519Identity) Principal() principal.Principal {
	return id.p
}

// PublicKey returns the raw ed25519 public key.
func (id *Ed25519Identity) PublicKey() []byte {
	return append([]byte(nil), id.pub...)
}

// Sign signs a message with the private key.
func (id *Ed25519Identity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(id.priv, message), nil
}

// Seed returns the private seed for keystore persistence.
func (id *Ed25519Identity) Seed() []byte {
	return id.priv.Seed()
}

// LoadKeystore reads an identity from a keystore file containing the
// base58-encoded seed.
func LoadKeystore(path string) (*Ed25519Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	seed, err := base58.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	id, err := FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("keystore %s: %w", path, err)
	}
	return id, nil
}

// SaveKeystore writes the identity's seed to a keystore file,
// base58-encoded, readable only by the owner.
func SaveKeystore(path string, id *Ed25519Identity) error {
	encoded := base58.Encode(id.Seed())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

// LoadOrCreateKeystore loads the keystore at path, generating and
// persisting a fresh identity if the file does not exist.
func LoadOrCreateKeystore(path string) (*Ed25519Identity, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadKeystore(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat keystore: %w", err)
	}

	id, err := NewEd25519Identity()
	if err != nil {
		return nil, err
	}
	if err := SaveKeystore(path, id); err != nil {
		return nil, err
	}
	return id, nil
}
