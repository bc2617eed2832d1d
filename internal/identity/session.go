package identity

import (
	"io"
	"log"
	"sync"

	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/observability"
	"icrc-nft-gallery/internal/principal"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// KeystorePath is the identity file loaded (or created) on login.
	KeystorePath string

	// Admin is the configured administrator principal. Zero means no
	// administrator.
	Admin principal.Principal

	Logger *log.Logger
}

// Session holds the signed-in identity for the lifetime of the
// process. It is passed explicitly to the token store and the mutation
// operations; there is no ambient identity state. Registered change
// hooks run after every login and logout so dependents can invalidate
// per-identity caches.
type Session struct {
	opts   SessionOptions
	logger *log.Logger

	mu       sync.RWMutex
	identity Identity
	hooks    []func(Identity)
}

// NewSession creates a logged-out session.
func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{opts: opts, logger: logger}
}

// OnChange registers a hook invoked after login (with the new
// identity) and after logout (with nil).
func (s *Session) OnChange(hook func(Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Login loads the keystore identity and makes it current. Logging in
// while already signed in replaces the identity.
func (s *Session) Login() (Identity, error) {
	id, err := LoadOrCreateKeystore(s.opts.KeystorePath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.identity = id
	hooks := append([]func(Identity){}, s.hooks...)
	s.mu.Unlock()

	s.logger.Printf("Signed in as %s", id.Principal())
	observability.RecordLogin()
	for _, hook := range hooks {
		hook(id)
	}
	return id, nil
}

// Logout clears the current identity.
func (s *Session) Logout() {
	s.mu.Lock()
	wasSignedIn := s.identity != nil
	s.identity = nil
	hooks := append([]func(Identity){}, s.hooks...)
	s.mu.Unlock()

	if !wasSignedIn {
		return
	}
	s.logger.Println("Signed out")
	observability.RecordLogout()
	for _, hook := range hooks {
		hook(nil)
	}
}

// Current returns the signed-in identity, if any.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.identity != nil
}

// Account returns the signed-in identity's default account.
func (s *Session) Account() (domain.Account, bool) {
	id, ok := s.Current()
	if !ok {
		return domain.Account{}, false
	}
	return domain.DefaultAccount(id.Principal()), true
}

// IsAdministrator reports whether the signed-in identity is the
// configured administrator.
func (s *Session) IsAdministrator() bool {
	id, ok := s.Current()
	if !ok || s.opts.Admin.IsZero() {
		return false
	}
	return id.Principal().Equal(s.opts.Admin)
}

// Principal implements ledger.Signer: the current principal, or the
// anonymous principal when logged out.
func (s *Session) Principal() principal.Principal {
	if id, ok := s.Current(); ok {
		return id.Principal()
	}
	return principal.Anonymous()
}

// PublicKey implements ledger.Signer; nil when logged out.
func (s *Session) PublicKey() []byte {
	if id, ok := s.Current(); ok {
		return id.PublicKey()
	}
	return nil
}

// Sign implements ledger.Signer. Anonymous envelopes are unsigned.
func (s *Session) Sign(message []byte) ([]byte, error) {
	if id, ok := s.Current(); ok {
		return id.Sign(message)
	}
	return nil, nil
}
