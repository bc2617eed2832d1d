// Package nft implements the mutation operations of the gallery
// (transfer, approve, revoke, mint, burn) and the per-token detail
// view with its approval reconciliation. Operations validate input
// locally, submit a single-element request batch, surface ledger
// errors verbatim without retry, and refresh the token store on
// success; there is no optimistic local mutation.
package nft

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/identity"
	"icrc-nft-gallery/internal/ledger"
	"icrc-nft-gallery/internal/observability"
	"icrc-nft-gallery/internal/principal"
	"icrc-nft-gallery/internal/store"
)

// Operation names a mutation for state tracking and metrics.
type Operation string

const (
	OpTransfer Operation = "transfer"
	OpApprove  Operation = "approve"
	OpRevoke   Operation = "revoke"
	OpMint     Operation = "mint"
	OpBurn     Operation = "burn"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Client  ledger.Client
	Store   *store.TokenStore
	Session *identity.Session
	Logger  *log.Logger
	Now     func() time.Time
}

// Service executes the mutation operations against the ledger.
type Service struct {
	client  ledger.Client
	store   *store.TokenStore
	session *identity.Session
	logger  *log.Logger
	now     func() time.Time

	// mintMu serializes this client's mints so it never races itself
	// for the next token identifier. Cross-client duplicates surface
	// as the ledger's own err variant.
	mintMu sync.Mutex

	stateMu sync.RWMutex
	states  map[Operation]domain.OperationState
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		client:  opts.Client,
		store:   opts.Store,
		session: opts.Session,
		logger:  logger,
		now:     now,
		states:  make(map[Operation]domain.OperationState),
	}
}

// State returns the current state of one operation.
func (s *Service) State(op Operation) domain.OperationState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if st, ok := s.states[op]; ok {
		return st
	}
	return domain.Idle()
}

// States returns a snapshot of every operation's state.
func (s *Service) States() map[Operation]domain.OperationState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	out := make(map[Operation]domain.OperationState, len(s.states))
	for op, st := range s.states {
		out[op] = st
	}
	return out
}

func (s *Service) setState(op Operation, st domain.OperationState) {
	s.stateMu.Lock()
	s.states[op] = st
	s.stateMu.Unlock()
}

// fail records a failed operation and returns its error.
func (s *Service) fail(op Operation, err error) error {
	s.setState(op, domain.Failed(err.Error()))
	observability.RecordMutation(string(op), "error")
	return err
}

func (s *Service) succeed(op Operation) {
	s.setState(op, domain.Succeeded())
	observability.RecordMutation(string(op), "ok")
}

// parseAccount parses a principal text into its default account.
func parseAccount(text string) (domain.Account, error) {
	p, err := principal.FromText(text)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, err)
	}
	return domain.DefaultAccount(p), nil
}

// requireOwner checks the signed-in identity against the last-known
// owner of the token.
func (s *Service) requireOwner(tokenID uint64) (domain.Account, error) {
	acct, ok := s.session.Account()
	if !ok {
		return domain.Account{}, identity.ErrNoIdentity
	}
	rec, ok := s.store.Get(tokenID)
	if !ok {
		return domain.Account{}, ErrTokenNotFound
	}
	if !domain.SameAccount(rec.Owner, acct) {
		return domain.Account{}, ErrNotOwner
	}
	return acct, nil
}

func (s *Service) requireAdmin() error {
	if _, ok := s.session.Current(); !ok {
		return identity.ErrNoIdentity
	}
	if !s.session.IsAdministrator() {
		return ErrNotAdmin
	}
	return nil
}

// IsOwner reports whether the signed-in identity owns the token per
// the last-known record.
func (s *Service) IsOwner(tokenID uint64) bool {
	acct, ok := s.session.Account()
	if !ok {
		return false
	}
	rec, ok := s.store.Get(tokenID)
	return ok && domain.SameAccount(rec.Owner, acct)
}

// IsAdministrator reports whether the signed-in identity is the
// configured administrator.
func (s *Service) IsAdministrator() bool {
	return s.session.IsAdministrator()
}

// firstResult extracts the single result element of a mutation batch.
// A ledger err variant is returned verbatim as a *ledger.CallError.
func firstResult(results []*ledger.Result, err error) error {
	if err != nil {
		return err
	}
	if len(results) == 0 || results[0] == nil {
		return ErrMissingResult
	}
	if results[0].Err != nil {
		return results[0].Err
	}
	return nil
}

// refreshAfterMutation reconciles local state with ledger truth after
// a successful mutation. Refresh failures are logged, not surfaced;
// the mutation itself succeeded.
func (s *Service) refreshAfterMutation(ctx context.Context) {
	if _, err := s.store.FetchAll(ctx); err != nil {
		s.logger.Printf("Refresh after mutation failed: %v", err)
	}
	if acct, ok := s.session.Account(); ok {
		if _, err := s.store.FetchMine(ctx, acct); err != nil {
			s.logger.Printf("Refresh of own tokens after mutation failed: %v", err)
		}
	}
}

// Transfer moves a token to the recipient principal's default account.
// The signed-in identity must be the current owner.
func (s *Service) Transfer(ctx context.Context, tokenID uint64, recipient string) error {
	to, err := parseAccount(recipient)
	if err != nil {
		return s.fail(OpTransfer, err)
	}
	if _, err := s.requireOwner(tokenID); err != nil {
		return s.fail(OpTransfer, err)
	}

	s.setState(OpTransfer, domain.InFlight())
	results, callErr := s.client.Transfer(ctx, []ledger.TransferArg{{
		TokenID: tokenID,
		To:      to,
	}})
	if err := firstResult(results, callErr); err != nil {
		return s.fail(OpTransfer, err)
	}

	s.refreshAfterMutation(ctx)
	s.succeed(OpTransfer)
	s.logger.Printf("Transferred token %d to %s", tokenID, to)
	return nil
}

// Approve grants the spender principal a transfer approval on the
// token, optionally bounded by a future nanosecond expiry.
func (s *Service) Approve(ctx context.Context, tokenID uint64, spender string, expiresAt *uint64) error {
	spenderAcct, err := parseAccount(spender)
	if err != nil {
		return s.fail(OpApprove, err)
	}
	if expiresAt != nil && *expiresAt <= uint64(s.now().UnixNano()) {
		return s.fail(OpApprove, ErrExpiryNotFuture)
	}
	if _, err := s.requireOwner(tokenID); err != nil {
		return s.fail(OpApprove, err)
	}

	s.setState(OpApprove, domain.InFlight())
	results, callErr := s.client.ApproveTokens(ctx, []ledger.ApproveTokenArg{{
		TokenID: tokenID,
		ApprovalInfo: ledger.ApprovalInfo{
			Spender:   spenderAcct,
			ExpiresAt: expiresAt,
		},
	}})
	if err := firstResult(results, callErr); err != nil {
		return s.fail(OpApprove, err)
	}

	s.refreshAfterMutation(ctx)
	s.succeed(OpApprove)
	s.logger.Printf("Approved %s on token %d", spenderAcct, tokenID)
	return nil
}

// Revoke removes the spender's approval on the token, or every
// approval when spender is nil.
func (s *Service) Revoke(ctx context.Context, tokenID uint64, spender *string) error {
	var spenderAcct *domain.Account
	if spender != nil && *spender != "" {
		acct, err := parseAccount(*spender)
		if err != nil {
			return s.fail(OpRevoke, err)
		}
		spenderAcct = &acct
	}
	if _, err := s.requireOwner(tokenID); err != nil {
		return s.fail(OpRevoke, err)
	}

	s.setState(OpRevoke, domain.InFlight())
	results, callErr := s.client.RevokeTokenApprovals(ctx, []ledger.RevokeArg{{
		TokenID: tokenID,
		Spender: spenderAcct,
	}})
	if err := firstResult(results, callErr); err != nil {
		return s.fail(OpRevoke, err)
	}

	s.refreshAfterMutation(ctx)
	s.succeed(OpRevoke)
	return nil
}

// Mint creates a new token carrying icrc97 metadata built from the
// given fields. An empty recipient mints to the collection's custodial
// account. The token identifier is the ledger's current total supply;
// mints on this client are serialized so it never duplicates its own
// identifiers.
func (s *Service) Mint(ctx context.Context, recipient, name, description, imageURL string) (uint64, error) {
	if err := s.requireAdmin(); err != nil {
		return 0, s.fail(OpMint, err)
	}
	if name == "" || description == "" || imageURL == "" {
		return 0, s.fail(OpMint, ErrMissingField)
	}

	var owner *domain.Account
	if recipient != "" {
		acct, err := parseAccount(recipient)
		if err != nil {
			return 0, s.fail(OpMint, err)
		}
		owner = &acct
	}

	s.mintMu.Lock()
	defer s.mintMu.Unlock()

	s.setState(OpMint, domain.InFlight())
	supply, err := s.client.TotalSupply(ctx)
	if err != nil {
		return 0, s.fail(OpMint, fmt.Errorf("fetch total supply: %w", err))
	}
	tokenID := supply

	results, callErr := s.client.Mint(ctx, []ledger.MintArg{{
		TokenID:  tokenID,
		Owner:    owner,
		Metadata: mintMetadata(name, description, imageURL),
		Override: true,
	}})
	if err := firstResult(results, callErr); err != nil {
		return 0, s.fail(OpMint, err)
	}

	s.refreshAfterMutation(ctx)
	s.succeed(OpMint)
	s.logger.Printf("Minted token %d (%q)", tokenID, name)
	return tokenID, nil
}

// mintMetadata builds the icrc97 metadata map for a new token.
func mintMetadata(name, description, imageURL string) candid.Value {
	return candid.MapValue(candid.MapEntry{
		Key: "icrc97:metadata",
		Value: candid.MapValue(
			candid.MapEntry{Key: "name", Value: candid.TextValue(name)},
			candid.MapEntry{Key: "description", Value: candid.TextValue(description)},
			candid.MapEntry{Key: "assets", Value: candid.ArrayValue(
				candid.MapValue(
					candid.MapEntry{Key: "url", Value: candid.TextValue(imageURL)},
					candid.MapEntry{Key: "mime", Value: candid.TextValue("image/jpeg")},
					candid.MapEntry{Key: "purpose", Value: candid.TextValue("icrc97:image")},
				),
			)},
		),
	})
}

// Burn destroys a token. The ledger reports per-token failures; any
// failure surfaces as a BurnError.
func (s *Service) Burn(ctx context.Context, tokenID uint64) error {
	if err := s.requireAdmin(); err != nil {
		return s.fail(OpBurn, err)
	}

	s.setState(OpBurn, domain.InFlight())
	result, err := s.client.Burn(ctx, ledger.BurnArg{TokenIDs: []uint64{tokenID}})
	if err != nil {
		return s.fail(OpBurn, err)
	}
	if len(result.FailedTokens) > 0 {
		return s.fail(OpBurn, &BurnError{Failures: result.FailedTokens})
	}

	s.refreshAfterMutation(ctx)
	s.succeed(OpBurn)
	s.logger.Printf("Burned token %d", tokenID)
	return nil
}

// ListApprovals fetches the token's active approvals. Only the token's
// owner may list them.
func (s *Service) ListApprovals(ctx context.Context, tokenID uint64) ([]domain.ApprovalRecord, error) {
	if _, err := s.requireOwner(tokenID); err != nil {
		return nil, err
	}

	approvals, err := s.client.TokenApprovals(ctx, tokenID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch approvals: %w", err)
	}

	records := make([]domain.ApprovalRecord, 0, len(approvals))
	for _, appr := range approvals {
		records = append(records, domain.ApprovalRecord{
			TokenID:   appr.TokenID,
			Spender:   appr.ApprovalInfo.Spender,
			ExpiresAt: appr.ApprovalInfo.ExpiresAt,
		})
	}
	return records, nil
}
