// Package stub provides an in-memory ledger implementing ledger.Client
// for tests and for running the gallery without a live replica.
package stub

import (
	"context"
	"sort"
	"sync"
	"time"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/ledger"
	"icrc-nft-gallery/internal/principal"
)

// Options configures the stub ledger.
type Options struct {
	Admin       principal.Principal
	Custodial   domain.Account // defaults to the admin's default account
	Name        string
	Symbol      string
	Description string
	Logo        string
	Attributes  []candid.MapEntry
}

type token struct {
	owner    domain.Account
	metadata []candid.MapEntry
}

// Ledger is an in-memory ledger. The caller identity normally carried
// by the signed envelope is set explicitly via SetCaller.
type Ledger struct {
	mu        sync.RWMutex
	opts      Options
	caller    principal.Principal
	tokens    map[uint64]*token
	approvals map[uint64][]ledger.TokenApproval
	txCounter uint64
	now       func() time.Time
}

// NewLedger creates an empty stub ledger.
func NewLedger(opts Options) *Ledger {
	if opts.Custodial.IsZero() {
		opts.Custodial = domain.DefaultAccount(opts.Admin)
	}
	return &Ledger{
		opts:      opts,
		caller:    principal.Anonymous(),
		tokens:    make(map[uint64]*token),
		approvals: make(map[uint64][]ledger.TokenApproval),
		now:       time.Now,
	}
}

// SetCaller sets the principal attributed to subsequent calls.
func (l *Ledger) SetCaller(p principal.Principal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.IsZero() {
		p = principal.Anonymous()
	}
	l.caller = p
}

// SetNow overrides the clock, for approval expiry tests.
func (l *Ledger) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SeedToken installs a token directly, bypassing mint authorization.
func (l *Ledger) SeedToken(id uint64, owner domain.Account, metadata []candid.MapEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[id] = &token{owner: owner, metadata: metadata}
}

func (l *Ledger) nowNanos() uint64 {
	return uint64(l.now().UnixNano())
}

func (l *Ledger) sortedIDs() []uint64 {
	ids := make([]uint64, 0, len(l.tokens))
	for id := range l.tokens {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func paginate(ids []uint64, prev *uint64, limit *uint16) []uint64 {
	if prev != nil {
		cut := sort.Search(len(ids), func(i int) bool { return ids[i] > *prev })
		ids = ids[cut:]
	}
	if limit != nil && int(*limit) < len(ids) {
		ids = ids[:*limit]
	}
	return ids
}

func (l *Ledger) Tokens(_ context.Context, prev *uint64, limit *uint16) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return paginate(l.sortedIDs(), prev, limit), nil
}

func (l *Ledger) TokensOf(_ context.Context, account domain.Account, prev *uint64, limit *uint16) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []uint64
	for _, id := range l.sortedIDs() {
		if domain.SameAccount(l.tokens[id].owner, account) {
			ids = append(ids, id)
		}
	}
	return paginate(ids, prev, limit), nil
}

func (l *Ledger) TotalSupply(_ context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.tokens)), nil
}

func (l *Ledger) TokenMetadata(_ context.Context, tokenIDs []uint64) ([][]candid.MapEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([][]candid.MapEntry, len(tokenIDs))
	for i, id := range tokenIDs {
		if tok, ok := l.tokens[id]; ok && tok.metadata != nil {
			entries := make([]candid.MapEntry, len(tok.metadata))
			copy(entries, tok.metadata)
			out[i] = entries
		}
	}
	return out, nil
}

func (l *Ledger) OwnerOf(_ context.Context, tokenIDs []uint64) ([]*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.Account, len(tokenIDs))
	for i, id := range tokenIDs {
		if tok, ok := l.tokens[id]; ok {
			owner := tok.owner
			out[i] = &owner
		}
	}
	return out, nil
}

func (l *Ledger) TokenApprovals(_ context.Context, tokenID uint64, _ *ledger.TokenApproval, limit *uint16) ([]ledger.TokenApproval, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.nowNanos()
	var out []ledger.TokenApproval
	for _, appr := range l.approvals[tokenID] {
		if appr.ApprovalInfo.ExpiresAt != nil && *appr.ApprovalInfo.ExpiresAt <= now {
			continue
		}
		out = append(out, appr)
		if limit != nil && len(out) == int(*limit) {
			break
		}
	}
	return out, nil
}

func (l *Ledger) Name(_ context.Context) (string, error) { return l.opts.Name, nil }

func (l *Ledger) Symbol(_ context.Context) (string, error) { return l.opts.Symbol, nil }

func (l *Ledger) Description(_ context.Context) (string, error) { return l.opts.Description, nil }

func (l *Ledger) Logo(_ context.Context) (string, error) { return l.opts.Logo, nil }

func (l *Ledger) CollectionMetadata(_ context.Context) ([]candid.MapEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]candid.MapEntry, len(l.opts.Attributes))
	copy(entries, l.opts.Attributes)
	return entries, nil
}

func errResult(kind, message string) *ledger.Result {
	return &ledger.Result{Err: &ledger.CallError{Kind: kind, Message: message}}
}

func (l *Ledger) okResult() *ledger.Result {
	l.txCounter++
	tx := l.txCounter
	return &ledger.Result{Ok: &tx}
}

// callerAccount is the account a call acts from.
func (l *Ledger) callerAccount(fromSubaccount []byte) domain.Account {
	return domain.Account{Owner: l.caller, Subaccount: fromSubaccount}
}

// spenderFor reports whether the caller holds an unexpired approval on
// the token.
func (l *Ledger) spenderFor(tokenID uint64, caller domain.Account) bool {
	now := l.nowNanos()
	for _, appr := range l.approvals[tokenID] {
		if appr.ApprovalInfo.ExpiresAt != nil && *appr.ApprovalInfo.ExpiresAt <= now {
			continue
		}
		if domain.SameAccount(appr.ApprovalInfo.Spender, caller) {
			return true
		}
	}
	return false
}

func (l *Ledger) Transfer(_ context.Context, args []ledger.TransferArg) ([]*ledger.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]*ledger.Result, len(args))
	for i, arg := range args {
		tok, ok := l.tokens[arg.TokenID]
		if !ok {
			results[i] = errResult(ledger.KindNonExistingToken, "")
			continue
		}
		caller := l.callerAccount(arg.FromSubaccount)
		if !domain.SameAccount(tok.owner, caller) && !l.spenderFor(arg.TokenID, caller) {
			results[i] = errResult(ledger.KindUnauthorized, "caller neither owns the token nor holds an approval")
			continue
		}
		tok.owner = arg.To
		delete(l.approvals, arg.TokenID)
		results[i] = l.okResult()
	}
	return results, nil
}

func (l *Ledger) ApproveTokens(_ context.Context, args []ledger.ApproveTokenArg) ([]*ledger.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]*ledger.Result, len(args))
	for i, arg := range args {
		tok, ok := l.tokens[arg.TokenID]
		if !ok {
			results[i] = errResult(ledger.KindNonExistingToken, "")
			continue
		}
		if !domain.SameAccount(tok.owner, l.callerAccount(arg.ApprovalInfo.FromSubaccount)) {
			results[i] = errResult(ledger.KindUnauthorized, "caller does not own the token")
			continue
		}

		// One approval per spender; a repeat replaces it.
		kept := l.approvals[arg.TokenID][:0]
		for _, appr := range l.approvals[arg.TokenID] {
			if !domain.SameAccount(appr.ApprovalInfo.Spender, arg.ApprovalInfo.Spender) {
				kept = append(kept, appr)
			}
		}
		l.approvals[arg.TokenID] = append(kept, ledger.TokenApproval{
			TokenID:      arg.TokenID,
			ApprovalInfo: arg.ApprovalInfo,
		})
		results[i] = l.okResult()
	}
	return results, nil
}

func (l *Ledger) RevokeTokenApprovals(_ context.Context, args []ledger.RevokeArg) ([]*ledger.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]*ledger.Result, len(args))
	for i, arg := range args {
		tok, ok := l.tokens[arg.TokenID]
		if !ok {
			results[i] = errResult(ledger.KindNonExistingToken, "")
			continue
		}
		if !domain.SameAccount(tok.owner, l.callerAccount(arg.FromSubaccount)) {
			results[i] = errResult(ledger.KindUnauthorized, "caller does not own the token")
			continue
		}

		if arg.Spender == nil {
			if len(l.approvals[arg.TokenID]) == 0 {
				results[i] = errResult(ledger.KindApprovalDoesNotExist, "")
				continue
			}
			delete(l.approvals, arg.TokenID)
			results[i] = l.okResult()
			continue
		}

		kept := l.approvals[arg.TokenID][:0]
		removed := false
		for _, appr := range l.approvals[arg.TokenID] {
			if domain.SameAccount(appr.ApprovalInfo.Spender, *arg.Spender) {
				removed = true
				continue
			}
			kept = append(kept, appr)
		}
		if !removed {
			results[i] = errResult(ledger.KindApprovalDoesNotExist, "")
			continue
		}
		l.approvals[arg.TokenID] = kept
		results[i] = l.okResult()
	}
	return results, nil
}

func (l *Ledger) Mint(_ context.Context, args []ledger.MintArg) ([]*ledger.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]*ledger.Result, len(args))
	for i, arg := range args {
		if !l.caller.Equal(l.opts.Admin) {
			results[i] = errResult(ledger.KindUnauthorized, "minting is restricted to the administrator")
			continue
		}
		if _, exists := l.tokens[arg.TokenID]; exists && !arg.Override {
			results[i] = errResult(ledger.KindDuplicate, "token identifier already minted")
			continue
		}

		owner := l.opts.Custodial
		if arg.Owner != nil {
			owner = *arg.Owner
		}
		l.tokens[arg.TokenID] = &token{owner: owner, metadata: arg.Metadata.Map}
		results[i] = l.okResult()
	}
	return results, nil
}

func (l *Ledger) Burn(_ context.Context, arg ledger.BurnArg) (*ledger.BurnResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := &ledger.BurnResult{}
	for _, id := range arg.TokenIDs {
		tok, ok := l.tokens[id]
		if !ok {
			result.FailedTokens = append(result.FailedTokens, ledger.BurnFailure{
				TokenID: id,
				Err:     ledger.CallError{Kind: ledger.KindNonExistingToken},
			})
			continue
		}
		isAdmin := l.caller.Equal(l.opts.Admin)
		if !isAdmin && !domain.SameAccount(tok.owner, l.callerAccount(arg.FromSubaccount)) {
			result.FailedTokens = append(result.FailedTokens, ledger.BurnFailure{
				TokenID: id,
				Err:     ledger.CallError{Kind: ledger.KindUnauthorized, Message: "caller may not burn this token"},
			})
			continue
		}
		delete(l.tokens, id)
		delete(l.approvals, id)
		result.BurnedTokens = append(result.BurnedTokens, id)
	}
	return result, nil
}
