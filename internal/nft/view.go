package nft

import (
	"context"
	"fmt"

	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/metadata"
)

// ViewPhase is the lifecycle phase of a token detail view.
type ViewPhase string

const (
	ViewLoading  ViewPhase = "LOADING"
	ViewLoaded   ViewPhase = "LOADED"
	ViewMutating ViewPhase = "MUTATING"
	// ViewErrored is non-terminal: any new mutation attempt moves the
	// view back to ViewMutating.
	ViewErrored ViewPhase = "ERRORED"
)

// TokenView drives one token's detail page: the record, the viewer's
// ownership flag, and - for owners - the active approval list. Every
// mutation re-fetches rather than patching in place.
type TokenView struct {
	svc     *Service
	tokenID uint64

	phase     ViewPhase
	lastErr   string
	record    domain.TokenRecord
	isOwner   bool
	approvals []domain.ApprovalRecord
}

// NewTokenView creates a view for one token, in the Loading phase.
func (s *Service) NewTokenView(tokenID uint64) *TokenView {
	return &TokenView{svc: s, tokenID: tokenID, phase: ViewLoading}
}

// Load fetches the token's record, resolves the viewer's ownership and
// loads the approval list when the viewer owns the token.
func (v *TokenView) Load(ctx context.Context) error {
	rec, ok := v.svc.store.Get(v.tokenID)
	if !ok {
		fetched, err := v.fetchDirect(ctx)
		if err != nil {
			v.phase = ViewErrored
			v.lastErr = err.Error()
			return err
		}
		rec = fetched
	}

	v.record = rec
	v.isOwner = v.svc.IsOwner(v.tokenID)

	if v.isOwner {
		approvals, err := v.svc.ListApprovals(ctx, v.tokenID)
		if err != nil {
			// The detail page still renders without the approval list.
			v.svc.logger.Printf("Fetch approvals for token %d failed: %v", v.tokenID, err)
		} else {
			v.approvals = approvals
		}
	}

	v.phase = ViewLoaded
	v.lastErr = ""
	return nil
}

// fetchDirect queries the ledger for a token missing from the store.
func (v *TokenView) fetchDirect(ctx context.Context) (domain.TokenRecord, error) {
	ids := []uint64{v.tokenID}

	entries, err := v.svc.client.TokenMetadata(ctx, ids)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("fetch metadata: %w", err)
	}
	owners, err := v.svc.client.OwnerOf(ctx, ids)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("fetch owner: %w", err)
	}
	if len(entries) != 1 || len(owners) != 1 || (entries[0] == nil && owners[0] == nil) {
		return domain.TokenRecord{}, ErrTokenNotFound
	}

	rec := domain.TokenRecord{ID: v.tokenID}
	if entries[0] != nil {
		rec.Metadata = metadata.Normalize(entries[0])
	}
	if owners[0] != nil {
		rec.Owner = *owners[0]
	}
	return rec, nil
}

// mutate runs one mutation through the view's state machine and
// reconciles the view afterwards.
func (v *TokenView) mutate(ctx context.Context, op func() error) error {
	v.phase = ViewMutating
	if err := op(); err != nil {
		v.phase = ViewErrored
		v.lastErr = err.Error()
		return err
	}
	return v.Load(ctx)
}

// Transfer moves the token to the recipient and reloads the view.
func (v *TokenView) Transfer(ctx context.Context, recipient string) error {
	return v.mutate(ctx, func() error {
		return v.svc.Transfer(ctx, v.tokenID, recipient)
	})
}

// Approve grants the spender an approval and reloads the view,
// including the approval list.
func (v *TokenView) Approve(ctx context.Context, spender string, expiresAt *uint64) error {
	return v.mutate(ctx, func() error {
		return v.svc.Approve(ctx, v.tokenID, spender, expiresAt)
	})
}

// Revoke removes the spender's approval (all approvals when spender is
// nil) and reloads the view.
func (v *TokenView) Revoke(ctx context.Context, spender *string) error {
	return v.mutate(ctx, func() error {
		return v.svc.Revoke(ctx, v.tokenID, spender)
	})
}

// Burn destroys the token. On success the record is gone from the
// ledger; callers navigate back to the collection.
func (v *TokenView) Burn(ctx context.Context) error {
	v.phase = ViewMutating
	if err := v.svc.Burn(ctx, v.tokenID); err != nil {
		v.phase = ViewErrored
		v.lastErr = err.Error()
		return err
	}
	v.phase = ViewLoaded
	v.approvals = nil
	return nil
}

// Phase returns the view's lifecycle phase.
func (v *TokenView) Phase() ViewPhase { return v.phase }

// Err returns the last error message, empty unless Errored.
func (v *TokenView) Err() string { return v.lastErr }

// IsOwner reports whether the viewer owns the token.
func (v *TokenView) IsOwner() bool { return v.isOwner }

// Record returns the token record the view holds.
func (v *TokenView) Record() domain.TokenRecord { return v.record }

// Approvals returns the active approvals, owner-only.
func (v *TokenView) Approvals() []domain.ApprovalRecord {
	out := make([]domain.ApprovalRecord, len(v.approvals))
	copy(out, v.approvals)
	return out
}
