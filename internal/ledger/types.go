// Package ledger defines the remote ledger collaborator: the call
// surface of the NFT canister (core ownership, approvals, and the
// mint/burn extension) plus its wire types. The ledger is the sole
// source of truth; this package never reimplements its rules.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/principal"
)

// ErrNotFound is returned when a requested token has no metadata or
// owner on the ledger.
var ErrNotFound = errors.New("not found")

// CallError is a structured err variant returned by the ledger. It is
// surfaced to the user verbatim and never retried.
type CallError struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Error variant kinds reported by the ledger.
const (
	KindNonExistingToken       = "NonExistingTokenId"
	KindUnauthorized           = "Unauthorized"
	KindApprovalDoesNotExist   = "ApprovalDoesNotExist"
	KindInvalidRecipient       = "InvalidRecipient"
	KindDuplicate              = "Duplicate"
	KindTooOld                 = "TooOld"
	KindCreatedInFuture        = "CreatedInFuture"
	KindTemporarilyUnavailable = "TemporarilyUnavailable"
	KindGenericError           = "GenericError"
)

// Result is the optional ok/err variant of one element of a mutation's
// result batch. A nil *Result means the ledger skipped the element.
type Result struct {
	Ok  *uint64    `json:"ok,omitempty"`
	Err *CallError `json:"err,omitempty"`
}

// TransferArg is one element of a transfer request batch.
type TransferArg struct {
	TokenID        uint64         `json:"token_id"`
	FromSubaccount []byte         `json:"from_subaccount,omitempty"`
	To             domain.Account `json:"to"`
	Memo           []byte         `json:"memo,omitempty"`
	CreatedAtTime  *uint64        `json:"created_at_time,omitempty"`
}

// ApprovalInfo carries the spender and bounds of an approval.
type ApprovalInfo struct {
	Spender        domain.Account `json:"spender"`
	FromSubaccount []byte         `json:"from_subaccount,omitempty"`
	ExpiresAt      *uint64        `json:"expires_at,omitempty"`
	Memo           []byte         `json:"memo,omitempty"`
	CreatedAtTime  *uint64        `json:"created_at_time,omitempty"`
}

// ApproveTokenArg is one element of an approve request batch.
type ApproveTokenArg struct {
	TokenID      uint64       `json:"token_id"`
	ApprovalInfo ApprovalInfo `json:"approval_info"`
}

// RevokeArg is one element of a revoke request batch. A nil Spender
// revokes every approval on the token.
type RevokeArg struct {
	TokenID        uint64          `json:"token_id"`
	FromSubaccount []byte          `json:"from_subaccount,omitempty"`
	Spender        *domain.Account `json:"spender,omitempty"`
	Memo           []byte          `json:"memo,omitempty"`
	CreatedAtTime  *uint64         `json:"created_at_time,omitempty"`
}

// TokenApproval is one active approval as reported by the ledger.
type TokenApproval struct {
	TokenID      uint64       `json:"token_id"`
	ApprovalInfo ApprovalInfo `json:"approval_info"`
}

// MintArg is one element of a mint request batch. A nil Owner mints to
// the collection's custodial account.
type MintArg struct {
	TokenID       uint64          `json:"token_id"`
	Owner         *domain.Account `json:"owner,omitempty"`
	Metadata      candid.Value    `json:"metadata"`
	Memo          []byte          `json:"memo,omitempty"`
	Override      bool            `json:"override"`
	CreatedAtTime *uint64         `json:"created_at_time,omitempty"`
}

// BurnArg requests burning of a set of tokens.
type BurnArg struct {
	TokenIDs       []uint64 `json:"token_ids"`
	FromSubaccount []byte   `json:"from_subaccount,omitempty"`
	Memo           []byte   `json:"memo,omitempty"`
	CreatedAtTime  *uint64  `json:"created_at_time,omitempty"`
}

// BurnFailure reports one token the ledger could not burn.
type BurnFailure struct {
	TokenID uint64    `json:"token_id"`
	Err     CallError `json:"err"`
}

// BurnResult is the ledger's per-token burn outcome.
type BurnResult struct {
	BurnedTokens []uint64      `json:"burned_tokens"`
	FailedTokens []BurnFailure `json:"failed_tokens"`
}

// Client is the call surface consumed by the token store and the
// mutation operations. Batch query results are positionally aligned
// with the request: element i answers token i, nil meaning absent.
type Client interface {
	// Enumeration.
	Tokens(ctx context.Context, prev *uint64, limit *uint16) ([]uint64, error)
	TokensOf(ctx context.Context, account domain.Account, prev *uint64, limit *uint16) ([]uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)

	// Per-token queries.
	TokenMetadata(ctx context.Context, tokenIDs []uint64) ([][]candid.MapEntry, error)
	OwnerOf(ctx context.Context, tokenIDs []uint64) ([]*domain.Account, error)
	TokenApprovals(ctx context.Context, tokenID uint64, prev *TokenApproval, limit *uint16) ([]TokenApproval, error)

	// Collection queries.
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	Description(ctx context.Context) (string, error)
	Logo(ctx context.Context) (string, error)
	CollectionMetadata(ctx context.Context) ([]candid.MapEntry, error)

	// Mutations. Each submits a request batch and returns the
	// positionally aligned result batch.
	Transfer(ctx context.Context, args []TransferArg) ([]*Result, error)
	ApproveTokens(ctx context.Context, args []ApproveTokenArg) ([]*Result, error)
	RevokeTokenApprovals(ctx context.Context, args []RevokeArg) ([]*Result, error)
	Mint(ctx context.Context, args []MintArg) ([]*Result, error)
	Burn(ctx context.Context, arg BurnArg) (*BurnResult, error)
}

// Signer provides the identity an agent uses to sign call envelopes.
// An anonymous signer returns the anonymous principal and no key.
type Signer interface {
	Principal() principal.Principal
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}
