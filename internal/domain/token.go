package domain

import "icrc-nft-gallery/internal/candid"

// TokenRecord is one token of the collection as last seen on the
// ledger. Records are replaced wholesale on every fetch; there are no
// partial updates.
type TokenRecord struct {
	ID       uint64         `json:"id"`
	Metadata *candid.Object `json:"metadata"` // nil when the ledger returned none
	Owner    Account        `json:"owner"`
}

// ApprovalRecord is one active transfer approval on a token.
type ApprovalRecord struct {
	TokenID   uint64  `json:"token_id"`
	Spender   Account `json:"spender"`
	ExpiresAt *uint64 `json:"expires_at,omitempty"` // nanoseconds since epoch
}

// Expired reports whether the approval has lapsed at the given time
// (nanoseconds). Approvals without an expiry never lapse.
func (a ApprovalRecord) Expired(nowNanos uint64) bool {
	return a.ExpiresAt != nil && *a.ExpiresAt <= nowNanos
}

// CollectionMetadata describes the collection itself. Fetched once per
// identity change and treated as read-mostly.
type CollectionMetadata struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Description string         `json:"description"`
	Logo        string         `json:"logo"`
	Attributes  *candid.Object `json:"attributes"`
}
