// Package domain defines the core records of the gallery: accounts,
// token records, approvals and operation state.
package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"icrc-nft-gallery/internal/principal"
)

// SubaccountLen is the fixed length of an explicit subaccount.
const SubaccountLen = 32

// Account addresses a holder on the ledger: a principal plus an
// optional subaccount discriminator. An absent, empty or all-zero
// subaccount all denote the principal's default account.
type Account struct {
	Owner      principal.Principal `json:"owner"`
	Subaccount []byte              `json:"subaccount,omitempty"`
}

// DefaultAccount returns the default account of a principal.
func DefaultAccount(owner principal.Principal) Account {
	return Account{Owner: owner}
}

// SameAccount reports whether two accounts denote the same holder.
// Owners must carry the same principal, and the subaccounts must both
// be the default or be byte-identical. Two different non-default
// subaccounts are never the same holder.
func SameAccount(a, b Account) bool {
	if !a.Owner.Equal(b.Owner) {
		return false
	}
	if isDefaultSubaccount(a.Subaccount) {
		return isDefaultSubaccount(b.Subaccount)
	}
	return bytes.Equal(a.Subaccount, b.Subaccount)
}

// Equal is SameAccount as a method.
func (a Account) Equal(b Account) bool {
	return SameAccount(a, b)
}

// IsZero reports whether the account has no principal at all.
func (a Account) IsZero() bool {
	return a.Owner.IsZero()
}

// String renders the owner principal, with the subaccount appended in
// hex when it is not the default.
func (a Account) String() string {
	if isDefaultSubaccount(a.Subaccount) {
		return a.Owner.String()
	}
	return fmt.Sprintf("%s.%s", a.Owner, hex.EncodeToString(a.Subaccount))
}

func isDefaultSubaccount(sub []byte) bool {
	for _, b := range sub {
		if b != 0 {
			return false
		}
	}
	return true
}
