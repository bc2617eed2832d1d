package domain

import (
	"testing"

	"icrc-nft-gallery/internal/principal"
)

var (
	ownerP = principal.SelfAuthenticating([]byte("owner-p"))
	ownerQ = principal.SelfAuthenticating([]byte("owner-q"))
)

func TestSameAccountDefaultSubaccounts(t *testing.T) {
	zero := make([]byte, SubaccountLen)

	a := Account{Owner: ownerP}
	b := Account{Owner: ownerP, Subaccount: []byte{}}
	c := Account{Owner: ownerP, Subaccount: zero}

	// nil, empty and all-zero subaccounts are the same default account.
	if !SameAccount(a, b) || !SameAccount(a, c) || !SameAccount(b, c) {
		t.Error("default subaccount representations are not equivalent")
	}
}

func TestSameAccountDistinctOwners(t *testing.T) {
	if SameAccount(Account{Owner: ownerP}, Account{Owner: ownerQ}) {
		t.Error("accounts with different owners compare equal")
	}
}

func TestSameAccountNonDefaultSubaccounts(t *testing.T) {
	sub1 := make([]byte, SubaccountLen)
	sub1[31] = 1
	sub2 := make([]byte, SubaccountLen)
	sub2[31] = 2

	a := Account{Owner: ownerP, Subaccount: sub1}
	b := Account{Owner: ownerP, Subaccount: sub2}
	if SameAccount(a, b) {
		t.Error("accounts with different subaccounts compare equal")
	}

	// A non-default subaccount never equals the default account.
	if SameAccount(a, Account{Owner: ownerP}) {
		t.Error("non-default subaccount equals default account")
	}

	same := Account{Owner: ownerP, Subaccount: append([]byte(nil), sub1...)}
	if !SameAccount(a, same) {
		t.Error("identical subaccounts compare unequal")
	}
}

func TestAccountString(t *testing.T) {
	a := DefaultAccount(ownerP)
	if a.String() != ownerP.String() {
		t.Errorf("default account String() = %q, want %q", a.String(), ownerP.String())
	}

	sub := make([]byte, SubaccountLen)
	sub[31] = 1
	b := Account{Owner: ownerP, Subaccount: sub}
	if b.String() == ownerP.String() {
		t.Error("non-default subaccount not reflected in String()")
	}
}

func TestOperationStates(t *testing.T) {
	if Idle().Phase != PhaseIdle {
		t.Errorf("Idle().Phase = %q", Idle().Phase)
	}
	st := Failed("boom")
	if st.Phase != PhaseFailed || st.Reason != "boom" {
		t.Errorf("Failed() = %+v", st)
	}
	if Succeeded().Phase != PhaseSucceeded {
		t.Errorf("Succeeded().Phase = %q", Succeeded().Phase)
	}
}
