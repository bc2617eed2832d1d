package nft

import (
	"context"
	"errors"
	"testing"

	"icrc-nft-gallery/internal/domain"
)

func TestViewLoadFromStore(t *testing.T) {
	f := newFixture(t, false)

	view := f.svc.NewTokenView(0)
	if view.Phase() != ViewLoading {
		t.Fatalf("initial phase = %v, want LOADING", view.Phase())
	}

	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if view.Phase() != ViewLoaded {
		t.Errorf("phase = %v, want LOADED", view.Phase())
	}
	if !view.IsOwner() {
		t.Error("viewer owns token 0 but IsOwner is false")
	}
	if view.Record().ID != 0 {
		t.Errorf("record id = %d, want 0", view.Record().ID)
	}
}

func TestViewLoadDirectWhenNotCached(t *testing.T) {
	f := newFixture(t, false)

	// A token the store has never seen is fetched from the ledger.
	f.ledger.SeedToken(7, domain.DefaultAccount(otherP), tokenMeta("Late"))

	view := f.svc.NewTokenView(7)
	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	name, _ := view.Record().Metadata.Object("icrc97:metadata").String("name")
	if name != "Late" {
		t.Errorf("name = %q, want Late", name)
	}
	if view.IsOwner() {
		t.Error("viewer does not own token 7 but IsOwner is true")
	}
}

func TestViewLoadUnknownToken(t *testing.T) {
	f := newFixture(t, false)

	view := f.svc.NewTokenView(99)
	err := view.Load(context.Background())
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("error = %v, want ErrTokenNotFound", err)
	}
	if view.Phase() != ViewErrored {
		t.Errorf("phase = %v, want ERRORED", view.Phase())
	}
	if view.Err() == "" {
		t.Error("Err() is empty after a failed load")
	}
}

func TestViewErroredIsNotTerminal(t *testing.T) {
	f := newFixture(t, false)

	view := f.svc.NewTokenView(0)
	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	// A failed mutation moves the view to Errored.
	if err := view.Transfer(context.Background(), "garbage"); err == nil {
		t.Fatal("Transfer(garbage) did not fail")
	}
	if view.Phase() != ViewErrored {
		t.Fatalf("phase = %v, want ERRORED", view.Phase())
	}

	// A later valid mutation recovers and reloads.
	if err := view.Transfer(context.Background(), otherP.String()); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}
	if view.Phase() != ViewLoaded {
		t.Errorf("phase = %v, want LOADED", view.Phase())
	}
	if view.Err() != "" {
		t.Errorf("Err() = %q after recovery, want empty", view.Err())
	}
	if !view.Record().Owner.Owner.Equal(otherP) {
		t.Error("record owner not updated after transfer")
	}
}

func TestViewApproveReloadsApprovals(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	view := f.svc.NewTokenView(0)
	if err := view.Load(ctx); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(view.Approvals()) != 0 {
		t.Fatalf("approvals = %+v before any approve", view.Approvals())
	}

	if err := view.Approve(ctx, otherP.String(), futureNanos()); err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	approvals := view.Approvals()
	if len(approvals) != 1 || !approvals[0].Spender.Owner.Equal(otherP) {
		t.Fatalf("approvals = %+v, want one for %s", approvals, otherP)
	}

	spender := otherP.String()
	if err := view.Revoke(ctx, &spender); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if len(view.Approvals()) != 0 {
		t.Errorf("approvals after revoke = %+v, want none", view.Approvals())
	}
}

func TestViewBurn(t *testing.T) {
	f := newFixture(t, true)

	view := f.svc.NewTokenView(0)
	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := view.Burn(context.Background()); err != nil {
		t.Fatalf("Burn error: %v", err)
	}
	if view.Phase() != ViewLoaded {
		t.Errorf("phase = %v, want LOADED", view.Phase())
	}
	if _, ok := f.store.Get(0); ok {
		t.Error("burned token still in store")
	}
}
