package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/ledger"
	"icrc-nft-gallery/internal/ledger/stub"
	"icrc-nft-gallery/internal/principal"
)

var (
	adminP = principal.SelfAuthenticating([]byte("store-admin"))
	userP  = principal.SelfAuthenticating([]byte("store-user-p"))
	userQ  = principal.SelfAuthenticating([]byte("store-user-q"))
)

func namedMetadata(name string) []candid.MapEntry {
	return []candid.MapEntry{{
		Key: "icrc97:metadata",
		Value: candid.MapValue(
			candid.MapEntry{Key: "name", Value: candid.TextValue(name)},
		),
	}}
}

func seededLedger(t *testing.T) *stub.Ledger {
	t.Helper()
	l := stub.NewLedger(stub.Options{
		Admin:       adminP,
		Name:        "Test Collection",
		Symbol:      "TST",
		Description: "collection under test",
	})
	l.SeedToken(0, domain.DefaultAccount(userP), namedMetadata("Rock"))
	l.SeedToken(1, domain.DefaultAccount(userQ), namedMetadata("Paper"))
	return l
}

func TestFetchAll(t *testing.T) {
	s := New(seededLedger(t))

	records, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, uint64(0), records[0].ID)
	assert.True(t, records[0].Owner.Owner.Equal(userP))
	name, _ := records[0].Metadata.Object("icrc97:metadata").String("name")
	assert.Equal(t, "Rock", name)

	assert.Equal(t, uint64(1), records[1].ID)
	assert.True(t, records[1].Owner.Owner.Equal(userQ))

	// A repeated fetch of unchanged ledger state yields the same view.
	again, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, again)
	assert.Equal(t, records, s.All())
}

func TestFetchMine(t *testing.T) {
	s := New(seededLedger(t))

	records, err := s.FetchMine(context.Background(), domain.DefaultAccount(userP))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(0), records[0].ID)
	assert.True(t, records[0].Owner.Owner.Equal(userP))
}

func TestFetchMineEmptyIsValid(t *testing.T) {
	s := New(seededLedger(t))

	// Preload, then fetch for an account owning nothing: the empty
	// result must replace the previous collection.
	_, err := s.FetchMine(context.Background(), domain.DefaultAccount(userP))
	require.NoError(t, err)
	require.Len(t, s.Mine(), 1)

	stranger := principal.SelfAuthenticating([]byte("stranger"))
	records, err := s.FetchMine(context.Background(), domain.DefaultAccount(stranger))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, s.Mine())
}

func TestGet(t *testing.T) {
	s := New(seededLedger(t))
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	rec, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), rec.ID)

	_, ok = s.Get(99)
	assert.False(t, ok)
}

func TestFetchCollection(t *testing.T) {
	s := New(seededLedger(t))

	meta, err := s.FetchCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test Collection", meta.Name)
	assert.Equal(t, "TST", meta.Symbol)

	cached := s.Collection()
	require.NotNil(t, cached)
	assert.Equal(t, meta.Name, cached.Name)
}

func TestReset(t *testing.T) {
	s := New(seededLedger(t))
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	_, err = s.FetchCollection(context.Background())
	require.NoError(t, err)

	s.Reset()
	assert.Empty(t, s.All())
	assert.Empty(t, s.Mine())
	assert.Nil(t, s.Collection())
}

func TestOnRefreshFires(t *testing.T) {
	s := New(seededLedger(t))

	var mu sync.Mutex
	fired := 0
	s.OnRefresh(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	s.Reset()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, fired)
}

// gatedClient stalls its first Tokens call until released, returning a
// stale identifier list, so refresh ordering can be forced in tests.
type gatedClient struct {
	ledger.Client

	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
	stale   []uint64
}

func (g *gatedClient) Tokens(ctx context.Context, prev *uint64, limit *uint16) ([]uint64, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
		return g.stale, nil
	}
	return g.Client.Tokens(ctx, prev, limit)
}

func TestStaleFetchDiscarded(t *testing.T) {
	l := seededLedger(t)
	gated := &gatedClient{
		Client:  l,
		entered: make(chan struct{}),
		release: make(chan struct{}),
		stale:   []uint64{0},
	}
	s := New(gated)

	// First refresh stalls while holding the older generation.
	done := make(chan error, 1)
	go func() {
		_, err := s.FetchAll(context.Background())
		done <- err
	}()
	<-gated.entered

	// A newer refresh completes first and sees both tokens.
	records, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// The stalled refresh finishes with its stale single-token view,
	// which must not overwrite the newer state.
	close(gated.release)
	require.NoError(t, <-done)
	assert.Len(t, s.All(), 2)
}
