// Package store holds the session's view of the collection: the full
// token set, the signed-in user's subset, and the collection metadata.
// Every refresh replaces a collection wholesale; the ledger is the
// sole source of truth and nothing here survives the session.
package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/ledger"
	"icrc-nft-gallery/internal/metadata"
	"icrc-nft-gallery/internal/observability"
)

// TokenStore caches TokenRecords for the active identity. Writes are
// wholesale swaps performed by fetch completion handlers; concurrent
// refreshes are fenced by a generation counter so a stale in-flight
// result never overwrites a newer one.
type TokenStore struct {
	client ledger.Client
	logger *log.Logger

	mu          sync.RWMutex
	all         []domain.TokenRecord
	mine        []domain.TokenRecord
	collection  *domain.CollectionMetadata
	allApplied  uint64
	mineApplied uint64

	gen     uint64 // guarded by mu
	hooksMu sync.Mutex
	hooks   []func()
}

// Option configures a TokenStore.
type Option func(*TokenStore)

// WithLogger sets the store's logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *TokenStore) { s.logger = logger }
}

// New creates an empty store backed by the given ledger client.
func New(client ledger.Client, opts ...Option) *TokenStore {
	s := &TokenStore{
		client: client,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnRefresh registers a hook invoked after every applied refresh.
func (s *TokenStore) OnRefresh(hook func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *TokenStore) fireRefresh() {
	s.hooksMu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.hooksMu.Unlock()
	for _, hook := range hooks {
		hook()
	}
}

func (s *TokenStore) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// FetchAll reloads the full token set: all identifiers, then their
// metadata and owners fetched concurrently and joined before the swap.
// Any batch failure fails the whole operation with no partial update.
func (s *TokenStore) FetchAll(ctx context.Context) ([]domain.TokenRecord, error) {
	gen := s.nextGen()

	records, err := s.loadAll(ctx)
	if err != nil {
		observability.RecordStoreRefresh("all", "error", 0)
		return nil, err
	}

	s.mu.Lock()
	if gen < s.allApplied {
		// A newer refresh already completed; discard this result.
		s.mu.Unlock()
		s.logger.Printf("Discarding stale fetch-all result (generation %d)", gen)
		return records, nil
	}
	s.all = records
	s.allApplied = gen
	s.mu.Unlock()

	observability.RecordStoreRefresh("all", "ok", len(records))
	s.fireRefresh()
	return copyRecords(records), nil
}

func (s *TokenStore) loadAll(ctx context.Context) ([]domain.TokenRecord, error) {
	ids, err := s.client.Tokens(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	if len(ids) == 0 {
		return []domain.TokenRecord{}, nil
	}

	// Metadata and owners have no ordering dependency; issue both and
	// join before touching the store.
	var (
		wg       sync.WaitGroup
		entries  [][]candid.MapEntry
		owners   []*domain.Account
		metaErr  error
		ownerErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		entries, metaErr = s.client.TokenMetadata(ctx, ids)
	}()
	go func() {
		defer wg.Done()
		owners, ownerErr = s.client.OwnerOf(ctx, ids)
	}()
	wg.Wait()

	if metaErr != nil {
		return nil, fmt.Errorf("fetch metadata: %w", metaErr)
	}
	if ownerErr != nil {
		return nil, fmt.Errorf("fetch owners: %w", ownerErr)
	}
	if len(entries) != len(ids) || len(owners) != len(ids) {
		return nil, fmt.Errorf("ledger returned misaligned batches: %d ids, %d metadata, %d owners",
			len(ids), len(entries), len(owners))
	}

	records := make([]domain.TokenRecord, len(ids))
	for i, id := range ids {
		rec := domain.TokenRecord{ID: id}
		if entries[i] != nil {
			rec.Metadata = metadata.Normalize(entries[i])
		}
		if owners[i] != nil {
			rec.Owner = *owners[i]
		}
		records[i] = rec
	}
	return records, nil
}

// FetchMine reloads the token subset owned by account. The owner of
// every result is known, so only metadata is fetched. An empty result
// is valid and still replaces the collection.
func (s *TokenStore) FetchMine(ctx context.Context, account domain.Account) ([]domain.TokenRecord, error) {
	gen := s.nextGen()

	records, err := s.loadMine(ctx, account)
	if err != nil {
		observability.RecordStoreRefresh("mine", "error", 0)
		return nil, err
	}

	s.mu.Lock()
	if gen < s.mineApplied {
		s.mu.Unlock()
		s.logger.Printf("Discarding stale fetch-mine result (generation %d)", gen)
		return records, nil
	}
	s.mine = records
	s.mineApplied = gen
	s.mu.Unlock()

	observability.RecordStoreRefresh("mine", "ok", len(records))
	s.fireRefresh()
	return copyRecords(records), nil
}

func (s *TokenStore) loadMine(ctx context.Context, account domain.Account) ([]domain.TokenRecord, error) {
	ids, err := s.client.TokensOf(ctx, account, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list tokens of %s: %w", account, err)
	}
	if len(ids) == 0 {
		return []domain.TokenRecord{}, nil
	}

	entries, err := s.client.TokenMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	if len(entries) != len(ids) {
		return nil, fmt.Errorf("ledger returned misaligned batches: %d ids, %d metadata", len(ids), len(entries))
	}

	records := make([]domain.TokenRecord, len(ids))
	for i, id := range ids {
		rec := domain.TokenRecord{ID: id, Owner: account}
		if entries[i] != nil {
			rec.Metadata = metadata.Normalize(entries[i])
		}
		records[i] = rec
	}
	return records, nil
}

// FetchCollection reloads the collection metadata. Called once per
// identity change.
func (s *TokenStore) FetchCollection(ctx context.Context) (*domain.CollectionMetadata, error) {
	var (
		wg   sync.WaitGroup
		meta domain.CollectionMetadata
		errs [5]error
	)
	wg.Add(5)
	go func() { defer wg.Done(); meta.Name, errs[0] = s.client.Name(ctx) }()
	go func() { defer wg.Done(); meta.Symbol, errs[1] = s.client.Symbol(ctx) }()
	go func() { defer wg.Done(); meta.Description, errs[2] = s.client.Description(ctx) }()
	go func() { defer wg.Done(); meta.Logo, errs[3] = s.client.Logo(ctx) }()

	var entries []candid.MapEntry
	go func() { defer wg.Done(); entries, errs[4] = s.client.CollectionMetadata(ctx) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fetch collection metadata: %w", err)
		}
	}
	meta.Attributes = metadata.Normalize(entries)

	s.mu.Lock()
	s.collection = &meta
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Reset clears every cached collection. Called when the signing
// identity changes, since ledger visibility may differ per identity.
func (s *TokenStore) Reset() {
	s.mu.Lock()
	s.all = nil
	s.mine = nil
	s.collection = nil
	s.mu.Unlock()
	s.fireRefresh()
}

// All returns a snapshot of the full token set.
func (s *TokenStore) All() []domain.TokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecords(s.all)
}

// Mine returns a snapshot of the signed-in user's token set.
func (s *TokenStore) Mine() []domain.TokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecords(s.mine)
}

// Collection returns the cached collection metadata, or nil before the
// first fetch.
func (s *TokenStore) Collection() *domain.CollectionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil
	}
	out := *s.collection
	return &out
}

// Get looks a token up by identifier in either cached collection.
func (s *TokenStore) Get(tokenID uint64) (domain.TokenRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.all {
		if rec.ID == tokenID {
			return rec, true
		}
	}
	for _, rec := range s.mine {
		if rec.ID == tokenID {
			return rec, true
		}
	}
	return domain.TokenRecord{}, false
}

func copyRecords(records []domain.TokenRecord) []domain.TokenRecord {
	if records == nil {
		return nil
	}
	out := make([]domain.TokenRecord, len(records))
	copy(out, records)
	return out
}
