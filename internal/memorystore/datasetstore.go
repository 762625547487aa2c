package memorystore

import (
	"context"
	"sync"

	"candlefuse/internal/market"
)

// MemoryDatasetStore keeps the latest fused dataset of every coin.
type MemoryDatasetStore struct {
	globalMu sync.RWMutex
	data     map[string]*coinDatasetStore
}

type coinDatasetStore struct {
	mu      sync.Mutex
	dataset market.FusedDataset
}

func NewDatasetStore() *MemoryDatasetStore {
	return &MemoryDatasetStore{
		data: make(map[string]*coinDatasetStore),
	}
}

func (s *MemoryDatasetStore) Name() string { return "memory" }

// WriteDataset replaces the stored dataset of ds.Asset.Coin.
func (s *MemoryDatasetStore) WriteDataset(_ context.Context, ds market.FusedDataset) error {
	s.Put(ds)
	return nil
}

func (s *MemoryDatasetStore) Put(ds market.FusedDataset) {
	coin := ds.Asset.Coin

	// Fast path: lock per-coin store only
	s.globalMu.RLock()
	store, ok := s.data[coin]
	s.globalMu.RUnlock()

	if !ok {
		// Need to initialize new coin store (exclusive lock)
		s.globalMu.Lock()
		if store, ok = s.data[coin]; !ok {
			store = &coinDatasetStore{}
			s.data[coin] = store
		}
		s.globalMu.Unlock()
	}

	rows := make([]market.FusedRow, len(ds.Rows))
	copy(rows, ds.Rows)
	ds.Rows = rows

	store.mu.Lock()
	store.dataset = ds
	store.mu.Unlock()
}

func (s *MemoryDatasetStore) Get(coin string) (market.FusedDataset, bool) {
	s.globalMu.RLock()
	store, ok := s.data[coin]
	s.globalMu.RUnlock()
	if !ok {
		return market.FusedDataset{}, false
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	return store.dataset, true
}

// Summaries returns one summary per stored coin.
func (s *MemoryDatasetStore) Summaries() map[string]Summary {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	result := make(map[string]Summary, len(s.data))
	for coin, store := range s.data {
		store.mu.Lock()
		result[coin] = Summarize(store.dataset)
		store.mu.Unlock()
	}
	return result
}

