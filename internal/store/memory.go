package store

import (
	"errors"
	"sync"

	"github.com/weatherhist/wwo-history/internal/weather"
)

var (
	// ErrNotFound is returned when no table has been retrieved for a city.
	ErrNotFound = errors.New("no weather history for city")
)

// MemoryStore is a concurrency-safe in-memory store holding the most recently
// retrieved historical table per city. It serves the read side of the API
// only; retrieval never reads from it.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city, value: last retrieved table
	tables map[string]*weather.HistoricalTable

	// cities in insertion order, for eviction
	order []string

	// max number of cities kept (0 = unlimited)
	maxTables int
}

// NewMemoryStore creates a new MemoryStore. If maxTables is <= 0, it is
// treated as unlimited.
func NewMemoryStore(maxTables int) *MemoryStore {
	return &MemoryStore{
		tables:    make(map[string]*weather.HistoricalTable),
		maxTables: maxTables,
	}
}

// SaveTable replaces the stored table for the table's city and evicts the
// oldest city when over capacity.
func (s *MemoryStore) SaveTable(table *weather.HistoricalTable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table.City]; ok {
		for i, c := range s.order {
			if c == table.City {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.tables[table.City] = table
	s.order = append(s.order, table.City)

	for s.maxTables > 0 && len(s.order) > s.maxTables {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.tables, evicted)
	}
}

// Latest returns the most recently retrieved table for a city.
func (s *MemoryStore) Latest(city string) (*weather.HistoricalTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[city]
	if !ok {
		return nil, ErrNotFound
	}
	return table, nil
}
