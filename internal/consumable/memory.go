package consumable

import (
	"sort"
	"sync"
)

// MemoryDB implements the DB interface with an in-process map. Useful for
// development mode and tests; contents are lost on shutdown.
type MemoryDB struct {
	mu      sync.RWMutex
	records map[string]*Consumable
}

// NewMemoryDB creates a new MemoryDB instance
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		records: make(map[string]*Consumable),
	}
}

// FindByKey retrieves a consumable by its normalized key
func (m *MemoryDB) FindByKey(key string) (*Consumable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

// Insert stores a new consumable, enforcing normalized-key uniqueness
func (m *MemoryDB) Insert(c *Consumable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[c.NormalizedKey]; ok {
		return ErrDuplicateKey
	}
	copied := *c
	m.records[c.NormalizedKey] = &copied
	return nil
}

// Update rewrites an existing consumable
func (m *MemoryDB) Update(c *Consumable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[c.NormalizedKey]; !ok {
		return ErrNotFound
	}
	copied := *c
	m.records[c.NormalizedKey] = &copied
	return nil
}

// ListAll returns all consumables ordered by normalized key ascending
func (m *MemoryDB) ListAll() ([]*Consumable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	consumables := make([]*Consumable, 0, len(keys))
	for _, key := range keys {
		copied := *m.records[key]
		consumables = append(consumables, &copied)
	}
	return consumables, nil
}

// Upsert reads, merges and writes the record for key under the write lock
func (m *MemoryDB) Upsert(key string, merge MergeFunc) (*Consumable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *Consumable
	if c, ok := m.records[key]; ok {
		copied := *c
		existing = &copied
	}

	merged, err := merge(existing)
	if err != nil {
		return nil, err
	}

	copied := *merged
	m.records[key] = &copied
	return merged, nil
}

// Close is a no-op for the in-memory store
func (m *MemoryDB) Close() error {
	return nil
}
