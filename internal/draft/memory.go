package draft

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. Drafts are kept encoded so a Get never
// hands out memory shared with a previous Put.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[Key]memEntry
	seq    int64
}

type memEntry struct {
	payload []byte
	seq     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[Key]memEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (*Draft, error) {
	m.mu.RLock()
	e, ok := m.drafts[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(e.payload)
}

func (m *MemoryStore) Put(_ context.Context, key Key, d Draft) error {
	payload, err := Encode(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.seq++
	m.drafts[key] = memEntry{payload: payload, seq: m.seq}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.drafts, key)
	m.mu.Unlock()
	return nil
}

// List returns keys most recently saved first.
func (m *MemoryStore) List(_ context.Context, tenantID, actorID string) ([]Key, error) {
	m.mu.RLock()
	type ranked struct {
		key Key
		seq int64
	}
	var found []ranked
	for k, e := range m.drafts {
		if k.TenantID == tenantID && k.ActorID == actorID {
			found = append(found, ranked{k, e.seq})
		}
	}
	m.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool { return found[i].seq > found[j].seq })
	keys := make([]Key, len(found))
	for i, r := range found {
		keys[i] = r.key
	}
	return keys, nil
}

func (m *MemoryStore) PurgeTenant(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.drafts {
		if k.TenantID == tenantID {
			delete(m.drafts, k)
			n++
		}
	}
	return n, nil
}
