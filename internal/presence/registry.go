package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long an admin stays listed without a heartbeat.
const DefaultTTL = 90 * time.Second

// Admin is one connected operator on the monitoring dashboard.
type Admin struct {
	UserID      int64     `json:"_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeen    time.Time `json:"lastSeen"`
}

type Registry interface {
	Join(ctx context.Context, a Admin) error
	Touch(ctx context.Context, userID int64) error
	Leave(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]Admin, error)
}

type memoryEntry struct {
	admin Admin
	conns int
}

// MemoryRegistry keeps presence for a single process. Several tabs of the
// same admin are counted so closing one does not drop the others.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[int64]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{entries: map[int64]*memoryEntry{}, ttl: ttl, now: time.Now}
}

func (m *MemoryRegistry) Join(_ context.Context, a Admin) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[a.UserID]; ok {
		e.conns++
		e.admin.LastSeen = now
		return nil
	}
	a.ConnectedAt = now
	a.LastSeen = now
	m.entries[a.UserID] = &memoryEntry{admin: a, conns: 1}
	return nil
}

func (m *MemoryRegistry) Touch(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[userID]; ok {
		e.admin.LastSeen = m.now()
	}
	return nil
}

func (m *MemoryRegistry) Leave(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		return nil
	}
	e.conns--
	if e.conns <= 0 {
		delete(m.entries, userID)
	}
	return nil
}

// List returns live admins ordered by connection time and evicts stale ones.
func (m *MemoryRegistry) List(_ context.Context) ([]Admin, error) {
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	out := make([]Admin, 0, len(m.entries))
	for id, e := range m.entries {
		if e.admin.LastSeen.Before(cutoff) {
			delete(m.entries, id)
			continue
		}
		out = append(out, e.admin)
	}
	m.mu.Unlock()
	sortAdmins(out)
	return out, nil
}

func sortAdmins(out []Admin) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
}
