package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dealhunter/models"
)

// EvictionPolicy decides whether a session should be dropped.
type EvictionPolicy interface {
	Expired(s *Session, now time.Time) bool
}

type noEviction struct{}

func (noEviction) Expired(*Session, time.Time) bool { return false }

// NoEviction keeps sessions for the life of the process.
var NoEviction EvictionPolicy = noEviction{}

type idleTimeout time.Duration

func (d idleTimeout) Expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastAccess) > time.Duration(d)
}

// IdleTimeout expires sessions that have not been read for d. A non-positive
// duration disables eviction.
func IdleTimeout(d time.Duration) EvictionPolicy {
	if d <= 0 {
		return NoEviction
	}
	return idleTimeout(d)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	sessions map[string]*Session
	policy   EvictionPolicy
	now      func() time.Time
	logger   *zap.Logger
	mutex    sync.RWMutex
}

type Option func(*MemoryStore)

func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(s *MemoryStore) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(logger *zap.Logger, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		policy:   NoEviction,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (m *MemoryStore) Create(ctx context.Context, s Session) (string, error) {
	now := m.now()
	stored := s
	stored.ID = uuid.NewString()
	stored.Products = models.CloneProducts(s.Products)
	if stored.SortBy == "" {
		stored.SortBy = SortRelevance
	}
	stored.CreatedAt = now
	stored.LastAccess = now

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sessions[stored.ID] = &stored
	return stored.ID, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	out := *s
	out.Products = models.CloneProducts(s.Products)
	return out, nil
}

func (m *MemoryStore) Page(ctx context.Context, id string, sortBy SortBy, offset, limit int) (Page, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Page{}, ErrNotFound
	}

	if sortBy != "" && sortBy != s.SortBy {
		SortProducts(s.Products, sortBy)
		s.SortBy = sortBy
	}
	s.LastAccess = m.now()

	total := len(s.Products)
	start := clamp(offset, 0, total)
	end := total
	if limit > 0 {
		end = clamp(start+limit, start, total)
	}

	return Page{
		SessionID:         s.ID,
		Products:          models.CloneProducts(s.Products[start:end]),
		Total:             total,
		Offset:            start,
		SearchTerm:        s.SearchTerm,
		RefinedSearchTerm: s.RefinedSearchTerm,
		SortBy:            s.SortBy,
		Country:           s.Country,
	}, nil
}

func (m *MemoryStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.sessions)
}

func (m *MemoryStore) Sweep(now time.Time) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.policy.Expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(m.now()); removed > 0 {
				m.logger.Info("evicted idle sessions",
					zap.Int("removed", removed),
					zap.Int("remaining", m.Len()))
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
