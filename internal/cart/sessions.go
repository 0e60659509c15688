package cart

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// PersisterFactory builds the persistence adapter for one session.
type PersisterFactory func(sessionID string) Persister

type sessionEntry struct {
	id       string
	store    *Store
	lastUsed time.Time
}

// Sessions hands out one Store per session id, creating and rehydrating it on first use.
// Stores idle for longer than the idle TTL are evicted, and the registry never
// holds more than maxSessions stores; the least recently used one goes first.
// Eviction only drops memory, persisted state is untouched.
type Sessions struct {
	mu          sync.Mutex
	stores      map[string]*list.Element
	lru         *list.List // front is most recently used
	loads       singleflight.Group
	newPersist  PersisterFactory
	log         logrus.FieldLogger
	subscribers []func(sessionID string, snap Snapshot)
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
}

// SessionsOption configures a Sessions registry.
type SessionsOption func(*Sessions)

// WithSubscriber attaches fn to every store the registry creates.
func WithSubscriber(fn func(sessionID string, snap Snapshot)) SessionsOption {
	return func(s *Sessions) {
		s.subscribers = append(s.subscribers, fn)
	}
}

// WithIdleTTL evicts stores not used for d. Zero disables idle eviction.
func WithIdleTTL(d time.Duration) SessionsOption {
	return func(s *Sessions) { s.idleTTL = d }
}

// WithMaxSessions caps the number of stores held in memory. Zero means no cap.
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) { s.maxSessions = n }
}

func NewSessions(factory PersisterFactory, log logrus.FieldLogger, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		stores:     make(map[string]*list.Element),
		lru:        list.New(),
		newPersist: factory,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the store for sessionID, loading it on first use. Loads run
// outside the registry lock and concurrent first uses of one id share a single
// load. A store whose load failed is not kept, so the next Get retries.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	if st, ok := s.lookup(sessionID); ok {
		return st, nil
	}

	v, err, _ := s.loads.Do(sessionID, func() (interface{}, error) {
		if st, ok := s.lookup(sessionID); ok {
			return st, nil
		}
		log := s.log.WithField("session_id", sessionID)
		st := NewStore(s.newPersist(sessionID), log)
		if err := st.Rehydrate(ctx); err != nil {
			return nil, err
		}
		for _, fn := range s.subscribers {
			st.Subscribe(func(snap Snapshot) { fn(sessionID, snap) })
		}
		s.insert(sessionID, st)
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (s *Sessions) lookup(sessionID string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.stores[sessionID]
	if !ok {
		return nil, false
	}
	e := el.Value.(*sessionEntry)
	e.lastUsed = s.now()
	s.lru.MoveToFront(el)
	return e.store, true
}

func (s *Sessions) insert(sessionID string, st *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stores[sessionID] = s.lru.PushFront(&sessionEntry{id: sessionID, store: st, lastUsed: s.now()})
	for s.maxSessions > 0 && s.lru.Len() > s.maxSessions {
		s.removeLocked(s.lru.Back())
	}
}

func (s *Sessions) removeLocked(el *list.Element) {
	e := s.lru.Remove(el).(*sessionEntry)
	delete(s.stores, e.id)
}

// Forget drops the in-memory store for sessionID. Persisted state is untouched.
func (s *Sessions) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.stores[sessionID]; ok {
		s.removeLocked(el)
	}
}

// EvictIdle drops every store idle for longer than the idle TTL and reports how many went.
func (s *Sessions) EvictIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for el := s.lru.Back(); el != nil; {
		e := el.Value.(*sessionEntry)
		if !e.lastUsed.Before(cutoff) {
			break
		}
		prev := el.Prev()
		s.removeLocked(el)
		evicted++
		el = prev
	}
	return evicted
}

// Run evicts idle stores periodically until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context) {
	if s.idleTTL <= 0 {
		return
	}
	interval := s.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.log.WithField("evicted", n).Debug("evicted idle carts")
			}
		}
	}
}

// Len reports how many sessions are currently held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}
