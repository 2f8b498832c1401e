package dashboard

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions keeps one Controller per browser session. Sessions idle for
// longer than ttl are dropped the next time a session is created.
type Sessions struct {
	mu            sync.Mutex
	newController func() *Controller
	ttl           time.Duration
	now           func() time.Time
	m             map[string]*sessionEntry
}

type sessionEntry struct {
	c        *Controller
	lastSeen time.Time
}

func NewSessions(factory func() *Controller, ttl time.Duration) *Sessions {
	return &Sessions{
		newController: factory,
		ttl:           ttl,
		now:           time.Now,
		m:             map[string]*sessionEntry{},
	}
}

// Get returns the controller for id, creating a fresh session (with a new
// id) when id is unknown or expired. The returned id is the one to keep.
func (s *Sessions) Get(id string) (*Controller, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id = strings.TrimSpace(id)
	if e, ok := s.m[id]; ok && !s.expired(e, now) {
		e.lastSeen = now
		return e.c, id, false
	}

	s.sweepLocked(now)
	id = uuid.NewString()
	e := &sessionEntry{c: s.newController(), lastSeen: now}
	s.m[id] = e
	return e.c, id, true
}

func (s *Sessions) expired(e *sessionEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *Sessions) sweepLocked(now time.Time) {
	for id, e := range s.m {
		if s.expired(e, now) {
			delete(s.m, id)
		}
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
