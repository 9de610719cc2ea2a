// Package session keeps per-user location state for the lifetime of a
// browser session. Nothing is persisted.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"umkm-map/internal/models"
)

// Source labels where a session's base set came from.
const (
	SourceSample = "sample"
	SourceUpload = "upload"
)

// Session owns one user's base set and the manual entries appended to it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	base      *models.LocationSet
	pending   *models.LocationSet
	source    string
	touchedAt time.Time
}

func newSession(base *models.LocationSet, now time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		base:      base,
		pending:   models.NewLocationSet(),
		source:    SourceSample,
		touchedAt: now,
	}
}

// Current returns the base set followed by the pending manual entries.
func (s *Session) Current() *models.LocationSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Concat(s.pending)
}

// Source reports whether the base set is the sample or an upload.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// PendingLen is the number of manual entries appended so far.
func (s *Session) PendingLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.Len()
}

// SetBase replaces the base set, e.g. after a successful upload. Pending
// manual entries are kept.
func (s *Session) SetBase(set *models.LocationSet, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = set
	s.source = source
}

// AddManual appends one manually entered record.
func (s *Session) AddManual(rec models.LocationRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Append(rec)
	return s.pending.Len()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.touchedAt)
}

// BaseFunc supplies the initial set of a new session.
type BaseFunc func() (*models.LocationSet, error)

// Store indexes live sessions by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	base     BaseFunc
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(base BaseFunc, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		base:     base,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session with id, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	s := st.sessions[id]
	st.mu.RUnlock()
	if s != nil {
		s.touch(st.now())
	}
	return s
}

// Create starts a session seeded with the store's base set.
func (st *Store) Create() (*Session, error) {
	base, err := st.base()
	if err != nil {
		return nil, err
	}
	s := newSession(base, st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// GetOrCreate returns the session for id, starting a new one when id is
// unknown or expired.
func (st *Store) GetOrCreate(id string) (*Session, bool, error) {
	if id != "" {
		if s := st.Get(id); s != nil {
			return s, false, nil
		}
	}
	s, err := st.Create()
	return s, true, err
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle longer than the store TTL and returns how many
// were removed. A zero TTL keeps everything.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
