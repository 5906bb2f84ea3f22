package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps import sessions in memory. Sessions are lost on restart;
// the statement can simply be uploaded again.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
}

func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return sess, nil
}

// List returns sessions newest first.
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}

	slices.SortFunc(out, func(a, b *Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out
}

// Delete removes a session unless a run is still using it.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	if sess.Running() {
		return ErrRunInProgress
	}

	delete(s.sessions, id)

	return nil
}

// Expire drops idle sessions created before cutoff and returns how many
// were removed. Sessions with an active run are kept.
func (s *Store) Expire(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) && !sess.Running() {
			delete(s.sessions, id)
			n++
		}
	}

	return n
}
