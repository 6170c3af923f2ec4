package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"billiard/internal/core"
	"billiard/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps the session history in memory. Used for local runs and tests.
type Store struct {
	mu       sync.Mutex
	sessions []core.Session
	now      func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromFile seeds the store with sessions from a JSON file. A missing or
// unreadable file yields an empty store.
func NewFromFile(path string) *Store {
	s := New()
	b, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var seed []core.Session
	if err := json.Unmarshal(b, &seed); err != nil {
		return s
	}
	for _, sess := range seed {
		if sess.ID == "" {
			sess.ID = uuid.NewString()
		}
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = s.now().UTC()
		}
		for i := range sess.Players {
			if sess.Players[i].ID == "" {
				sess.Players[i].ID = uuid.NewString()
			}
		}
		s.sessions = append(s.sessions, sess)
	}
	return s
}

// WithClock replaces the time source used for CreatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.ID = uuid.NewString()
	sess.CreatedAt = s.now().UTC()
	players := make([]core.PlayerShare, len(sess.Players))
	for i, p := range sess.Players {
		p.ID = uuid.NewString()
		players[i] = p
	}
	sess.Players = players

	s.sessions = append(s.sessions, sess)
	return clone(sess), nil
}

func (s *Store) ListSessions(_ context.Context) ([]core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = clone(sess)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetSession(_ context.Context, id string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return clone(sess), nil
		}
	}
	return core.Session{}, fmt.Errorf("session %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("session %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) DeleteAllSessions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.sessions))
	s.sessions = nil
	return n, nil
}

func (s *Store) SetPaid(_ context.Context, sessionID, shareID string, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID != sessionID {
			continue
		}
		for j := range s.sessions[i].Players {
			if s.sessions[i].Players[j].ID == shareID {
				s.sessions[i].Players[j].Paid = paid
				return nil
			}
		}
		return fmt.Errorf("share %s in session %s: %w", shareID, sessionID, ledger.ErrNotFound)
	}
	return fmt.Errorf("session %s: %w", sessionID, ledger.ErrNotFound)
}

func clone(s core.Session) core.Session {
	s.Players = append([]core.PlayerShare(nil), s.Players...)
	return s
}
