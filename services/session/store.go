package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mazen160/go-random"
)

// Store keeps sessions in process memory keyed by an opaque id that
// travels in the browser's cookie. Entries expire after the ttl or
// under capacity pressure; nothing is ever written to disk.
type Store struct {
	cache *expirable.LRU[string, Session]
}

func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = 4096
	}
	if ttl <= 0 {
		ttl = time.Hour * 12
	}
	return &Store{
		cache: expirable.NewLRU[string, Session](capacity, nil, ttl),
	}
}

// Put stores the session under a freshly generated opaque id and
// returns the id.
func (s *Store) Put(session Session) (string, error) {
	id, err := random.String(64)
	if err != nil {
		return "", err
	}
	s.cache.Add(id, session)
	return id, nil
}

func (s *Store) Get(id string) (Session, bool) {
	if id == "" {
		return Session{}, false
	}
	return s.cache.Get(id)
}

func (s *Store) Delete(id string) {
	s.cache.Remove(id)
}
