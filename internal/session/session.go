// Package session persists the authenticated session across restarts.
//
// Only the user, the token and the authenticated flag are stored.
// Loading and error state never cross this boundary.
package session

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"porschevents/internal/model"
)

// ErrCorrupt is returned when a stored session cannot be decoded.
var ErrCorrupt = errors.New("stored session is corrupt")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Persisted is the durable part of the auth state.
type Persisted struct {
	User            *model.User `json:"user"`
	Token           string      `json:"token"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// Store is a durable key-value slot for one session. Load of a missing
// session returns the zero Persisted and no error.
type Store interface {
	Load(ctx context.Context) (Persisted, error)
	Save(ctx context.Context, p Persisted) error
}

func encode(p Persisted) ([]byte, error) {
	return json.Marshal(p)
}

func decode(data []byte) (Persisted, error) {
	var p Persisted
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Persisted{}, errors.Join(ErrCorrupt, err)
	}
	return p, nil
}

func clonePersisted(p Persisted) Persisted {
	if p.User != nil {
		u := p.User.Clone()
		p.User = &u
	}
	return p
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu sync.Mutex
	p  Persisted
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePersisted(m.p), nil
}

func (m *MemoryStore) Save(_ context.Context, p Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = clonePersisted(p)
	return nil
}
