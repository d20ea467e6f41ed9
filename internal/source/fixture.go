package source

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"porschevents/internal/model"
)

// FixturePassword is the password of every fixture user.
const FixturePassword = "password"

// Fixture is an in-memory Source seeded with the demo catalogue. It
// optionally sleeps before answering to mimic a remote API.
type Fixture struct {
	ListLatency time.Duration
	UserLatency time.Duration

	mu     sync.RWMutex
	events []model.Event
	users  []model.User
}

var (
	fixtureHashOnce sync.Once
	fixtureHash     string
	fixtureHashErr  error
)

// NewFixture returns a fixture holding FixtureEvents and FixtureUsers.
func NewFixture() (*Fixture, error) {
	fixtureHashOnce.Do(func() {
		var h []byte
		h, fixtureHashErr = bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.DefaultCost)
		fixtureHash = string(h)
	})
	if fixtureHashErr != nil {
		return nil, fixtureHashErr
	}

	users := FixtureUsers()
	for i := range users {
		users[i].PasswordHash = fixtureHash
	}
	return &Fixture{
		events: FixtureEvents(),
		users:  users,
	}, nil
}

func (f *Fixture) ListEvents(ctx context.Context) ([]model.Event, error) {
	if err := sleep(ctx, f.ListLatency); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return model.CloneEvents(f.events), nil
}

// FindUserByEmail matches emails case-insensitively.
func (f *Fixture) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := sleep(ctx, f.UserLatency); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			c := u.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

// CreateUser keeps the user in memory so a later login can find it.
func (f *Fixture) CreateUser(ctx context.Context, u model.User) error {
	if err := sleep(ctx, f.UserLatency); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
		}
	}
	f.users = append(f.users, u.Clone())
	return nil
}

// Users returns a copy of every known user, including password hashes.
func (f *Fixture) Users() []model.User {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.User, len(f.users))
	for i, u := range f.users {
		out[i] = u.Clone()
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
