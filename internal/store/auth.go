package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"porschevents/internal/log"
	"porschevents/internal/model"
	"porschevents/internal/session"
	"porschevents/internal/source"
	"porschevents/internal/token"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgLoginFailed        = "Login failed. Please try again."
	msgRegisterFailed     = "Registration failed. Please try again."
	msgEmailTaken         = "An account with this email already exists"
)

// AuthState is a snapshot of the auth store. Only User, Token and
// IsAuthenticated are persisted.
type AuthState struct {
	User            *model.User `json:"user"`
	Token           string      `json:"token"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	IsLoading       bool        `json:"isLoading"`
	Error           *Failure    `json:"error"`
}

func (s AuthState) clone() AuthState {
	out := s
	if s.User != nil {
		u := s.User.Clone()
		out.User = &u
	}
	out.Error = s.Error.clone()
	return out
}

func (s AuthState) persisted() session.Persisted {
	c := s.clone()
	return session.Persisted{User: c.User, Token: c.Token, IsAuthenticated: c.IsAuthenticated}
}

// Tokens mints and checks session tokens.
type Tokens interface {
	Issue(userID string) (string, error)
	Verify(raw string) (token.Claims, error)
}

// RegisterInput is the data a new member supplies.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Location  string `json:"location,omitempty"`
}

type AuthOption func(*AuthStore)

// WithClock replaces the store's time source.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthStore) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for new user ids.
func WithIDGenerator(gen func() string) AuthOption {
	return func(s *AuthStore) { s.newID = gen }
}

// AuthStore holds the current session. Users are looked up through a
// source.UserFinder; if it also implements source.UserRegistrar,
// registrations are persisted there.
type AuthStore struct {
	users    source.UserFinder
	sessions session.Store
	tokens   Tokens
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	state   AuthState
	pending int

	// persistMu orders session writes so the last mutation is the one
	// left on disk.
	persistMu sync.Mutex

	obs observers[AuthState]
}

// NewAuthStore builds the store and restores the persisted session. A
// session that cannot be restored is logged and discarded.
func NewAuthStore(ctx context.Context, users source.UserFinder, sessions session.Store, tokens Tokens, opts ...AuthOption) *AuthStore {
	s := &AuthStore{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Restore(ctx); err != nil {
		log.Warn("session not restored", "err", err.Error())
	}
	return s
}

// Restore replaces the session fields with the persisted ones. An
// expired or foreign token discards the session.
func (s *AuthStore) Restore(ctx context.Context) error {
	p, err := s.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if p.IsAuthenticated {
		if p.User == nil || p.Token == "" {
			return s.discard(ctx, errors.New("incomplete session"))
		}
		claims, err := s.tokens.Verify(p.Token)
		if err != nil {
			return s.discard(ctx, err)
		}
		if claims.UserID != p.User.ID {
			return s.discard(ctx, fmt.Errorf("%w: token subject mismatch", token.ErrInvalidToken))
		}
	}

	s.update(func(st *AuthState) {
		st.User = p.User
		st.Token = p.Token
		st.IsAuthenticated = p.IsAuthenticated
	})
	if p.IsAuthenticated {
		log.Info("session restored", "user", p.User.ID)
	}
	return nil
}

func (s *AuthStore) discard(ctx context.Context, cause error) error {
	s.update(func(st *AuthState) {
		st.User = nil
		st.Token = ""
		st.IsAuthenticated = false
	})
	s.persist(ctx)
	return fmt.Errorf("discarding stored session: %w", cause)
}

func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *AuthStore) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	return s.obs.subscribe(fn)
}

func (s *AuthStore) update(fn func(st *AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	s.mu.Unlock()
	s.obs.notify(snap)
}

func (s *AuthStore) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	p := s.state.persisted()
	s.mu.Unlock()

	if err := s.sessions.Save(ctx, p); err != nil {
		log.Error("save session", err)
	}
}

func (s *AuthStore) begin() {
	s.update(func(st *AuthState) {
		s.pending++
		st.IsLoading = true
		st.Error = nil
	})
}

// fail records f, leaves the session untouched and returns the error
// the operation reports to its caller.
func (s *AuthStore) fail(f Failure, cause error) error {
	s.update(func(st *AuthState) {
		s.pending--
		st.IsLoading = s.pending > 0
		st.Error = &f
	})
	return newOpError(f, cause)
}

func (s *AuthStore) establish(ctx context.Context, u model.User, tok string) {
	u.PasswordHash = ""
	s.update(func(st *AuthState) {
		s.pending--
		st.IsLoading = s.pending > 0
		st.User = &u
		st.Token = tok
		st.IsAuthenticated = true
		st.Error = nil
	})
	s.persist(ctx)
}

// Login checks the credentials and establishes a session. Unknown
// emails and wrong passwords are reported the same way.
func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	s.begin()

	email = strings.TrimSpace(email)
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		log.Error("login lookup failed", err)
		return s.fail(Failure{Kind: KindFetchFailed, Message: msgLoginFailed}, err)
	}
	if u == nil || u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		log.Warn("login rejected", "email", email)
		return s.fail(Failure{Kind: KindInvalidCredentials, Message: msgInvalidCredentials}, nil)
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		log.Error("issue token", err, "user", u.ID)
		return s.fail(Failure{Kind: KindFetchFailed, Message: msgLoginFailed}, err)
	}

	s.establish(ctx, *u, tok)
	log.Info("user logged in", "user", u.ID)
	return nil
}

// Register creates a member with default preferences and logs them in.
func (s *AuthStore) Register(ctx context.Context, in RegisterInput) error {
	s.begin()

	now := s.now().UTC()
	u := model.User{
		ID:          s.newID(),
		Email:       strings.TrimSpace(in.Email),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Location:    strings.TrimSpace(in.Location),
		Preferences: model.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if reg, ok := s.users.(source.UserRegistrar); ok {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return s.fail(Failure{Kind: KindFetchFailed, Message: msgRegisterFailed},
				fmt.Errorf("hash password: %w", err))
		}
		u.PasswordHash = string(hash)
		if err := reg.CreateUser(ctx, u); err != nil {
			if errors.Is(err, source.ErrDuplicateEmail) {
				return s.fail(Failure{Kind: KindValidationFailed, Message: msgEmailTaken}, err)
			}
			log.Error("register user", err, "email", u.Email)
			return s.fail(Failure{Kind: KindFetchFailed, Message: msgRegisterFailed}, err)
		}
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return s.fail(Failure{Kind: KindFetchFailed, Message: msgRegisterFailed}, err)
	}

	s.establish(ctx, u, tok)
	log.Info("user registered", "user", u.ID)
	return nil
}

// Logout clears every session field. It always succeeds.
func (s *AuthStore) Logout(ctx context.Context) {
	s.update(func(st *AuthState) {
		*st = AuthState{}
	})
	s.persist(ctx)
}

// UpdateUser merges patch into the current user. It reports false and
// does nothing when no one is logged in.
func (s *AuthStore) UpdateUser(ctx context.Context, patch model.UserPatch) bool {
	applied := false
	s.update(func(st *AuthState) {
		if st.User == nil {
			return
		}
		u := st.User.Apply(patch)
		u.UpdatedAt = s.now().UTC()
		st.User = &u
		applied = true
	})
	if applied {
		s.persist(ctx)
	}
	return applied
}

func (s *AuthStore) ClearError() {
	s.update(func(st *AuthState) {
		st.Error = nil
	})
}
