package storefront

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
)

// DefaultGlitch is the login delay for performance_glitch_user.
const DefaultGlitch = 2 * time.Second

// DefaultIdleTimeout is how long a session may go unused before it is
// discarded.
const DefaultIdleTimeout = 30 * time.Minute

// Store holds the catalog, the accounts and every live session.
type Store struct {
	fixture *fixture.Fixture
	glitch  time.Duration
	idle    time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithGlitch sets the performance_glitch_user login delay. Zero disables it.
func WithGlitch(d time.Duration) StoreOption {
	return func(s *Store) { s.glitch = d }
}

// WithIdleTimeout sets how long an unused session survives. Zero keeps
// sessions until they are dropped.
func WithIdleTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.idle = d }
}

// NewStore serves the accounts and catalog of f.
func NewStore(f *fixture.Fixture, opts ...StoreOption) *Store {
	s := &Store{
		fixture:  f,
		glitch:   DefaultGlitch,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewSession opens an unauthenticated session on the login screen. Idle
// sessions are swept first.
func (st *Store) NewSession() *Session {
	now := st.now()
	sess := &Session{
		Token:  uuid.NewString(),
		store:  st,
		screen: ScreenLogin,
		sort:   oracle.NameAsc,
	}
	sess.touch(now)
	st.mu.Lock()
	st.sweepLocked(now)
	st.sessions[sess.Token] = sess
	st.mu.Unlock()
	return sess
}

func (st *Store) sweepLocked(now time.Time) {
	if st.idle <= 0 {
		return
	}
	for token, sess := range st.sessions {
		if sess.idleSince(now) > st.idle {
			delete(st.sessions, token)
		}
	}
}

// Session looks up a live session by token and marks it used. An idle
// session is reported as not found.
func (st *Store) Session(token string) (*Session, error) {
	now := st.now()
	st.mu.RLock()
	sess, ok := st.sessions[token]
	st.mu.RUnlock()
	if ok && st.idle > 0 && sess.idleSince(now) > st.idle {
		st.Drop(token)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	sess.touch(now)
	return sess, nil
}

// Drop discards a session.
func (st *Store) Drop(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, token)
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Products is the catalog in fixture order.
func (st *Store) Products() []fixture.Product { return st.fixture.Products }

// ProductByID resolves the item-detail id, the product's catalog index.
func (st *Store) ProductByID(id int) (fixture.Product, bool) {
	if id < 0 || id >= len(st.fixture.Products) {
		return fixture.Product{}, false
	}
	return st.fixture.Products[id], true
}

// ProductID is the item-detail id of name, or -1.
func (st *Store) ProductID(name string) int {
	for i, p := range st.fixture.Products {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (st *Store) product(name string) (fixture.Product, error) {
	p, err := st.fixture.Product(name)
	if err != nil {
		return fixture.Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	return p, nil
}

func (st *Store) authenticate(username, password string) (fixture.User, error) {
	if username == "" || password == "" {
		return fixture.User{}, ErrMissingField
	}
	for _, u := range st.fixture.Users {
		if u.Username != username {
			continue
		}
		if u.Password != password {
			break
		}
		if u.Role == fixture.RoleLockedOut {
			return fixture.User{}, fmt.Errorf("%s: %w", username, ErrLoginRejected)
		}
		return u, nil
	}
	return fixture.User{}, fmt.Errorf("%s: %w", username, ErrBadCredentials)
}
