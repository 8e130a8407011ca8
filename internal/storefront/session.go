// Package storefront models the storefront under test: the navigation state
// machine, the per-session cart and the checkout flow. Server renders the
// model as HTML so scenarios can run against it without the real site.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
)

// Banner texts rendered on the login and checkout screens.
const (
	MsgLockedOut        = "Epic sadface: Sorry, this user has been locked out."
	MsgUsernameRequired = "Epic sadface: Username is required"
	MsgPasswordRequired = "Epic sadface: Password is required"
	MsgBadCredentials   = "Epic sadface: Username and password do not match any user in this service"

	MsgFirstNameRequired  = "Error: First Name is required"
	MsgLastNameRequired   = "Error: Last Name is required"
	MsgPostalCodeRequired = "Error: Postal Code is required"

	CompleteHeader = "Thank you for your order!"
	CompleteText   = "Your order has been dispatched, and will arrive just as fast as the pony can get there!"
)

var (
	// ErrLoginRejected is the modeled outcome for a locked-out user.
	ErrLoginRejected   = errors.New("login rejected")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrMissingField    = errors.New("required field missing")
	ErrUnauthenticated = errors.New("not logged in")
	ErrWrongScreen     = errors.New("action not available on this screen")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrSessionNotFound = errors.New("session not found")
)

// TaxRate applied on the checkout overview.
var TaxRate = apd.New(8, -2)

// Session is one browser's view of the store. All methods are safe for
// concurrent use.
type Session struct {
	Token string

	store *Store

	mu     sync.Mutex
	user   *fixture.User
	screen Screen
	cart   []string
	sort   oracle.SortOrder
	banner string
	info   *fixture.PersonalInfo

	seen atomic.Int64
}

func (s *Session) touch(t time.Time) { s.seen.Store(t.UnixNano()) }

func (s *Session) idleSince(t time.Time) time.Duration {
	return t.Sub(time.Unix(0, s.seen.Load()))
}

// Authenticated reports whether a user is logged in.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// User returns the logged-in user, if any.
func (s *Session) User() (fixture.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return fixture.User{}, false
	}
	return *s.user, true
}

// Screen is the screen the session last landed on.
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// Banner is the pending error banner, empty when none.
func (s *Session) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// DismissError removes the banner without any other state change.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = ""
}

// Login authenticates username/password against the store's users. A
// rejected login leaves the session on the login screen with a banner.
func (s *Session) Login(ctx context.Context, username, password string) error {
	u, err := s.store.authenticate(username, password)
	if err == nil && u.Role == fixture.RolePerformanceGlitch && s.store.glitch > 0 {
		if err := sleep(ctx, s.store.glitch); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.banner = loginBanner(err, username)
		s.screen = ScreenLogin
		return err
	}
	s.user = &u
	s.banner = ""
	s.screen = ScreenInventory
	return nil
}

func loginBanner(err error, username string) string {
	switch {
	case errors.Is(err, ErrLoginRejected):
		return MsgLockedOut
	case errors.Is(err, ErrMissingField) && username == "":
		return MsgUsernameRequired
	case errors.Is(err, ErrMissingField):
		return MsgPasswordRequired
	default:
		return MsgBadCredentials
	}
}

// Logout ends the authenticated session and drops the cart. Any pending
// banner goes with it.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.cart = nil
	s.info = nil
	s.banner = ""
	s.sort = oracle.NameAsc
	s.screen = ScreenLogin
}

// Visit applies the navigation guard and returns the screen the session
// lands on. Protected screens redirect to login while unauthenticated. A
// banner belongs to the screen that raised it and is dropped on leaving.
func (s *Session) Visit(to Screen) Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to.Protected() && s.user == nil {
		s.banner = GuardMessage(to)
		s.screen = ScreenLogin
		return s.screen
	}
	if to != s.screen {
		s.banner = ""
	}
	s.screen = to
	return s.screen
}

// Add puts name in the cart. Adding a present item is a no-op.
func (s *Session) Add(name string) error {
	if _, err := s.store.product(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrUnauthenticated
	}
	if !slices.Contains(s.cart, name) {
		s.cart = append(s.cart, name)
	}
	return nil
}

// Remove takes name out of the cart. Removing an absent item is a no-op.
func (s *Session) Remove(name string) error {
	if _, err := s.store.product(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrUnauthenticated
	}
	s.cart = slices.DeleteFunc(s.cart, func(n string) bool { return n == name })
	return nil
}

// InCart reports whether name is in the cart.
func (s *Session) InCart(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.cart, name)
}

// Cart lists cart items in the order they were added.
func (s *Session) Cart() []fixture.Product {
	s.mu.Lock()
	names := slices.Clone(s.cart)
	s.mu.Unlock()

	out := make([]fixture.Product, 0, len(names))
	for _, n := range names {
		if p, err := s.store.product(n); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Badge is the cart badge text; ok is false when the badge is absent.
func (s *Session) Badge() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return oracle.BadgeText(len(s.cart))
}

// SetSort changes the catalog order.
func (s *Session) SetSort(o oracle.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = o
}

// SortOrder is the active catalog order.
func (s *Session) SortOrder() oracle.SortOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// Catalog is the product list in the active sort order.
func (s *Session) Catalog() []fixture.Product {
	return oracle.Sort(s.store.fixture.Products, s.SortOrder())
}

// Checkout moves from the cart to the information step.
func (s *Session) Checkout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrUnauthenticated
	}
	if s.screen != ScreenCart {
		return fmt.Errorf("checkout from %s: %w", s.screen, ErrWrongScreen)
	}
	s.banner = ""
	s.screen = ScreenCheckoutInfo
	return nil
}

// SubmitInfo validates the personal info and moves to the overview. A
// missing field keeps the information step with the matching banner.
func (s *Session) SubmitInfo(info fixture.PersonalInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrUnauthenticated
	}
	if s.screen != ScreenCheckoutInfo {
		return fmt.Errorf("submit info from %s: %w", s.screen, ErrWrongScreen)
	}
	var msg string
	switch {
	case info.FirstName == "":
		msg = MsgFirstNameRequired
	case info.LastName == "":
		msg = MsgLastNameRequired
	case info.PostalCode == "":
		msg = MsgPostalCodeRequired
	}
	if msg != "" {
		s.banner = msg
		return fmt.Errorf("%w: %s", ErrMissingField, msg)
	}
	s.info = &info
	s.banner = ""
	s.screen = ScreenCheckoutOverview
	return nil
}

// Finish places the order: the cart and personal info are cleared.
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrUnauthenticated
	}
	if s.screen != ScreenCheckoutOverview {
		return fmt.Errorf("finish from %s: %w", s.screen, ErrWrongScreen)
	}
	s.cart = nil
	s.info = nil
	s.screen = ScreenCheckoutComplete
	return nil
}

// Summary is the checkout overview's price breakdown.
type Summary struct {
	Items    []fixture.Product
	Subtotal *apd.Decimal
	Tax      *apd.Decimal
	Total    *apd.Decimal
}

// Summary totals the cart. Amounts are rounded half-up to cents.
func (s *Session) Summary() (Summary, error) {
	items := s.Cart()
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp

	sum := Summary{Items: items, Subtotal: new(apd.Decimal), Tax: new(apd.Decimal), Total: new(apd.Decimal)}
	for _, p := range items {
		if _, err := ctx.Add(sum.Subtotal, sum.Subtotal, p.Price.Decimal()); err != nil {
			return Summary{}, fmt.Errorf("subtotal: %w", err)
		}
	}
	if _, err := ctx.Mul(sum.Tax, sum.Subtotal, TaxRate); err != nil {
		return Summary{}, fmt.Errorf("tax: %w", err)
	}
	for _, d := range []*apd.Decimal{sum.Subtotal, sum.Tax} {
		if _, err := ctx.Quantize(d, d, -2); err != nil {
			return Summary{}, fmt.Errorf("round: %w", err)
		}
	}
	if _, err := ctx.Add(sum.Total, sum.Subtotal, sum.Tax); err != nil {
		return Summary{}, fmt.Errorf("total: %w", err)
	}
	return sum, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
