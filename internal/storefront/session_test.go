package storefront

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(fixture.Example(), WithGlitch(0))
}

func login(t *testing.T, sess *Session, role fixture.Role) {
	t.Helper()
	u, err := fixture.Example().User(role)
	require.NoError(t, err)
	require.NoError(t, sess.Login(context.Background(), u.Username, u.Password))
}

func TestGuard_AllProtectedScreensRedirect(t *testing.T) {
	st := newStore(t)
	require.Len(t, Guarded, 5)
	for _, screen := range Guarded {
		sess := st.NewSession()
		assert.Equal(t, ScreenLogin, sess.Visit(screen), screen)
		assert.Equal(t, GuardMessage(screen), sess.Banner())
		assert.False(t, sess.Authenticated())
	}
	assert.Equal(t, ScreenLogin, st.NewSession().Visit(ScreenItem))
}

func TestGuard_AuthenticatedPassesThrough(t *testing.T) {
	sess := newStore(t).NewSession()
	login(t, sess, fixture.RoleStandard)
	for _, screen := range Guarded {
		assert.Equal(t, screen, sess.Visit(screen))
	}
}

func TestLogin_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
		banner   string
	}{
		{"standard", "standard_user", "secret_sauce", nil, ""},
		{"problem", "problem_user", "secret_sauce", nil, ""},
		{"error user", "error_user", "secret_sauce", nil, ""},
		{"locked out", "locked_out_user", "secret_sauce", ErrLoginRejected, MsgLockedOut},
		{"wrong password", "standard_user", "nope", ErrBadCredentials, MsgBadCredentials},
		{"unknown user", "visual_user", "secret_sauce", ErrBadCredentials, MsgBadCredentials},
		{"empty username", "", "secret_sauce", ErrMissingField, MsgUsernameRequired},
		{"empty password", "standard_user", "", ErrMissingField, MsgPasswordRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newStore(t).NewSession()
			err := sess.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, ScreenInventory, sess.Screen())
				assert.True(t, sess.Authenticated())
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, ScreenLogin, sess.Screen())
			assert.False(t, sess.Authenticated())
			assert.Equal(t, tt.banner, sess.Banner())
		})
	}
}

func TestLockedOutBanner_Idempotent(t *testing.T) {
	sess := newStore(t).NewSession()
	for i := 0; i < 3; i++ {
		err := sess.Login(context.Background(), "locked_out_user", "secret_sauce")
		assert.ErrorIs(t, err, ErrLoginRejected)
		assert.Equal(t, MsgLockedOut, sess.Banner())

		sess.DismissError()
		assert.Empty(t, sess.Banner())
		assert.Equal(t, ScreenLogin, sess.Screen())
	}
}

func TestLogin_PerformanceGlitchDelays(t *testing.T) {
	st := NewStore(fixture.Example(), WithGlitch(30*time.Millisecond))
	sess := st.NewSession()

	start := time.Now()
	require.NoError(t, sess.Login(context.Background(), "performance_glitch_user", "secret_sauce"))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := st.NewSession().Login(ctx, "performance_glitch_user", "secret_sauce")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCart_BadgeTracksRandomSequences(t *testing.T) {
	names := fixture.Example().ProductNames()
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 50; run++ {
		sess := newStore(t).NewSession()
		login(t, sess, fixture.RoleStandard)
		want := map[string]bool{}
		for step := 0; step < 20; step++ {
			name := names[rng.IntN(len(names))]
			if rng.IntN(2) == 0 {
				require.NoError(t, sess.Add(name))
				want[name] = true
			} else {
				require.NoError(t, sess.Remove(name))
				delete(want, name)
			}
			text, ok := sess.Badge()
			wantText, wantOK := oracle.BadgeText(len(want))
			assert.Equal(t, wantOK, ok)
			assert.Equal(t, wantText, text)
			assert.Len(t, sess.Cart(), len(want))
		}
	}
}

func TestCart_RequiresLoginAndKnownProduct(t *testing.T) {
	sess := newStore(t).NewSession()
	assert.ErrorIs(t, sess.Add("Sauce Labs Backpack"), ErrUnauthenticated)

	login(t, sess, fixture.RoleStandard)
	assert.ErrorIs(t, sess.Add("Sauce Labs Hat"), ErrUnknownProduct)
}

func TestCheckout_Flow(t *testing.T) {
	sess := newStore(t).NewSession()
	login(t, sess, fixture.RoleStandard)
	require.NoError(t, sess.Add("Sauce Labs Backpack"))

	assert.ErrorIs(t, sess.SubmitInfo(fixture.Example().AuthUser), ErrWrongScreen)
	assert.ErrorIs(t, sess.Checkout(), ErrWrongScreen)
	assert.Equal(t, ScreenInventory, sess.Screen())

	sess.Visit(ScreenCart)
	require.NoError(t, sess.Checkout())
	assert.Equal(t, ScreenCheckoutInfo, sess.Screen())

	err := sess.SubmitInfo(fixture.PersonalInfo{LastName: "Doe", PostalCode: "12345"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, MsgFirstNameRequired, sess.Banner())
	assert.Equal(t, ScreenCheckoutInfo, sess.Screen())

	err = sess.SubmitInfo(fixture.PersonalInfo{FirstName: "John", PostalCode: "12345"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, MsgLastNameRequired, sess.Banner())

	err = sess.SubmitInfo(fixture.PersonalInfo{FirstName: "John", LastName: "Doe"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, MsgPostalCodeRequired, sess.Banner())

	require.NoError(t, sess.SubmitInfo(fixture.Example().AuthUser))
	assert.Equal(t, ScreenCheckoutOverview, sess.Screen())
	assert.Empty(t, sess.Banner())

	require.NoError(t, sess.Finish())
	assert.Equal(t, ScreenCheckoutComplete, sess.Screen())
	assert.Empty(t, sess.Cart())
	_, ok := sess.Badge()
	assert.False(t, ok)
}

func TestSummary(t *testing.T) {
	sess := newStore(t).NewSession()
	login(t, sess, fixture.RoleStandard)

	sum, err := sess.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.00", sum.Total.Text('f'))

	require.NoError(t, sess.Add("Sauce Labs Backpack"))
	sum, err = sess.Summary()
	require.NoError(t, err)
	assert.Equal(t, "29.99", sum.Subtotal.Text('f'))
	assert.Equal(t, "2.40", sum.Tax.Text('f'))
	assert.Equal(t, "32.39", sum.Total.Text('f'))

	require.NoError(t, sess.Add("Sauce Labs Bike Light"))
	require.NoError(t, sess.Add("Sauce Labs Bolt T-Shirt"))
	sum, err = sess.Summary()
	require.NoError(t, err)
	assert.Equal(t, "55.97", sum.Subtotal.Text('f'))
	assert.Equal(t, "4.48", sum.Tax.Text('f'))
	assert.Equal(t, "60.45", sum.Total.Text('f'))
}

func TestLogout(t *testing.T) {
	sess := newStore(t).NewSession()
	login(t, sess, fixture.RoleStandard)
	require.NoError(t, sess.Add("Sauce Labs Onesie"))

	sess.Logout()
	assert.False(t, sess.Authenticated())
	assert.Equal(t, ScreenLogin, sess.Visit(ScreenCart))
}

func TestCatalog_FollowsSortOrder(t *testing.T) {
	sess := newStore(t).NewSession()
	catalog := fixture.Example().Products
	for _, o := range oracle.SortOrders {
		sess.SetSort(o)
		assert.Equal(t, oracle.Names(oracle.Sort(catalog, o)), oracle.Names(sess.Catalog()))
	}
}

func TestStore_Sessions(t *testing.T) {
	st := newStore(t)
	a, b := st.NewSession(), st.NewSession()
	assert.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, st.Len())

	got, err := st.Session(a.Token)
	require.NoError(t, err)
	assert.Same(t, a, got)

	st.Drop(a.Token)
	_, err = st.Session(a.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_IdleSessionsExpire(t *testing.T) {
	st := NewStore(fixture.Example(), WithGlitch(0), WithIdleTimeout(time.Minute))
	now := time.Unix(1_700_000_000, 0)
	st.now = func() time.Time { return now }

	stale, active := st.NewSession(), st.NewSession()
	now = now.Add(45 * time.Second)
	_, err := st.Session(active.Token)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = st.Session(stale.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, st.Len())

	now = now.Add(2 * time.Minute)
	st.NewSession()
	assert.Equal(t, 1, st.Len())
}

func TestBanner_ScopedToScreen(t *testing.T) {
	sess := newStore(t).NewSession()
	login(t, sess, fixture.RoleStandard)
	sess.Visit(ScreenCart)
	require.NoError(t, sess.Checkout())
	require.Error(t, sess.SubmitInfo(fixture.PersonalInfo{}))
	assert.Equal(t, MsgFirstNameRequired, sess.Banner())

	sess.Visit(ScreenCheckoutInfo)
	assert.Equal(t, MsgFirstNameRequired, sess.Banner())
	sess.Visit(ScreenCart)
	assert.Empty(t, sess.Banner())

	sess.Visit(ScreenCheckoutInfo)
	require.Error(t, sess.SubmitInfo(fixture.PersonalInfo{}))
	sess.Logout()
	assert.Empty(t, sess.Banner())
	assert.Equal(t, ScreenLogin, sess.Visit(ScreenLogin))
	assert.Empty(t, sess.Banner())
}
