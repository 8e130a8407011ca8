package scenario

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver/drivertest"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
)

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeFactory struct {
	sessions []*drivertest.Fake
}

func (f *fakeFactory) NewSession(context.Context) (driver.Driver, error) {
	d := drivertest.New("http://shop.test/")
	f.sessions = append(f.sessions, d)
	return d, nil
}

func TestRunner_FreshSessionPerScenario(t *testing.T) {
	ff := &fakeFactory{}
	r := NewRunner(ff, FixtureFrom(""), WithBaseURL("http://shop.test/"), WithLogger(quietLog()))

	var seen []*fixture.Fixture
	sc := Scenario{Suite: "S", Name: "n", Run: func(ctx context.Context, e *Env) error {
		seen = append(seen, e.Fixture)
		require.NotNil(t, e.Login)
		require.NotNil(t, e.Cart)
		require.NotNil(t, e.Inventory)
		return nil
	}}

	results := r.RunAll(context.Background(), []Scenario{sc, sc})
	require.Len(t, results, 2)
	require.Len(t, ff.sessions, 2)
	assert.NotEqual(t, results[0].ID, results[1].ID)

	for i, s := range ff.sessions {
		assert.True(t, results[i].Passed)
		w, h := s.Viewport()
		assert.Equal(t, 1280, w)
		assert.Equal(t, 720, h)
		_, err := s.Query(context.Background(), "title")
		assert.ErrorIs(t, err, driver.ErrClosed, "session %d left open", i)
	}
	assert.Len(t, seen, 2)
	assert.Nil(t, r.lease.Get(SessionKey), "lease released")
}

func TestRunner_ErrorFailsScenario(t *testing.T) {
	r := NewRunner(&fakeFactory{}, FixtureFrom(""), WithLogger(quietLog()))
	boom := errors.New("boom")

	res := r.Run(context.Background(), Scenario{Suite: "S", Name: "fails", Run: func(context.Context, *Env) error { return boom }})
	assert.False(t, res.Passed)
	assert.ErrorIs(t, res.Err, boom)

	res = r.Run(context.Background(), Scenario{Suite: "S", Name: "panics", Run: func(context.Context, *Env) error { panic("nil map") }})
	assert.False(t, res.Passed)
	assert.Contains(t, res.Err.Error(), "nil map")
}

func TestRunner_ScenarioTimeout(t *testing.T) {
	r := NewRunner(&fakeFactory{}, FixtureFrom(""), WithScenarioTimeout(30*time.Millisecond), WithLogger(quietLog()))
	res := r.Run(context.Background(), Scenario{Suite: "S", Name: "hangs", Run: func(ctx context.Context, _ *Env) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	assert.False(t, res.Passed)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestRunner_LeaseHeldElsewhere(t *testing.T) {
	l := NewLease()
	require.NoError(t, l.TryLock(SessionKey, "other-run", time.Minute))

	ff := &fakeFactory{}
	r := NewRunner(ff, FixtureFrom(""), WithLease(l), WithLogger(quietLog()))
	res := r.Run(context.Background(), Scenario{Suite: "S", Name: "n", Run: func(context.Context, *Env) error { return nil }})
	assert.ErrorIs(t, res.Err, ErrLeaseHeld)
	assert.Empty(t, ff.sessions)
}

func TestRunner_FixtureErrorFails(t *testing.T) {
	r := NewRunner(&fakeFactory{}, FixtureFrom("testdata/missing.yaml"), WithLogger(quietLog()))
	res := r.Run(context.Background(), Scenario{Suite: "S", Name: "n", Run: func(context.Context, *Env) error { return nil }})
	assert.False(t, res.Passed)
	assert.Contains(t, res.Err.Error(), "fixture")
}

func TestRunAll_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(&fakeFactory{}, FixtureFrom(""), WithLogger(quietLog()))
	sc := Scenario{Suite: "S", Name: "n", Run: func(context.Context, *Env) error { cancel(); return nil }}

	results := r.RunAll(ctx, []Scenario{sc, sc, sc})
	assert.Len(t, results, 1)
}

func TestGuardViolation(t *testing.T) {
	inner := errors.New("timed out")
	err := error(&GuardViolation{Path: "/cart.html", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "guard did not redirect /cart.html to login: timed out", err.Error())
}

func TestSelect(t *testing.T) {
	all := Catalog()
	assert.Len(t, Select(all, "", ""), len(all))

	login := Select(all, "login", "")
	require.NotEmpty(t, login)
	for _, sc := range login {
		assert.Equal(t, SuiteLogin, sc.Suite)
	}

	sorts := Select(all, SuiteProductList, "sort")
	assert.Len(t, sorts, 4)
	assert.Empty(t, Select(all, "nope", ""))
}

func TestCatalog_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, sc := range Catalog() {
		require.NotNil(t, sc.Run, sc.String())
		assert.False(t, seen[sc.String()], "duplicate %s", sc)
		seen[sc.String()] = true
	}
}

func TestSubtotal(t *testing.T) {
	f := fixture.Example()
	got, err := subtotal(f, []string{backpack, bikeLight, boltTShirt})
	require.NoError(t, err)
	assert.Equal(t, "55.97", got)

	got, err = subtotal(f, []string{backpack})
	require.NoError(t, err)
	assert.Equal(t, "29.99", got)

	_, err = subtotal(f, []string{"Sauce Labs Hat"})
	assert.ErrorIs(t, err, fixture.ErrUnknownProduct)
}
