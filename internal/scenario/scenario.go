// Package scenario runs acceptance scenarios against a storefront. Every
// scenario gets a fresh unauthenticated browser session, the loaded fixture
// and page objects bound to that session; nothing is shared between runs.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/config"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/expect"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/pages"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/resolver"
)

// SessionKey is the lease key for the one browser session.
const SessionKey = "browser-session"

// DefaultTimeout bounds a whole scenario.
const DefaultTimeout = 2 * time.Minute

// Env is everything a scenario body may touch.
type Env struct {
	Driver    driver.Driver
	Resolve   *resolver.Resolver
	Expect    *expect.Engine
	Fixture   *fixture.Fixture
	Login     *pages.LoginPage
	Cart      *pages.CartPage
	Inventory *pages.InventoryPage
	Log       *slog.Logger
}

// Scenario is one named acceptance check.
type Scenario struct {
	Suite string
	Name  string
	Run   func(ctx context.Context, env *Env) error
}

func (s Scenario) String() string { return s.Suite + " / " + s.Name }

// Result is the outcome of one scenario run.
type Result struct {
	ID       uuid.UUID
	Suite    string
	Name     string
	Passed   bool
	Err      error
	Duration time.Duration
}

// GuardViolation reports a protected screen that did not send an
// unauthenticated visitor back to the login screen.
type GuardViolation struct {
	Path string
	Err  error
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("guard did not redirect %s to login: %v", e.Path, e.Err)
}

func (e *GuardViolation) Unwrap() error { return e.Err }

// FixtureSource yields the fixture for one run.
type FixtureSource func() (*fixture.Fixture, error)

// FixtureFrom loads path on every call, or returns the embedded example
// fixture when path is empty.
func FixtureFrom(path string) FixtureSource {
	return func() (*fixture.Fixture, error) {
		if path == "" {
			return fixture.Example(), nil
		}
		return fixture.Load(path)
	}
}

// Runner executes scenarios one at a time.
type Runner struct {
	factory  driver.Factory
	fixtures FixtureSource
	baseURL  string
	width    int
	height   int
	timeout  time.Duration
	resolve  []resolver.Option
	expect   []expect.Option
	lease    *Lease
	log      *slog.Logger
}

type Option func(*Runner)

func WithBaseURL(u string) Option { return func(r *Runner) { r.baseURL = u } }

// WithScenarioTimeout bounds each scenario, including session setup.
func WithScenarioTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPolling sets the default resolve/assert timeout and poll interval.
func WithPolling(timeout, interval time.Duration) Option {
	return func(r *Runner) {
		if timeout <= 0 || interval <= 0 {
			return
		}
		r.resolve = []resolver.Option{resolver.WithTimeout(timeout), resolver.WithInterval(interval)}
		r.expect = []expect.Option{expect.WithTimeout(timeout), expect.WithInterval(interval)}
	}
}

// WithLease shares a lease between runners so only one owns the browser.
func WithLease(l *Lease) Option { return func(r *Runner) { r.lease = l } }

func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.log = l } }

func NewRunner(f driver.Factory, fixtures FixtureSource, opts ...Option) *Runner {
	r := &Runner{
		factory:  f,
		fixtures: fixtures,
		baseURL:  config.DefaultBaseURL,
		width:    config.ViewportWidth,
		height:   config.ViewportHeight,
		timeout:  DefaultTimeout,
		lease:    NewLease(),
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewRunnerFromConfig wires the runtime configuration into a Runner.
func NewRunnerFromConfig(cfg *config.RuntimeConfig, f driver.Factory, log *slog.Logger) *Runner {
	return NewRunner(f, FixtureFrom(cfg.FixturePath),
		WithBaseURL(cfg.BaseURL),
		WithScenarioTimeout(cfg.ScenarioTimeout),
		WithPolling(cfg.Timeout, cfg.PollInterval),
		WithLogger(log),
	)
}

// Run executes sc in a fresh session. Any error fails the scenario.
func (r *Runner) Run(ctx context.Context, sc Scenario) Result {
	res := Result{ID: uuid.New(), Suite: sc.Suite, Name: sc.Name}
	log := r.log.With("scenario", sc.String(), "run", res.ID.String())

	start := time.Now()
	res.Err = r.run(ctx, sc, res.ID.String(), log)
	res.Duration = time.Since(start)
	res.Passed = res.Err == nil

	if res.Passed {
		log.Info("scenario passed", "duration", res.Duration)
	} else {
		log.Warn("scenario failed", "duration", res.Duration, "err", res.Err)
	}
	return res
}

func (r *Runner) run(ctx context.Context, sc Scenario, owner string, log *slog.Logger) (err error) {
	if err := r.lease.TryLock(SessionKey, owner, r.timeout+time.Minute); err != nil {
		return err
	}
	defer func() {
		if uerr := r.lease.Unlock(SessionKey, owner); uerr != nil {
			log.Warn("lease release failed", "err", uerr)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	drv, err := r.factory.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil && !errors.Is(cerr, driver.ErrClosed) {
			log.Warn("close session failed", "err", cerr)
		}
	}()

	if err := drv.Navigate(ctx, r.baseURL); err != nil {
		return fmt.Errorf("visit %s: %w", r.baseURL, err)
	}
	if err := drv.SetViewport(ctx, r.width, r.height); err != nil {
		return fmt.Errorf("viewport: %w", err)
	}
	fx, err := r.fixtures()
	if err != nil {
		return fmt.Errorf("fixture: %w", err)
	}

	env := r.newEnv(drv, fx, log)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scenario panicked: %v", p)
		}
	}()
	return sc.Run(ctx, env)
}

func (r *Runner) newEnv(drv driver.Driver, fx *fixture.Fixture, log *slog.Logger) *Env {
	res := resolver.New(drv, r.resolve...).WithLogger(log)
	return &Env{
		Driver:    drv,
		Resolve:   res,
		Expect:    expect.New(r.expect...).WithLogger(log),
		Fixture:   fx,
		Login:     pages.NewLoginPage(res),
		Cart:      pages.NewCartPage(res),
		Inventory: pages.NewInventoryPage(res),
		Log:       log,
	}
}

// RunAll runs scenarios in order and stops early only when ctx ends.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		results = append(results, r.Run(ctx, sc))
	}
	return results
}
