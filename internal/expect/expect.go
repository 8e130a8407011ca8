// Package expect evaluates predicates against live UI state, re-sampling the
// source on every attempt until the predicate holds or the timeout elapses.
package expect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/poll"
)

const (
	DefaultTimeout  = 4 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("assertion timeout")

// TimeoutError reports a predicate that never held. Observed is the last
// value seen, rendered by the predicate.
type TimeoutError struct {
	Subject   string
	Predicate string
	Timeout   time.Duration
	Attempts  int
	Observed  string
	Last      error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("expected %s to %s within %v (%d attempts); last observed: %s",
		e.Subject, e.Predicate, e.Timeout, e.Attempts, e.Observed)
	if e.Last != nil {
		msg += "; last error: " + e.Last.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

// Source produces a fresh observation on every call.
type Source[T any] func(ctx context.Context) (T, error)

// Predicate decides whether an observation satisfies an expectation and
// renders the observation for diagnostics.
type Predicate[T any] struct {
	Name  string
	Match func(v T) (ok bool, observed string)
}

type options struct {
	timeout  time.Duration
	interval time.Duration
}

// Option overrides engine settings.
type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// Engine holds the polling budget for assertions.
type Engine struct {
	opts options
	log  *slog.Logger
}

// New returns an Engine with a 4s timeout and 100ms interval.
func New(opts ...Option) *Engine {
	e := &Engine{opts: options{timeout: DefaultTimeout, interval: DefaultInterval}, log: slog.Default()}
	for _, fn := range opts {
		fn(&e.opts)
	}
	return e
}

// With returns a copy of e with opts applied.
func (e *Engine) With(opts ...Option) *Engine {
	c := *e
	for _, fn := range opts {
		fn(&c.opts)
	}
	return &c
}

// WithLogger returns a copy of e logging to l.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	c := *e
	if l != nil {
		c.log = l
	}
	return &c
}

// Timeout is the engine's polling budget.
func (e *Engine) Timeout() time.Duration { return e.opts.timeout }

// Check polls src until p holds. Source errors are treated as transient and
// reported if the window closes.
func Check[T any](ctx context.Context, e *Engine, subject string, src Source[T], p Predicate[T]) error {
	var observed string
	attempts, err := poll.Until(ctx, e.opts.interval, e.opts.timeout, func(ctx context.Context) (bool, error) {
		v, err := src(ctx)
		if err != nil {
			if errors.Is(err, driver.ErrClosed) {
				return false, poll.Permanent(err)
			}
			return false, err
		}
		ok, obs := p.Match(v)
		observed = obs
		return ok, nil
	})
	if err == nil {
		return nil
	}
	var te *poll.TimeoutError
	if errors.As(err, &te) {
		e.log.Debug("assertion timed out", "subject", subject, "predicate", p.Name, "attempts", attempts, "observed", observed)
		if observed == "" {
			observed = "(nothing)"
		}
		return &TimeoutError{
			Subject:   subject,
			Predicate: p.Name,
			Timeout:   e.opts.timeout,
			Attempts:  te.Attempts,
			Observed:  observed,
			Last:      te.Last,
		}
	}
	return fmt.Errorf("expect %s to %s: %w", subject, p.Name, err)
}

// Querier is the single-shot element lookup the engine samples.
type Querier interface {
	Query(ctx context.Context, id string) ([]driver.Node, error)
}

// Element asserts that every predicate holds for the elements carrying id.
// Predicates are combined and evaluated against the same snapshot.
func (e *Engine) Element(ctx context.Context, q Querier, id string, preds ...Predicate[[]driver.Node]) error {
	src := func(ctx context.Context) ([]driver.Node, error) { return q.Query(ctx, id) }
	return Check(ctx, e, driver.Selector(id), src, All(preds...))
}

// Locator exposes the current document location.
type Locator interface {
	Location(ctx context.Context) (*url.URL, error)
}

// Path asserts the location pathname.
func (e *Engine) Path(ctx context.Context, loc Locator, want string) error {
	src := func(ctx context.Context) (string, error) {
		u, err := loc.Location(ctx)
		if err != nil {
			return "", err
		}
		return u.Path, nil
	}
	return Check(ctx, e, "location.pathname", src, Equal(want))
}
