// Package resolver turns logical identifiers into live element handles,
// polling the driver until the element appears or the timeout elapses.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/poll"
)

const (
	DefaultTimeout  = 4 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("element not found")

// NotFoundError is the resolution timeout: id never appeared within Timeout.
type NotFoundError struct {
	ID       string
	Timeout  time.Duration
	Attempts int
	Last     error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("resolve %s: not found after %v (%d attempts)", driver.Selector(e.ID), e.Timeout, e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Last }

type options struct {
	timeout  time.Duration
	interval time.Duration
}

// Option overrides resolution settings for one resolver or one call.
type Option func(*options)

// WithTimeout bounds how long resolution polls.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithInterval sets the delay between polls.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// Resolver resolves logical identifiers against one driver session.
type Resolver struct {
	drv  driver.Driver
	opts options
	log  *slog.Logger
}

// New returns a Resolver with the default 4s timeout and 100ms interval.
func New(drv driver.Driver, opts ...Option) *Resolver {
	o := options{timeout: DefaultTimeout, interval: DefaultInterval}
	for _, fn := range opts {
		fn(&o)
	}
	return &Resolver{drv: drv, opts: o, log: slog.Default()}
}

// WithLogger sets the logger used for resolution diagnostics.
func (r *Resolver) WithLogger(l *slog.Logger) *Resolver {
	if l != nil {
		r.log = l
	}
	return r
}

// Driver returns the underlying session.
func (r *Resolver) Driver() driver.Driver { return r.drv }

func (r *Resolver) callOptions(opts []Option) options {
	o := r.opts
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Query takes a single snapshot of id without waiting.
func (r *Resolver) Query(ctx context.Context, id string) ([]driver.Node, error) {
	return r.drv.Query(ctx, id)
}

// Texts returns the trimmed text of every element currently carrying id.
func (r *Resolver) Texts(ctx context.Context, id string) ([]string, error) {
	nodes, err := r.drv.Query(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = strings.TrimSpace(n.Text)
	}
	return out, nil
}

// wait polls until at least one element carries id.
func (r *Resolver) wait(ctx context.Context, id string, o options) ([]driver.Node, error) {
	var found []driver.Node
	attempts, err := poll.Until(ctx, o.interval, o.timeout, func(ctx context.Context) (bool, error) {
		nodes, err := r.drv.Query(ctx, id)
		if err != nil {
			if errors.Is(err, driver.ErrClosed) {
				return false, poll.Permanent(err)
			}
			return false, err
		}
		found = nodes
		return len(nodes) > 0, nil
	})
	if err != nil {
		var te *poll.TimeoutError
		if errors.As(err, &te) {
			r.log.Debug("resolve timed out", "id", id, "timeout", o.timeout, "attempts", attempts)
			return nil, &NotFoundError{ID: id, Timeout: o.timeout, Attempts: te.Attempts, Last: te.Last}
		}
		return nil, fmt.Errorf("resolve %s: %w", driver.Selector(id), err)
	}
	return found, nil
}

// Get waits for id and returns a handle to the first matching element.
func (r *Resolver) Get(ctx context.Context, id string, opts ...Option) (*Element, error) {
	nodes, err := r.wait(ctx, id, r.callOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Element{r: r, ID: id, Index: 0, Node: nodes[0]}, nil
}

// All waits for at least one element carrying id and returns the collection
// as observed at that moment.
func (r *Resolver) All(ctx context.Context, id string, opts ...Option) (*Elements, error) {
	nodes, err := r.wait(ctx, id, r.callOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Elements{r: r, id: id, nodes: nodes}, nil
}

// Click resolves id and clicks the first match.
func (r *Resolver) Click(ctx context.Context, id string, opts ...Option) error {
	el, err := r.Get(ctx, id, opts...)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// Type resolves id and types text into the first match.
func (r *Resolver) Type(ctx context.Context, id, text string, opts ...Option) error {
	el, err := r.Get(ctx, id, opts...)
	if err != nil {
		return err
	}
	return el.Type(ctx, text)
}

// Select resolves id and selects value on the first match.
func (r *Resolver) Select(ctx context.Context, id, value string, opts ...Option) error {
	el, err := r.Get(ctx, id, opts...)
	if err != nil {
		return err
	}
	return el.Select(ctx, value)
}
