// Package drivertest provides an in-memory driver.Driver for unit tests.
package drivertest

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
)

// ClickFunc reacts to a click on an element.
type ClickFunc func(f *Fake, index int) error

// Fake is a scripted element table. Tests populate it with Set and wire
// behavior with OnClick.
type Fake struct {
	mu       sync.Mutex
	base     *url.URL
	loc      *url.URL
	elems    map[string][]driver.Node
	onClick  map[string]ClickFunc
	queries  map[string]int
	clicks   []string
	viewport [2]int
	closed   bool
}

// New returns a Fake positioned at base.
func New(base string) *Fake {
	u, err := url.Parse(base)
	if err != nil {
		panic(err)
	}
	return &Fake{
		base:    u,
		loc:     u,
		elems:   make(map[string][]driver.Node),
		onClick: make(map[string]ClickFunc),
		queries: make(map[string]int),
	}
}

// Set replaces the elements carrying id.
func (f *Fake) Set(id string, nodes ...driver.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elems[id] = nodes
}

// SetAfter makes nodes appear after d, simulating asynchronous rendering.
func (f *Fake) SetAfter(d time.Duration, id string, nodes ...driver.Node) {
	time.AfterFunc(d, func() { f.Set(id, nodes...) })
}

// Remove deletes every element carrying id.
func (f *Fake) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elems, id)
}

// RemoveAfter deletes id after d.
func (f *Fake) RemoveAfter(d time.Duration, id string) {
	time.AfterFunc(d, func() { f.Remove(id) })
}

// OnClick registers fn for clicks on id. fn runs without the lock held.
func (f *Fake) OnClick(id string, fn ClickFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClick[id] = fn
}

// SetPath moves the fake to path relative to base.
func (f *Fake) SetPath(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loc = f.base.ResolveReference(&url.URL{Path: path})
}

// Queries reports how many times id was queried.
func (f *Fake) Queries(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[id]
}

// Clicks lists "id#index" for every click, in order.
func (f *Fake) Clicks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}

// Value returns the current value of id at index 0.
func (f *Fake) Value(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if nodes := f.elems[id]; len(nodes) > 0 {
		return nodes[0].Value
	}
	return ""
}

// Viewport returns the last viewport set.
func (f *Fake) Viewport() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewport[0], f.viewport[1]
}

func (f *Fake) Navigate(_ context.Context, rawURL string) error {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return driver.ErrClosed
	}
	f.loc = f.base.ResolveReference(ref)
	return nil
}

func (f *Fake) SetViewport(_ context.Context, width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewport = [2]int{width, height}
	return nil
}

func (f *Fake) Location(context.Context) (*url.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.loc
	return &u, nil
}

func (f *Fake) Query(_ context.Context, id string) ([]driver.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, driver.ErrClosed
	}
	f.queries[id]++
	return append([]driver.Node(nil), f.elems[id]...), nil
}

func (f *Fake) Click(_ context.Context, id string, index int) error {
	f.mu.Lock()
	if err := f.check(id, index); err != nil {
		f.mu.Unlock()
		return err
	}
	f.clicks = append(f.clicks, fmt.Sprintf("%s#%d", id, index))
	fn := f.onClick[id]
	f.mu.Unlock()

	if fn != nil {
		return fn(f, index)
	}
	return nil
}

func (f *Fake) Type(_ context.Context, id string, index int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(id, index); err != nil {
		return err
	}
	f.elems[id][index].Value += text
	return nil
}

func (f *Fake) Select(_ context.Context, id string, index int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(id, index); err != nil {
		return err
	}
	f.elems[id][index].Value = value
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *Fake) check(id string, index int) error {
	if f.closed {
		return driver.ErrClosed
	}
	if index < 0 || index >= len(f.elems[id]) {
		return fmt.Errorf("%s[%d]: %w", id, index, driver.ErrDetached)
	}
	return nil
}

var _ driver.Driver = (*Fake)(nil)
