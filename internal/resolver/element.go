package resolver

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
)

// ErrConsumed is returned when an Elements sequence is traversed twice.
var ErrConsumed = errors.New("element sequence already consumed")

// Element addresses one element by identifier and DOM index. Node is the
// observation taken at resolution time; actions re-locate the element.
type Element struct {
	r     *Resolver
	ID    string
	Index int
	Node  driver.Node
}

// Text is the trimmed text observed at resolution time.
func (e *Element) Text() string { return strings.TrimSpace(e.Node.Text) }

func (e *Element) Click(ctx context.Context) error {
	if err := e.r.drv.Click(ctx, e.ID, e.Index); err != nil {
		return fmt.Errorf("click %s: %w", e, err)
	}
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	if err := e.r.drv.Type(ctx, e.ID, e.Index, text); err != nil {
		return fmt.Errorf("type into %s: %w", e, err)
	}
	return nil
}

func (e *Element) Select(ctx context.Context, value string) error {
	if err := e.r.drv.Select(ctx, e.ID, e.Index, value); err != nil {
		return fmt.Errorf("select %q on %s: %w", value, e, err)
	}
	return nil
}

func (e *Element) String() string {
	return fmt.Sprintf("%s[%d]", driver.Selector(e.ID), e.Index)
}

// Elements is a finite, single-use sequence of handles in DOM order.
// Handles are built lazily as the sequence is walked.
type Elements struct {
	r     *Resolver
	id    string
	nodes []driver.Node
	used  atomic.Bool
}

// Len is the number of elements observed at resolution time.
func (es *Elements) Len() int { return len(es.nodes) }

// All returns the sequence as an iterator. It yields nothing once the
// sequence has been consumed.
func (es *Elements) All() iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		if es.used.Swap(true) {
			return
		}
		for i, n := range es.nodes {
			if !yield(&Element{r: es.r, ID: es.id, Index: i, Node: n}) {
				return
			}
		}
	}
}

// Each calls fn for every element until fn returns false.
func (es *Elements) Each(fn func(*Element) bool) error {
	if es.used.Load() {
		return fmt.Errorf("%s: %w", driver.Selector(es.id), ErrConsumed)
	}
	for el := range es.All() {
		if !fn(el) {
			break
		}
	}
	return nil
}
