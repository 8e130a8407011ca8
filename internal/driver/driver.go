// Package driver defines the boundary to the browser-automation runtime.
//
// Elements are addressed by logical identifier (the value of their data-test
// attribute) plus a DOM-order index. Adapters re-locate the element on every
// call; no handle outlives a single call.
package driver

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// Attribute is the test-oriented attribute carrying logical identifiers.
const Attribute = "data-test"

var (
	// ErrDetached means the addressed element no longer exists.
	ErrDetached = errors.New("element detached from the document")
	// ErrNotInteractable means the element exists but cannot take the action.
	ErrNotInteractable = errors.New("element not interactable")
	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("driver session closed")
)

// Node is a point-in-time observation of one element.
type Node struct {
	Tag     string `json:"tag"`
	Text    string `json:"text"`
	Value   string `json:"value,omitempty"`
	Visible bool   `json:"visible"`
}

// Driver is one isolated browser session. Implementations are not required to
// be safe for concurrent use; a session is owned by exactly one scenario.
type Driver interface {
	// Navigate loads rawURL, resolving relative references against the base URL.
	Navigate(ctx context.Context, rawURL string) error
	SetViewport(ctx context.Context, width, height int) error
	// Location returns the URL of the current document.
	Location(ctx context.Context) (*url.URL, error)
	// Query returns every element currently carrying id, in DOM order. An
	// absent element yields an empty slice, not an error.
	Query(ctx context.Context, id string) ([]Node, error)
	Click(ctx context.Context, id string, index int) error
	// Type appends text to the value of an input.
	Type(ctx context.Context, id string, index int, text string) error
	// Select picks the option of a select element by value or label.
	Select(ctx context.Context, id string, index int, value string) error
	Close() error
}

// Factory opens a fresh, unauthenticated session.
type Factory interface {
	NewSession(ctx context.Context) (Driver, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (Driver, error)

func (f FactoryFunc) NewSession(ctx context.Context) (Driver, error) { return f(ctx) }

// Selector renders the CSS attribute selector for a logical identifier.
func Selector(id string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `[` + Attribute + `="` + r.Replace(id) + `"]`
}
