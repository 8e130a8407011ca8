// Package httpdriver is a JavaScript-free driver.Driver: it fetches pages
// over HTTP, keeps cookies per session and interprets links and forms the
// way a browser would.
package httpdriver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
)

// Factory opens cookie-isolated sessions against Base.
type Factory struct {
	Base      string
	Transport http.RoundTripper
	Log       *slog.Logger
}

func (f *Factory) NewSession(ctx context.Context) (driver.Driver, error) {
	return New(f.Base, f.Transport, f.Log)
}

// Driver is one browsing session. It is safe for concurrent use.
type Driver struct {
	base   *url.URL
	client *http.Client
	log    *slog.Logger

	mu       sync.Mutex
	loc      *url.URL
	doc      *goquery.Document
	viewport [2]int
	closed   bool
}

// New opens a session on base with an empty cookie jar. A nil transport
// uses http.DefaultTransport.
func New(base string, transport http.RoundTripper, log *slog.Logger) (*Driver, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		base:   u,
		client: &http.Client{Jar: jar, Transport: transport},
		log:    log,
		loc:    u,
	}, nil
}

func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return driver.ErrClosed
	}
	return d.load(ctx, http.MethodGet, d.base.ResolveReference(ref), nil)
}

// load fetches target and makes the response the current document. The
// caller holds d.mu.
func (d *Driver) load(ctx context.Context, method string, target *url.URL, form url.Values) error {
	var body io.Reader
	if form != nil && method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", resp.Request.URL, err)
	}
	d.log.Debug("page loaded", "method", method, "url", resp.Request.URL.String(), "status", resp.StatusCode)
	d.loc = resp.Request.URL
	d.doc = doc
	return nil
}

// SetViewport records the size; layout does not apply without a renderer.
func (d *Driver) SetViewport(_ context.Context, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = [2]int{width, height}
	return nil
}

// Viewport returns the last recorded size.
func (d *Driver) Viewport() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport[0], d.viewport[1]
}

func (d *Driver) Location(context.Context) (*url.URL, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, driver.ErrClosed
	}
	u := *d.loc
	return &u, nil
}

func (d *Driver) Query(_ context.Context, id string) ([]driver.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, driver.ErrClosed
	}
	if d.doc == nil {
		return nil, nil
	}
	var nodes []driver.Node
	d.doc.Find(driver.Selector(id)).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, node(s))
	})
	return nodes, nil
}

func (d *Driver) Click(ctx context.Context, id string, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := d.element(id, index)
	if err != nil {
		return err
	}
	if !visible(sel) {
		return fmt.Errorf("%s[%d] is hidden: %w", driver.Selector(id), index, driver.ErrNotInteractable)
	}

	target := sel.Closest("a[href], button, input[type=submit], input[type=button], input[type=image]")
	if target.Length() == 0 {
		return nil
	}
	if goquery.NodeName(target) == "a" {
		href, _ := target.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return fmt.Errorf("follow %q: %w", href, err)
		}
		return d.load(ctx, http.MethodGet, d.loc.ResolveReference(ref), nil)
	}
	if _, disabled := target.Attr("disabled"); disabled {
		return fmt.Errorf("%s[%d] is disabled: %w", driver.Selector(id), index, driver.ErrNotInteractable)
	}
	if kind, _ := target.Attr("type"); kind == "button" || kind == "reset" {
		return nil
	}
	form := target.Closest("form")
	if form.Length() == 0 {
		return nil
	}
	return d.submit(ctx, form, target)
}

func (d *Driver) Type(_ context.Context, id string, index int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := d.element(id, index)
	if err != nil {
		return err
	}
	if _, disabled := sel.Attr("disabled"); disabled || !visible(sel) {
		return fmt.Errorf("%s[%d]: %w", driver.Selector(id), index, driver.ErrNotInteractable)
	}
	switch goquery.NodeName(sel) {
	case "input":
		cur, _ := sel.Attr("value")
		sel.SetAttr("value", cur+text)
	case "textarea":
		sel.SetText(sel.Text() + text)
	default:
		return fmt.Errorf("%s[%d] is a <%s>, not a text field: %w",
			driver.Selector(id), index, goquery.NodeName(sel), driver.ErrNotInteractable)
	}
	return nil
}

// Select picks the option whose value or label is value. A select that
// submits its form on change is submitted.
func (d *Driver) Select(ctx context.Context, id string, index int, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := d.element(id, index)
	if err != nil {
		return err
	}
	if goquery.NodeName(sel) != "select" {
		return fmt.Errorf("%s[%d] is not a select: %w", driver.Selector(id), index, driver.ErrNotInteractable)
	}

	options := sel.Find("option")
	chosen := options.FilterFunction(func(_ int, o *goquery.Selection) bool {
		v, ok := o.Attr("value")
		if !ok {
			v = o.Text()
		}
		return v == value || strings.TrimSpace(o.Text()) == value
	}).First()
	if chosen.Length() == 0 {
		return fmt.Errorf("%s[%d] has no option %q: %w", driver.Selector(id), index, value, driver.ErrNotInteractable)
	}
	options.RemoveAttr("selected")
	chosen.SetAttr("selected", "selected")

	if onchange, _ := sel.Attr("onchange"); strings.Contains(onchange, "submit()") {
		if form := sel.Closest("form"); form.Length() > 0 {
			return d.submit(ctx, form, nil)
		}
	}
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.doc = nil
	d.client.CloseIdleConnections()
	return nil
}

// element re-locates id at index in the current document. The caller holds
// d.mu.
func (d *Driver) element(id string, index int) (*goquery.Selection, error) {
	if d.closed {
		return nil, driver.ErrClosed
	}
	if d.doc == nil {
		return nil, fmt.Errorf("%s[%d]: no document loaded: %w", driver.Selector(id), index, driver.ErrDetached)
	}
	sel := d.doc.Find(driver.Selector(id))
	if index < 0 || index >= sel.Length() {
		return nil, fmt.Errorf("%s[%d]: %w", driver.Selector(id), index, driver.ErrDetached)
	}
	return sel.Eq(index), nil
}

var _ driver.Driver = (*Driver)(nil)
