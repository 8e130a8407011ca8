package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/poll"
)

// Session is one Chrome tab in its own browser context. It implements
// driver.Driver.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	base   *url.URL
	log    *slog.Logger
	settle time.Duration

	mu     sync.Mutex
	closed bool
}

var _ driver.Driver = (*Session)(nil)

// run executes actions in the tab, aborting when ctx ends.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return driver.ErrClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate %q: %w", rawURL, err)
	}
	target := s.base.ResolveReference(ref).String()
	s.log.Debug("navigate", "url", target)

	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := page.Navigate(target).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("%s", errText)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	return s.waitReady(ctx, 30*time.Second)
}

// waitReady polls document.readyState until the document is usable.
func (s *Session) waitReady(ctx context.Context, timeout time.Duration) error {
	_, err := poll.Until(ctx, 50*time.Millisecond, timeout, func(ctx context.Context) (bool, error) {
		var state string
		if err := s.run(ctx, chromedp.Evaluate("document.readyState", &state)); err != nil {
			if errors.Is(err, driver.ErrClosed) {
				return false, poll.Permanent(err)
			}
			return false, err
		}
		return state == "interactive" || state == "complete", nil
	})
	return err
}

func (s *Session) SetViewport(ctx context.Context, width, height int) error {
	return s.run(ctx, emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false))
}

func (s *Session) Location(ctx context.Context) (*url.URL, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return nil, err
	}
	return url.Parse(loc)
}

func (s *Session) Query(ctx context.Context, id string) ([]driver.Node, error) {
	var nodes []driver.Node
	if err := s.run(ctx, chromedp.Evaluate(queryScript(id), &nodes)); err != nil {
		return nil, fmt.Errorf("query %s: %w", driver.Selector(id), err)
	}
	return nodes, nil
}

// elementResult is what every element script evaluates to.
type elementResult struct {
	Status string  `json:"status"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (s *Session) Click(ctx context.Context, id string, index int) error {
	var t elementResult
	if err := s.run(ctx, chromedp.Evaluate(elementScript(id, index, clickBody), &t)); err != nil {
		return fmt.Errorf("click %s: %w", driver.Selector(id), err)
	}
	if err := statusErr(t.Status); err != nil {
		return fmt.Errorf("click %s[%d]: %w", driver.Selector(id), index, err)
	}
	if err := s.run(ctx, chromedp.MouseClickXY(t.X, t.Y)); err != nil {
		return fmt.Errorf("click %s: %w", driver.Selector(id), err)
	}

	// A click may start a navigation; give it a moment to begin before
	// waiting for the next document.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.settle):
	}
	return s.waitReady(ctx, 30*time.Second)
}

func (s *Session) Type(ctx context.Context, id string, index int, text string) error {
	var r elementResult
	if err := s.run(ctx, chromedp.Evaluate(elementScript(id, index, focusBody), &r)); err != nil {
		return fmt.Errorf("type %s: %w", driver.Selector(id), err)
	}
	if err := statusErr(r.Status); err != nil {
		return fmt.Errorf("type %s[%d]: %w", driver.Selector(id), index, err)
	}
	return s.run(ctx, chromedp.KeyEvent(text))
}

func (s *Session) Select(ctx context.Context, id string, index int, value string) error {
	var r elementResult
	if err := s.run(ctx, chromedp.Evaluate(selectScript(id, index, value), &r)); err != nil {
		return fmt.Errorf("select %s: %w", driver.Selector(id), err)
	}
	if err := statusErr(r.Status); err != nil {
		return fmt.Errorf("select %q in %s[%d]: %w", value, driver.Selector(id), index, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.settle):
	}
	return s.waitReady(ctx, 30*time.Second)
}

// Close closes the tab and its browser context.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return nil
}

func statusErr(status string) error {
	switch status {
	case "ok":
		return nil
	case "detached":
		return driver.ErrDetached
	case "hidden", "disabled", "no-option", "not-select":
		return fmt.Errorf("%w: %s", driver.ErrNotInteractable, status)
	default:
		return fmt.Errorf("unexpected element status %q", status)
	}
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// queryScript collects every element carrying id as driver.Node values.
func queryScript(id string) string {
	return `Array.from(document.querySelectorAll(` + jsString(driver.Selector(id)) + `)).map(function(el) {
  var cs = window.getComputedStyle(el);
  var r = el.getBoundingClientRect();
  var visible = cs.display !== 'none' && cs.visibility !== 'hidden' && r.width > 0 && r.height > 0;
  return {
    tag: el.tagName.toLowerCase(),
    text: (el.textContent || '').trim(),
    value: ('value' in el && typeof el.value === 'string') ? el.value : '',
    visible: visible
  };
})`
}

// elementScript wraps body so it runs with el bound to the index-th match.
// body must return an object with a status field.
func elementScript(id string, index int, body string) string {
	return fmt.Sprintf(`(function() {
  var el = document.querySelectorAll(%s)[%d];
  if (!el) { return {status: 'detached'}; }
%s
})()`, jsString(driver.Selector(id)), index, body)
}

const clickBody = `  el.scrollIntoView({block: 'center', inline: 'center'});
  var cs = window.getComputedStyle(el);
  var r = el.getBoundingClientRect();
  if (cs.display === 'none' || cs.visibility === 'hidden' || r.width === 0 || r.height === 0) {
    return {status: 'hidden'};
  }
  if (el.disabled) { return {status: 'disabled'}; }
  return {status: 'ok', x: r.left + r.width / 2, y: r.top + r.height / 2};`

const focusBody = `  if (el.disabled || el.readOnly) { return {status: 'disabled'}; }
  el.focus();
  if (typeof el.setSelectionRange === 'function') {
    var n = (el.value || '').length;
    try { el.setSelectionRange(n, n); } catch (e) {}
  }
  return {status: 'ok'};`

func selectScript(id string, index int, value string) string {
	body := `  if (el.tagName !== 'SELECT') { return {status: 'not-select'}; }
  if (el.disabled) { return {status: 'disabled'}; }
  var want = ` + jsString(value) + `;
  var opt = Array.from(el.options).find(function(o) { return o.value === want; }) ||
            Array.from(el.options).find(function(o) { return o.text.trim() === want; });
  if (!opt) { return {status: 'no-option'}; }
  var setter = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, 'value').set;
  setter.call(el, opt.value);
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return {status: 'ok'};`
	return elementScript(id, index, body)
}
