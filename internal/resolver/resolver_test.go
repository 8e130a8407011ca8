package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver/drivertest"
)

func newResolver(f *drivertest.Fake) *Resolver {
	return New(f, WithTimeout(200*time.Millisecond), WithInterval(5*time.Millisecond))
}

func TestGet_Present(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	f.Set("title", driver.Node{Tag: "span", Text: " Products ", Visible: true})

	el, err := newResolver(f).Get(context.Background(), "title")
	require.NoError(t, err)
	assert.Equal(t, "Products", el.Text())
	assert.Equal(t, 0, el.Index)
	assert.Equal(t, 1, f.Queries("title"))
}

func TestGet_LateAppearance(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	f.SetAfter(30*time.Millisecond, "title", driver.Node{Text: "Products", Visible: true})

	el, err := newResolver(f).Get(context.Background(), "title")
	require.NoError(t, err)
	assert.Equal(t, "Products", el.Text())
	assert.Greater(t, f.Queries("title"), 1, "should have re-queried the live tree")
}

func TestGet_NotFound(t *testing.T) {
	f := drivertest.New("http://shop.test/")

	_, err := newResolver(f).Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
	assert.Equal(t, 200*time.Millisecond, nf.Timeout)
	assert.Contains(t, err.Error(), `[data-test="missing"]`)
}

func TestGet_PerCallTimeoutOverride(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	f.SetAfter(300*time.Millisecond, "title", driver.Node{Text: "Products"})
	r := newResolver(f)

	_, err := r.Get(context.Background(), "title")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(context.Background(), "title", WithTimeout(2*time.Second))
	require.NoError(t, err)
}

func TestGet_ClosedSessionFailsFast(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	require.NoError(t, f.Close())

	start := time.Now()
	_, err := New(f, WithTimeout(time.Second)).Get(context.Background(), "title")
	assert.ErrorIs(t, err, driver.ErrClosed)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestElement_ActionsRelocate(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	f.Set("username", driver.Node{Tag: "input", Visible: true})
	r := newResolver(f)

	el, err := r.Get(context.Background(), "username")
	require.NoError(t, err)
	require.NoError(t, el.Type(context.Background(), "standard"))
	require.NoError(t, el.Type(context.Background(), "_user"))
	assert.Equal(t, "standard_user", f.Value("username"))

	f.Remove("username")
	err = el.Click(context.Background())
	assert.ErrorIs(t, err, driver.ErrDetached)
}

func TestResolverShortcuts(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	f.Set("login-button", driver.Node{Tag: "input", Visible: true})
	f.Set("product-sort-container", driver.Node{Tag: "select", Value: "az", Visible: true})
	r := newResolver(f)
	ctx := context.Background()

	require.NoError(t, r.Click(ctx, "login-button"))
	require.NoError(t, r.Select(ctx, "product-sort-container", "za"))
	assert.Equal(t, []string{"login-button#0"}, f.Clicks())
	assert.Equal(t, "za", f.Value("product-sort-container"))

	err := r.Click(ctx, "nope", WithTimeout(10*time.Millisecond))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTexts(t *testing.T) {
	f := drivertest.New("http://shop.test/")
	f.Set("inventory-item-name",
		driver.Node{Text: "Sauce Labs Backpack\n"},
		driver.Node{Text: "  Sauce Labs Onesie"},
	)
	got, err := newResolver(f).Texts(context.Background(), "inventory-item-name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sauce Labs Backpack", "Sauce Labs Onesie"}, got)

	none, err := newResolver(f).Texts(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, none)
}
