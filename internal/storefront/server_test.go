package storefront

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
)

type browser struct {
	t    *testing.T
	base string
	c    *http.Client
}

func newBrowser(t *testing.T) (*browser, *Server) {
	t.Helper()
	srv, err := NewServer(NewStore(fixture.Example(), WithGlitch(0)), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: ts.URL, c: &http.Client{Jar: jar}}, srv
}

func (b *browser) doc(resp *http.Response, err error) (*goquery.Document, string) {
	b.t.Helper()
	require.NoError(b.t, err)
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(b.t, err)
	return doc, resp.Request.URL.Path
}

func (b *browser) get(path string) (*goquery.Document, string) {
	return b.doc(b.c.Get(b.base + path))
}

func (b *browser) post(path string, form url.Values) (*goquery.Document, string) {
	return b.doc(b.c.PostForm(b.base+path, form))
}

func text(doc *goquery.Document, id string) string {
	return strings.TrimSpace(doc.Find(driver.Selector(id)).Text())
}

func texts(doc *goquery.Document, id string) []string {
	var out []string
	doc.Find(driver.Selector(id)).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func (b *browser) login(user string) (*goquery.Document, string) {
	return b.post("/", url.Values{"user-name": {user}, "password": {"secret_sauce"}})
}

func TestServer_LoginPage(t *testing.T) {
	b, _ := newBrowser(t)
	doc, path := b.get("/")
	assert.Equal(t, "/", path)
	for _, id := range []string{"username", "password", "login-button"} {
		assert.Equal(t, 1, doc.Find(driver.Selector(id)).Length(), id)
	}
	assert.Zero(t, doc.Find(driver.Selector("error")).Length())
}

func TestServer_GuardRedirects(t *testing.T) {
	for _, screen := range Guarded {
		t.Run(screen.Path(), func(t *testing.T) {
			b, _ := newBrowser(t)
			doc, path := b.get(screen.Path())
			assert.Equal(t, "/", path)
			assert.Equal(t, GuardMessage(screen), text(doc, "error"))
		})
	}
}

func TestServer_LockedOut(t *testing.T) {
	b, _ := newBrowser(t)
	doc, path := b.login("locked_out_user")
	assert.Equal(t, "/", path)
	assert.Equal(t, MsgLockedOut, text(doc, "error"))

	doc, path = b.post("/dismiss-error", nil)
	assert.Equal(t, "/", path)
	assert.Zero(t, doc.Find(driver.Selector("error")).Length())
}

func TestServer_CatalogAndSort(t *testing.T) {
	b, _ := newBrowser(t)
	doc, path := b.login("standard_user")
	assert.Equal(t, "/inventory.html", path)
	assert.Equal(t, "Products", text(doc, "title"))

	catalog := fixture.Example().Products
	assert.Equal(t, oracle.Names(oracle.Sort(catalog, oracle.NameAsc)), texts(doc, "inventory-item-name"))

	doc, _ = b.get("/inventory.html?sort=hilo")
	assert.Equal(t, oracle.Names(oracle.Sort(catalog, oracle.PriceDesc)), texts(doc, "inventory-item-name"))
	selected, _ := doc.Find(driver.Selector("product-sort-container") + " option[selected]").Attr("value")
	assert.Equal(t, "hilo", selected)

	doc, _ = b.get("/inventory.html")
	assert.Equal(t, oracle.Names(oracle.Sort(catalog, oracle.PriceDesc)), texts(doc, "inventory-item-name"))
}

func TestServer_CartAndCheckout(t *testing.T) {
	b, srv := newBrowser(t)
	b.login("standard_user")

	doc, path := b.post("/cart/add", url.Values{"name": {"Sauce Labs Backpack"}, "next": {"/inventory.html"}})
	assert.Equal(t, "/inventory.html", path)
	assert.Equal(t, "1", text(doc, "shopping-cart-badge"))
	assert.Equal(t, 1, doc.Find(driver.Selector("remove-sauce-labs-backpack")).Length())
	assert.Zero(t, doc.Find(driver.Selector("add-to-cart-sauce-labs-backpack")).Length())

	doc, _ = b.get("/cart.html")
	assert.Equal(t, []string{"Sauce Labs Backpack"}, texts(doc, "inventory-item-name"))

	doc, path = b.post("/checkout", nil)
	assert.Equal(t, "/checkout-step-one.html", path)
	assert.Equal(t, 1, doc.Find(driver.Selector("firstName")).Length())

	doc, path = b.post("/checkout-step-one.html", url.Values{"firstName": {""}, "lastName": {"Doe"}, "postalCode": {"12345"}})
	assert.Equal(t, "/checkout-step-one.html", path)
	assert.Equal(t, MsgFirstNameRequired, text(doc, "error"))
	v, _ := doc.Find(driver.Selector("lastName")).Attr("value")
	assert.Equal(t, "Doe", v)

	doc, path = b.post("/checkout-step-one.html", url.Values{"firstName": {"John"}, "lastName": {"Doe"}, "postalCode": {"12345"}})
	assert.Equal(t, "/checkout-step-two.html", path)
	assert.Equal(t, "Item total: $29.99", text(doc, "subtotal-label"))
	assert.Equal(t, "Tax: $2.40", text(doc, "tax-label"))
	assert.Equal(t, "Total: $32.39", text(doc, "total-label"))

	doc, path = b.post("/checkout-step-two.html", nil)
	assert.Equal(t, "/checkout-complete.html", path)
	assert.Equal(t, CompleteHeader, text(doc, "complete-header"))
	assert.Equal(t, CompleteText, text(doc, "complete-text"))
	assert.Zero(t, doc.Find(driver.Selector("shopping-cart-badge")).Length())

	assert.Equal(t, 1, srv.Store().Len())
}

func TestServer_ItemDetail(t *testing.T) {
	b, _ := newBrowser(t)
	b.login("standard_user")

	doc, path := b.get("/inventory-item.html?id=0")
	assert.Equal(t, "/inventory-item.html", path)
	assert.Equal(t, "Sauce Labs Backpack", text(doc, "inventory-item-name"))
	assert.Equal(t, "$29.99", text(doc, "inventory-item-price"))

	doc, _ = b.get("/inventory-item.html?id=99")
	assert.Equal(t, "ITEM NOT FOUND", text(doc, "inventory-item-name"))
}

func TestServer_Logout(t *testing.T) {
	b, _ := newBrowser(t)
	b.login("standard_user")
	_, path := b.post("/logout", nil)
	assert.Equal(t, "/", path)
	_, path = b.get("/cart.html")
	assert.Equal(t, "/", path)
}

func TestServer_CheckoutBannerDoesNotFollowLogout(t *testing.T) {
	b, _ := newBrowser(t)
	b.login("standard_user")
	b.post("/cart/add", url.Values{"name": {"Sauce Labs Backpack"}, "next": {"/inventory.html"}})
	b.get("/cart.html")
	b.post("/checkout", nil)
	doc, _ := b.post("/checkout-step-one.html", url.Values{"lastName": {"Doe"}, "postalCode": {"12345"}})
	require.Equal(t, MsgFirstNameRequired, text(doc, "error"))

	doc, path := b.post("/logout", nil)
	assert.Equal(t, "/", path)
	assert.Zero(t, doc.Find(driver.Selector("error")).Length())

	doc, _ = b.get("/")
	assert.Zero(t, doc.Find(driver.Selector("error")).Length())
}

func TestServer_CheckoutOutsideCart(t *testing.T) {
	b, _ := newBrowser(t)
	b.login("standard_user")

	resp, err := b.c.PostForm(b.base+"/checkout", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "wrong_screen", body["code"])
}

func TestServer_SessionsStayBounded(t *testing.T) {
	b, srv := newBrowser(t)
	for range 50 {
		resp, err := http.Get(b.base + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Zero(t, srv.Store().Len())

	b.login("standard_user")
	assert.Equal(t, 1, srv.Store().Len())
	b.post("/logout", nil)
	// The logout redirect lands on a fresh login session.
	assert.Equal(t, 1, srv.Store().Len())
}

func TestServer_Health(t *testing.T) {
	b, _ := newBrowser(t)
	resp, err := b.c.Get(b.base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/cart.html", safeNext("/cart.html"))
	assert.Equal(t, "/inventory-item.html?id=2", safeNext("/inventory-item.html?id=2"))
	assert.Equal(t, "/inventory.html", safeNext("https://evil.test/"))
	assert.Equal(t, "/inventory.html", safeNext("//evil.test/"))
	assert.Equal(t, "/inventory.html", safeNext(""))
}
