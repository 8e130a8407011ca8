package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/expect"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/pages"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/storefront"
)

const (
	SuiteLogin       = "Login"
	SuiteHappyPath   = "Happy Path"
	SuiteProductList = "Product List Page"
	SuiteProblemUser = "Problem User"
	SuiteErrorUser   = "Error User"
	SuiteSecurity    = "Security"
)

// GlitchTimeout is the wait allowed for performance_glitch_user's login.
const GlitchTimeout = 10 * time.Second

const (
	backpack     = "Sauce Labs Backpack"
	bikeLight    = "Sauce Labs Bike Light"
	boltTShirt   = "Sauce Labs Bolt T-Shirt"
	fleeceJacket = "Sauce Labs Fleece Jacket"
)

// Catalog returns every scenario in suite order.
func Catalog() []Scenario {
	return []Scenario{
		{SuiteLogin, "Allow user to login with valid credentials", loginSucceeds(fixture.RoleStandard, 0)},
		{SuiteLogin, "Do not allow locked out user to login", lockedOutRejected},
		{SuiteLogin, "Close error message shown for locked out user", lockedOutDismiss},
		{SuiteLogin, "Allow problem user to login", loginSucceeds(fixture.RoleProblem, 0)},
		{SuiteLogin, "Allow performance glitch user to login", loginSucceeds(fixture.RolePerformanceGlitch, GlitchTimeout)},
		{SuiteLogin, "Reject unknown credentials", badCredentials},
		{SuiteLogin, "Require a username", usernameRequired},

		{SuiteHappyPath, "Purchase one product", purchase(fixture.RoleStandard, backpack)},
		{SuiteHappyPath, "Purchase multiple products", purchase(fixture.RoleStandard, backpack, bikeLight, boltTShirt)},
		{SuiteHappyPath, "Require first name at checkout", firstNameRequired},

		{SuiteProductList, "All products should be visible", allProductsVisible},
		{SuiteProductList, "Add to cart turns into remove once product is in cart", addTogglesRemove},
		{SuiteProductList, "Remove button disappears once product is removed", removeFromCatalogAndCart},
		{SuiteProductList, "Items leave the cart once removed", removedItemsLeaveCart},
		{SuiteProductList, "Cart badge tracks the number of items", badgeTracksCart},
		{SuiteProductList, "Product name opens the product page", openProductByName(backpack)},
		{SuiteProductList, "Sort in reverse alphabetical order", sortBy(oracle.NameDesc)},
		{SuiteProductList, "Sort in alphabetical order", sortBy(oracle.NameDesc, oracle.NameAsc)},
		{SuiteProductList, "Sort by price low to high", sortBy(oracle.PriceAsc)},
		{SuiteProductList, "Sort by price high to low", sortBy(oracle.PriceDesc)},

		{SuiteProblemUser, "Remove button disappears once product is removed", removeButtonGone(fixture.RoleProblem)},
		{SuiteProblemUser, "Purchase one product", purchase(fixture.RoleProblem, backpack)},

		{SuiteErrorUser, "Remove button disappears once product is removed", removeButtonGone(fixture.RoleError)},
		{SuiteErrorUser, "Purchase one product", purchase(fixture.RoleError, backpack)},

		{SuiteSecurity, "Logged out user cannot access other pages", guardedScreens},
		{SuiteSecurity, "Logout ends the session", logoutEndsSession},
	}
}

// Select filters scenarios by suite (case-insensitive, exact) and by a
// substring of the name. Empty filters match everything.
func Select(all []Scenario, suite, name string) []Scenario {
	var out []Scenario
	for _, sc := range all {
		if suite != "" && !strings.EqualFold(sc.Suite, suite) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(sc.Name), strings.ToLower(name)) {
			continue
		}
		out = append(out, sc)
	}
	return out
}

func (e *Env) loginAs(ctx context.Context, role fixture.Role) error {
	u, err := e.Fixture.User(role)
	if err != nil {
		return err
	}
	return e.Login.Login(ctx, u.Username, u.Password)
}

// expectCatalog asserts the catalog screen is showing.
func (e *Env) expectCatalog(ctx context.Context, eng *expect.Engine) error {
	if err := eng.Path(ctx, e.Driver, storefront.ScreenInventory.Path()); err != nil {
		return err
	}
	return eng.Element(ctx, e.Resolve, pages.IDTitle, expect.Visible(), expect.Contains("Products"))
}

func (e *Env) expectBanner(ctx context.Context, msg string) error {
	return e.Expect.Element(ctx, e.Resolve, pages.IDError, expect.Visible(), expect.Contains(msg))
}

// loginSucceeds logs role in and expects the catalog. A non-zero wait
// widens the assertion timeout.
func loginSucceeds(role fixture.Role, wait time.Duration) func(context.Context, *Env) error {
	return func(ctx context.Context, e *Env) error {
		if err := e.loginAs(ctx, role); err != nil {
			return err
		}
		eng := e.Expect
		if wait > 0 {
			eng = eng.With(expect.WithTimeout(wait))
		}
		return e.expectCatalog(ctx, eng)
	}
}

func lockedOutRejected(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleLockedOut); err != nil {
		return err
	}
	if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenLogin.Path()); err != nil {
		return err
	}
	return e.expectBanner(ctx, storefront.MsgLockedOut)
}

// lockedOutDismiss dismisses the banner, then logs in again and expects
// the identical banner back.
func lockedOutDismiss(ctx context.Context, e *Env) error {
	for i := range 2 {
		if i > 0 {
			// Reload so the credential fields start empty again.
			if err := e.Driver.Navigate(ctx, storefront.ScreenLogin.Path()); err != nil {
				return err
			}
		}
		if err := lockedOutRejected(ctx, e); err != nil {
			return err
		}
		if err := e.Login.DismissError(ctx); err != nil {
			return err
		}
		if err := e.Expect.Element(ctx, e.Resolve, pages.IDError, expect.NotExist()); err != nil {
			return err
		}
	}
	return nil
}

func badCredentials(ctx context.Context, e *Env) error {
	u, err := e.Fixture.User(fixture.RoleStandard)
	if err != nil {
		return err
	}
	if err := e.Login.Login(ctx, u.Username, u.Password+"-wrong"); err != nil {
		return err
	}
	if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenLogin.Path()); err != nil {
		return err
	}
	return e.expectBanner(ctx, storefront.MsgBadCredentials)
}

func usernameRequired(ctx context.Context, e *Env) error {
	if err := e.Login.Login(ctx, "", ""); err != nil {
		return err
	}
	return e.expectBanner(ctx, storefront.MsgUsernameRequired)
}

// subtotal sums the catalog prices of names.
func subtotal(f *fixture.Fixture, names []string) (string, error) {
	c := apd.BaseContext.WithPrecision(16)
	sum := apd.New(0, 0)
	for _, n := range names {
		p, err := f.Product(n)
		if err != nil {
			return "", err
		}
		if _, err := c.Add(sum, sum, p.Price.Decimal()); err != nil {
			return "", err
		}
	}
	if _, err := c.Quantize(sum, sum, -2); err != nil {
		return "", err
	}
	return sum.Text('f'), nil
}

// purchase buys names as role and expects the order confirmation.
func purchase(role fixture.Role, names ...string) func(context.Context, *Env) error {
	return func(ctx context.Context, e *Env) error {
		if err := e.loginAs(ctx, role); err != nil {
			return err
		}
		for _, n := range names {
			if err := e.Inventory.AddToCart(ctx, n); err != nil {
				return err
			}
		}
		badge, _ := oracle.BadgeText(len(names))
		if err := e.Expect.Element(ctx, e.Resolve, pages.IDCartBadge, expect.Visible(), expect.Contains(badge)); err != nil {
			return err
		}
		if err := e.Inventory.OpenCart(ctx); err != nil {
			return err
		}
		if err := e.Cart.Checkout(ctx); err != nil {
			return err
		}
		info := e.Fixture.AuthUser
		if err := e.Cart.SubmitPersonalInfoForm(ctx, info.FirstName, info.LastName, info.PostalCode); err != nil {
			return err
		}

		total, err := subtotal(e.Fixture, names)
		if err != nil {
			return err
		}
		if err := e.Expect.Element(ctx, e.Resolve, pages.IDSubtotal, expect.Visible(), expect.Contains("Item total: $"+total)); err != nil {
			return err
		}

		if err := e.Cart.Finish(ctx); err != nil {
			return err
		}
		if err := e.Expect.Element(ctx, e.Resolve, pages.IDCompleteHeader, expect.Visible(), expect.Contains(storefront.CompleteHeader)); err != nil {
			return err
		}
		return e.Expect.Element(ctx, e.Resolve, pages.IDCompleteText, expect.Visible(), expect.Contains(storefront.CompleteText))
	}
}

func firstNameRequired(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
		return err
	}
	if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
		return err
	}
	if err := e.Inventory.OpenCart(ctx); err != nil {
		return err
	}
	if err := e.Cart.Checkout(ctx); err != nil {
		return err
	}
	info := e.Fixture.AuthUser
	if err := e.Cart.SubmitPersonalInfoForm(ctx, "", info.LastName, info.PostalCode); err != nil {
		return err
	}
	if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenCheckoutInfo.Path()); err != nil {
		return err
	}
	return e.expectBanner(ctx, storefront.MsgFirstNameRequired)
}

func allProductsVisible(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
		return err
	}
	names := func(ctx context.Context) ([]string, error) { return e.Resolve.Texts(ctx, pages.IDItemName) }
	return expect.Check(ctx, e.Expect, "product names", names, expect.SetEqual(e.Fixture.ProductNames()))
}

func addTogglesRemove(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
		return err
	}
	if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
		return err
	}
	if err := e.Inventory.OpenCart(ctx); err != nil {
		return err
	}
	if err := e.Expect.Element(ctx, e.Resolve, pages.IDItemName, expect.Visible(), expect.Contains(backpack)); err != nil {
		return err
	}
	if err := e.Cart.ContinueShopping(ctx); err != nil {
		return err
	}
	if err := e.Expect.Element(ctx, e.Resolve, oracle.AddToCartID(backpack), expect.NotExist()); err != nil {
		return err
	}
	return e.Expect.Element(ctx, e.Resolve, oracle.RemoveID(backpack), expect.Visible())
}

func removeFromCatalogAndCart(ctx context.Context, e *Env) error {
	if err := removeButtonGone(fixture.RoleStandard)(ctx, e); err != nil {
		return err
	}
	if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
		return err
	}
	if err := e.Inventory.OpenCart(ctx); err != nil {
		return err
	}
	if err := e.Cart.Remove(ctx, backpack); err != nil {
		return err
	}
	if err := e.Cart.ContinueShopping(ctx); err != nil {
		return err
	}
	return e.Expect.Element(ctx, e.Resolve, oracle.RemoveID(backpack), expect.NotExist())
}

// removeButtonGone adds and removes the backpack from the catalog as role.
func removeButtonGone(role fixture.Role) func(context.Context, *Env) error {
	return func(ctx context.Context, e *Env) error {
		if err := e.loginAs(ctx, role); err != nil {
			return err
		}
		if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
			return err
		}
		if err := e.Inventory.RemoveFromCart(ctx, backpack); err != nil {
			return err
		}
		return e.Expect.Element(ctx, e.Resolve, oracle.RemoveID(backpack), expect.NotExist())
	}
}

func removedItemsLeaveCart(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
		return err
	}
	if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
		return err
	}
	if err := e.Inventory.RemoveFromCart(ctx, backpack); err != nil {
		return err
	}
	if err := e.Inventory.OpenCart(ctx); err != nil {
		return err
	}
	if err := e.Expect.Element(ctx, e.Resolve, pages.IDItemName, expect.NotExist()); err != nil {
		return err
	}
	if err := e.Cart.ContinueShopping(ctx); err != nil {
		return err
	}
	if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
		return err
	}
	if err := e.Inventory.OpenCart(ctx); err != nil {
		return err
	}
	if err := e.Cart.Remove(ctx, backpack); err != nil {
		return err
	}
	return e.Expect.Element(ctx, e.Resolve, pages.IDItemName, expect.NotExist())
}

func badgeTracksCart(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
		return err
	}
	steps := []struct {
		add  bool
		name string
	}{
		{true, backpack},
		{true, bikeLight},
		{true, fleeceJacket},
		{false, backpack},
		{false, bikeLight},
		{false, fleeceJacket},
	}
	count := 0
	for _, st := range steps {
		var err error
		if st.add {
			err = e.Inventory.AddToCart(ctx, st.name)
			count++
		} else {
			err = e.Inventory.RemoveFromCart(ctx, st.name)
			count--
		}
		if err != nil {
			return err
		}

		text, shown := oracle.BadgeText(count)
		if shown {
			err = e.Expect.Element(ctx, e.Resolve, pages.IDCartBadge, expect.Visible(), expect.Contains(text))
		} else {
			err = e.Expect.Element(ctx, e.Resolve, pages.IDCartBadge, expect.NotExist())
		}
		if err != nil {
			return fmt.Errorf("badge after %d items: %w", count, err)
		}
	}
	return nil
}

func openProductByName(name string) func(context.Context, *Env) error {
	return func(ctx context.Context, e *Env) error {
		if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
			return err
		}
		if err := e.Inventory.OpenItem(ctx, name); err != nil {
			return err
		}
		if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenItem.Path()); err != nil {
			return err
		}
		return e.Expect.Element(ctx, e.Resolve, pages.IDItemName, expect.Visible(), expect.HasText(name))
	}
}

// sortBy applies orders in turn and checks the listing against the last.
func sortBy(orders ...oracle.SortOrder) func(context.Context, *Env) error {
	return func(ctx context.Context, e *Env) error {
		if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
			return err
		}
		for _, o := range orders {
			if err := e.Inventory.SortBy(ctx, o); err != nil {
				return err
			}
		}
		want := oracle.Names(oracle.Sort(e.Fixture.Products, orders[len(orders)-1]))
		names := func(ctx context.Context) ([]string, error) { return e.Resolve.Texts(ctx, pages.IDItemName) }
		return expect.Check(ctx, e.Expect, "product names", names, expect.SequenceEqual(want))
	}
}

func guardedScreens(ctx context.Context, e *Env) error {
	for _, s := range storefront.Guarded {
		if err := e.Driver.Navigate(ctx, s.Path()); err != nil {
			return err
		}
		if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenLogin.Path()); err != nil {
			return &GuardViolation{Path: s.Path(), Err: err}
		}
		if err := e.expectBanner(ctx, storefront.GuardMessage(s)); err != nil {
			return &GuardViolation{Path: s.Path(), Err: err}
		}
	}
	return nil
}

func logoutEndsSession(ctx context.Context, e *Env) error {
	if err := e.loginAs(ctx, fixture.RoleStandard); err != nil {
		return err
	}
	if err := e.expectCatalog(ctx, e.Expect); err != nil {
		return err
	}
	if err := e.Inventory.Logout(ctx); err != nil {
		return err
	}
	if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenLogin.Path()); err != nil {
		return err
	}
	if err := e.Driver.Navigate(ctx, storefront.ScreenInventory.Path()); err != nil {
		return err
	}
	if err := e.Expect.Path(ctx, e.Driver, storefront.ScreenLogin.Path()); err != nil {
		return &GuardViolation{Path: storefront.ScreenInventory.Path(), Err: err}
	}
	return nil
}
