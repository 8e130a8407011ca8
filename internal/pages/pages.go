// Package pages holds the per-screen interaction contracts. Page objects
// only resolve and act; assertions stay with the caller.
package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/resolver"
)

// Logical identifiers shared by the page objects and scenarios.
const (
	IDUsername    = "username"
	IDPassword    = "password"
	IDLoginButton = "login-button"
	IDError       = "error"
	IDErrorButton = "error-button"

	IDTitle          = "title"
	IDItemName       = "inventory-item-name"
	IDSort           = "product-sort-container"
	IDCartLink       = "shopping-cart-link"
	IDCartBadge      = "shopping-cart-badge"
	IDContinueShop   = "continue-shopping"
	IDCheckout       = "checkout"
	IDFirstName      = "firstName"
	IDLastName       = "lastName"
	IDPostalCode     = "postalCode"
	IDContinue       = "continue"
	IDSubtotal       = "subtotal-label"
	IDFinish         = "finish"
	IDCompleteHeader = "complete-header"
	IDCompleteText   = "complete-text"
	IDLogout         = "logout-sidebar-link"
)

// ErrNotListed means no listed product carries the requested name.
var ErrNotListed = errors.New("product not listed")

// LoginPage is the unauthenticated entry screen.
type LoginPage struct {
	r *resolver.Resolver
}

func NewLoginPage(r *resolver.Resolver) *LoginPage { return &LoginPage{r: r} }

// Login types the credentials and submits. It does not wait for the outcome.
func (p *LoginPage) Login(ctx context.Context, username, password string) error {
	if err := p.r.Type(ctx, IDUsername, username); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := p.r.Type(ctx, IDPassword, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := p.r.Click(ctx, IDLoginButton); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// DismissError closes the error banner.
func (p *LoginPage) DismissError(ctx context.Context) error {
	return p.r.Click(ctx, IDErrorButton)
}

// CartPage covers the cart and the three checkout screens.
type CartPage struct {
	r *resolver.Resolver
}

func NewCartPage(r *resolver.Resolver) *CartPage { return &CartPage{r: r} }

// SubmitPersonalInfoForm fills the checkout information form and continues.
// Outside the checkout information screen the fields never resolve and the
// resolver's ErrNotFound is returned.
func (p *CartPage) SubmitPersonalInfoForm(ctx context.Context, first, last, postal string) error {
	for _, f := range []struct{ id, text string }{
		{IDFirstName, first},
		{IDLastName, last},
		{IDPostalCode, postal},
	} {
		if err := p.r.Type(ctx, f.id, f.text); err != nil {
			return fmt.Errorf("personal info: %w", err)
		}
	}
	if err := p.r.Click(ctx, IDContinue); err != nil {
		return fmt.Errorf("personal info: %w", err)
	}
	return nil
}

func (p *CartPage) Checkout(ctx context.Context) error { return p.r.Click(ctx, IDCheckout) }

func (p *CartPage) ContinueShopping(ctx context.Context) error {
	return p.r.Click(ctx, IDContinueShop)
}

func (p *CartPage) Finish(ctx context.Context) error { return p.r.Click(ctx, IDFinish) }

// Remove clicks the remove control of a product listed in the cart.
func (p *CartPage) Remove(ctx context.Context, name string) error {
	return p.r.Click(ctx, oracle.RemoveID(name))
}

// InventoryPage is the catalog screen. Its add/remove controls also appear
// on the item detail screen.
type InventoryPage struct {
	r *resolver.Resolver
}

func NewInventoryPage(r *resolver.Resolver) *InventoryPage { return &InventoryPage{r: r} }

func (p *InventoryPage) AddToCart(ctx context.Context, name string) error {
	return p.r.Click(ctx, oracle.AddToCartID(name))
}

func (p *InventoryPage) RemoveFromCart(ctx context.Context, name string) error {
	return p.r.Click(ctx, oracle.RemoveID(name))
}

func (p *InventoryPage) OpenCart(ctx context.Context) error { return p.r.Click(ctx, IDCartLink) }

// SortBy picks an order from the sort dropdown.
func (p *InventoryPage) SortBy(ctx context.Context, o oracle.SortOrder) error {
	return p.r.Select(ctx, IDSort, string(o))
}

// ItemNames returns the listed product names in display order.
func (p *InventoryPage) ItemNames(ctx context.Context) ([]string, error) {
	els, err := p.r.All(ctx, IDItemName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, els.Len())
	for el := range els.All() {
		names = append(names, el.Text())
	}
	return names, nil
}

// OpenItem clicks the first listed product called name.
func (p *InventoryPage) OpenItem(ctx context.Context, name string) error {
	els, err := p.r.All(ctx, IDItemName)
	if err != nil {
		return err
	}
	var target *resolver.Element
	if err := els.Each(func(el *resolver.Element) bool {
		if el.Text() == name {
			target = el
			return false
		}
		return true
	}); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("open item %q: %w", name, ErrNotListed)
	}
	return target.Click(ctx)
}

// Logout uses the header control available on every authenticated screen.
func (p *InventoryPage) Logout(ctx context.Context) error { return p.r.Click(ctx, IDLogout) }
