package storefront

import (
	"fmt"
	"slices"
)

// Screen is a storefront page, named by its path.
type Screen string

const (
	ScreenLogin            Screen = "/"
	ScreenInventory        Screen = "/inventory.html"
	ScreenItem             Screen = "/inventory-item.html"
	ScreenCart             Screen = "/cart.html"
	ScreenCheckoutInfo     Screen = "/checkout-step-one.html"
	ScreenCheckoutOverview Screen = "/checkout-step-two.html"
	ScreenCheckoutComplete Screen = "/checkout-complete.html"
)

// Guarded lists the screens the navigation guard is verified against.
var Guarded = []Screen{
	ScreenInventory,
	ScreenCart,
	ScreenCheckoutInfo,
	ScreenCheckoutOverview,
	ScreenCheckoutComplete,
}

// Path is the URL path of s.
func (s Screen) Path() string { return string(s) }

// Protected reports whether s requires an authenticated session. The item
// detail page is a sub-screen of the inventory and shares its guard.
func (s Screen) Protected() bool {
	return s == ScreenItem || slices.Contains(Guarded, s)
}

// GuardMessage is the banner shown after an unauthenticated visit to s.
func GuardMessage(s Screen) string {
	return fmt.Sprintf("Epic sadface: You can only access '%s' when you are logged in.", s.Path())
}
