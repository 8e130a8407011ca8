// Package oracle computes expected storefront outcomes independently of the
// UI: sorted catalog order, cart badge text and control identifiers.
package oracle

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
)

// SortOrder is a catalog ordering, named by the value of the sort control.
type SortOrder string

const (
	NameAsc   SortOrder = "az"
	NameDesc  SortOrder = "za"
	PriceAsc  SortOrder = "lohi"
	PriceDesc SortOrder = "hilo"
)

// SortOrders lists every order in the storefront's option order.
var SortOrders = []SortOrder{NameAsc, NameDesc, PriceAsc, PriceDesc}

// Label is the visible option text for o.
func (o SortOrder) Label() string {
	switch o {
	case NameAsc:
		return "Name (A to Z)"
	case NameDesc:
		return "Name (Z to A)"
	case PriceAsc:
		return "Price (low to high)"
	case PriceDesc:
		return "Price (high to low)"
	}
	return string(o)
}

// Dual returns the order that reverses o's primary key.
func (o SortOrder) Dual() SortOrder {
	switch o {
	case NameAsc:
		return NameDesc
	case NameDesc:
		return NameAsc
	case PriceAsc:
		return PriceDesc
	case PriceDesc:
		return PriceAsc
	}
	return o
}

// ParseSortOrder accepts the control value.
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(SortOrders, o) {
		return "", fmt.Errorf("unknown sort order %q", s)
	}
	return o, nil
}

// Sort returns a sorted copy of catalog. Names compare bytewise, prices
// numerically; ties keep catalog order.
func Sort(catalog []fixture.Product, o SortOrder) []fixture.Product {
	out := slices.Clone(catalog)
	var fn func(a, b fixture.Product) int
	switch o {
	case NameDesc:
		fn = func(a, b fixture.Product) int { return cmp.Compare(b.Name, a.Name) }
	case PriceAsc:
		fn = func(a, b fixture.Product) int { return a.Price.Cmp(b.Price) }
	case PriceDesc:
		fn = func(a, b fixture.Product) int { return b.Price.Cmp(a.Price) }
	default:
		fn = func(a, b fixture.Product) int { return cmp.Compare(a.Name, b.Name) }
	}
	slices.SortStableFunc(out, fn)
	return out
}

// Names projects products to their names.
func Names(products []fixture.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

// Reverse returns a reversed copy of s.
func Reverse[T any](s []T) []T {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}

// SetEqual reports whether a and b hold the same elements, ignoring order.
// Duplicates count.
func SetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

// BadgeText is the cart badge for a cart of n items; ok is false when the
// badge must be absent.
func BadgeText(n int) (text string, ok bool) {
	if n <= 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// Slug derives the identifier suffix of a product's cart controls.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// AddToCartID is the identifier of the add control for name.
func AddToCartID(name string) string { return "add-to-cart-" + Slug(name) }

// RemoveID is the identifier of the remove control for name.
func RemoveID(name string) string { return "remove-" + Slug(name) }
