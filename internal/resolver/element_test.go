package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver/drivertest"
)

func catalogFake() *drivertest.Fake {
	f := drivertest.New("http://shop.test/inventory.html")
	f.Set("inventory-item-name",
		driver.Node{Text: "Sauce Labs Backpack", Visible: true},
		driver.Node{Text: "Sauce Labs Bike Light", Visible: true},
		driver.Node{Text: "Sauce Labs Bolt T-Shirt", Visible: true},
	)
	return f
}

func TestEach_VisitsInDOMOrder(t *testing.T) {
	f := catalogFake()
	els, err := newResolver(f).All(context.Background(), "inventory-item-name")
	require.NoError(t, err)
	assert.Equal(t, 3, els.Len())

	var names []string
	var indexes []int
	require.NoError(t, els.Each(func(el *Element) bool {
		names = append(names, el.Text())
		indexes = append(indexes, el.Index)
		return true
	}))
	assert.Equal(t, []string{"Sauce Labs Backpack", "Sauce Labs Bike Light", "Sauce Labs Bolt T-Shirt"}, names)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestEach_EarlyTermination(t *testing.T) {
	f := catalogFake()
	els, err := newResolver(f).All(context.Background(), "inventory-item-name")
	require.NoError(t, err)

	visited := 0
	var target *Element
	require.NoError(t, els.Each(func(el *Element) bool {
		visited++
		if el.Text() == "Sauce Labs Bike Light" {
			target = el
			return false
		}
		return true
	}))
	assert.Equal(t, 2, visited)
	require.NotNil(t, target)

	require.NoError(t, target.Click(context.Background()))
	assert.Equal(t, []string{"inventory-item-name#1"}, f.Clicks())
}

func TestEach_NotRestartable(t *testing.T) {
	els, err := newResolver(catalogFake()).All(context.Background(), "inventory-item-name")
	require.NoError(t, err)

	require.NoError(t, els.Each(func(*Element) bool { return false }))
	err = els.Each(func(*Element) bool { return true })
	assert.ErrorIs(t, err, ErrConsumed)

	count := 0
	for range els.All() {
		count++
	}
	assert.Zero(t, count)
}

func TestAll_NotFound(t *testing.T) {
	f := drivertest.New("http://shop.test/cart.html")
	_, err := newResolver(f).All(context.Background(), "inventory-item-name")
	assert.ErrorIs(t, err, ErrNotFound)
}
