package aggregate

import (
	"testing"

	"github.com/counterdesk/api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog map[int64]store.Product

func (f fakeCatalog) ByID(id int64) (store.Product, bool) {
	p, ok := f[id]
	return p, ok
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func openOrder(lines store.ItemLineSet) store.Order {
	return store.Order{Lines: lines}
}

func completedOrder(lines store.ItemLineSet) store.Order {
	return store.Order{Lines: lines, Complete: true}
}

func TestAggregateSumsOpenOrders(t *testing.T) {
	catalog := fakeCatalog{
		1: {ID: 1, Name: "Baguette", Price: price("4.00"), Active: true},
	}
	orders := []store.Order{
		openOrder(store.ItemLineSet{1: 3, 2: 1}), // product 2 deactivated
		openOrder(store.ItemLineSet{1: 2}),
	}

	rows := Aggregate(orders, catalog, false)

	require.Len(t, rows, 2)

	// Orphaned demand surfaces first.
	orphan := rows[0]
	assert.Equal(t, int64(2), orphan.ProductID)
	assert.False(t, orphan.Active)
	assert.Equal(t, "Item #2 (inactive)", orphan.Name)
	assert.Equal(t, 1, orphan.Quantity)
	assert.True(t, orphan.Total.IsZero())

	active := rows[1]
	assert.Equal(t, int64(1), active.ProductID)
	assert.True(t, active.Active)
	assert.Equal(t, 5, active.Quantity)
	assert.True(t, active.Total.Equal(price("20.00")), "total: got %s", active.Total)
}

func TestAggregateExcludesCompletedByDefault(t *testing.T) {
	catalog := fakeCatalog{1: {ID: 1, Name: "Baguette", Price: price("4.00"), Active: true}}
	orders := []store.Order{
		openOrder(store.ItemLineSet{1: 2}),
		completedOrder(store.ItemLineSet{1: 7}),
	}

	rows := Aggregate(orders, catalog, false)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)

	rows = Aggregate(orders, catalog, true)
	require.Len(t, rows, 1)
	assert.Equal(t, 9, rows[0].Quantity)
}

func TestAggregateSkipsMalformedLines(t *testing.T) {
	catalog := fakeCatalog{1: {ID: 1, Name: "Baguette", Price: price("4.00"), Active: true}}
	orders := []store.Order{
		openOrder(store.ItemLineSet{1: 2, 3: 0, 4: -5}),
	}

	rows := Aggregate(orders, catalog, false)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ProductID)
}

func TestAggregateEmptyInputs(t *testing.T) {
	assert.Empty(t, Aggregate(nil, fakeCatalog{}, false))
	assert.Empty(t, Aggregate([]store.Order{openOrder(store.ItemLineSet{})}, fakeCatalog{}, true))
}

func TestAggregateOrdersInactiveFirstThenName(t *testing.T) {
	catalog := fakeCatalog{
		1: {ID: 1, Name: "Tea", Price: price("2.00"), Active: true},
		2: {ID: 2, Name: "Scone", Price: price("3.00"), Active: true},
	}
	orders := []store.Order{
		openOrder(store.ItemLineSet{1: 1, 2: 1, 8: 1, 9: 1}),
	}

	rows := Aggregate(orders, catalog, false)

	require.Len(t, rows, 4)
	assert.False(t, rows[0].Active)
	assert.False(t, rows[1].Active)
	assert.Equal(t, "Item #8 (inactive)", rows[0].Name)
	assert.Equal(t, "Item #9 (inactive)", rows[1].Name)
	assert.Equal(t, "Scone", rows[2].Name)
	assert.Equal(t, "Tea", rows[3].Name)
}

func TestAggregateIsDeterministic(t *testing.T) {
	catalog := fakeCatalog{
		1: {ID: 1, Name: "Tea", Price: price("2.00"), Active: true},
		2: {ID: 2, Name: "Scone", Price: price("3.00"), Active: true},
	}
	orders := []store.Order{
		openOrder(store.ItemLineSet{1: 4, 2: 2, 5: 1}),
		completedOrder(store.ItemLineSet{2: 9}),
		openOrder(store.ItemLineSet{5: 3, 1: 1}),
	}

	first := Aggregate(orders, catalog, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Aggregate(orders, catalog, true))
	}
}
