package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekit/tablekit/pkg/types"
)

func relationship(name, target string) types.Field {
	return types.Field{Name: name, Type: types.FieldRelationship,
		Options: types.RelationshipOptions{TargetTable: target, TargetColumn: "id",
			Cardinality: types.CardinalityMany, ForeignKey: true}}
}

func lookupField(name, relName, target string) types.Field {
	return types.Field{Name: name, Type: types.FieldLookup,
		Options: types.LookupOptions{RelationshipField: relName, LookupField: target}}
}

func TestReconcileAll_ChainedLookupView(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	vendors := uniqueName("vendors")
	products := uniqueName("products")
	orders := uniqueName("orders")
	dropTables(t, pool, orders, products, vendors)

	tables := []types.Table{
		// Deliberately listed dependents-first: ReconcileAll must order by
		// dependency, not input position.
		{
			Name: orders,
			Fields: []types.Field{
				idField(),
				relationship("product", products),
				lookupField("product_vendor_city", "product", "vendor_city"),
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: products,
			Fields: []types.Field{
				idField(),
				relationship("vendor", vendors),
				lookupField("vendor_city", "vendor", "city"),
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name:       vendors,
			Fields:     []types.Field{idField(), textField("city")},
			PrimaryKey: []string{"id"},
		},
	}

	results, err := eng.ReconcileAll(ctx, tables)
	require.NoError(t, err)
	require.Len(t, results, 3)
	// Results come back in input order regardless of execution order.
	assert.Equal(t, orders, results[0].Table)
	assert.Equal(t, vendors, results[2].Table)

	_, err = pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, city) VALUES ('v1', 'Lisbon')`, vendors))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, vendor) VALUES ('p1', 'v1'), ('p2', NULL)`, products))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, product) VALUES ('o1', 'p1'), ('o2', 'p2'), ('o3', NULL)`, orders))
	require.NoError(t, err)

	t.Run("single hop projection", func(t *testing.T) {
		var city *string
		err := pool.QueryRow(ctx, fmt.Sprintf(
			`SELECT vendor_city FROM %q WHERE id = 'p1'`, products+"_resolved")).Scan(&city)
		require.NoError(t, err)
		require.NotNil(t, city)
		assert.Equal(t, "Lisbon", *city)
	})

	t.Run("chained hops resolve through the intermediate table", func(t *testing.T) {
		var city *string
		err := pool.QueryRow(ctx, fmt.Sprintf(
			`SELECT product_vendor_city FROM %q WHERE id = 'o1'`, orders+"_resolved")).Scan(&city)
		require.NoError(t, err)
		require.NotNil(t, city)
		assert.Equal(t, "Lisbon", *city)
	})

	t.Run("null anywhere in the chain projects null", func(t *testing.T) {
		for _, id := range []string{"o2", "o3"} {
			var city *string
			err := pool.QueryRow(ctx, fmt.Sprintf(
				`SELECT product_vendor_city FROM %q WHERE id = $1`, orders+"_resolved"), id).Scan(&city)
			require.NoError(t, err)
			assert.Nil(t, city, "order %s", id)
		}
	})

	t.Run("foreign key enforces the relationship", func(t *testing.T) {
		_, err := pool.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %q (id, product) VALUES ('o4', 'missing')`, orders))
		assert.Error(t, err)
	})
}

func TestReconcile_ViewRebuiltAroundColumnChange(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	vendors := uniqueName("vendors")
	products := uniqueName("products")
	dropTables(t, pool, products, vendors)

	vendorTbl := types.Table{
		Name:       vendors,
		Fields:     []types.Field{idField(), textField("city")},
		PrimaryKey: []string{"id"},
	}
	productTbl := types.Table{
		Name: products,
		Fields: []types.Field{
			idField(),
			relationship("vendor", vendors),
			lookupField("vendor_city", "vendor", "city"),
		},
		PrimaryKey: []string{"id"},
	}
	_, err := eng.ReconcileAll(ctx, []types.Table{vendorTbl, productTbl})
	require.NoError(t, err)

	// Adding a column forces a drop and recreate of the projection view,
	// since the live view pins the columns it selects.
	productTbl.Fields = append(productTbl.Fields, textField("note"))
	res, err := eng.Reconcile(ctx, productTbl)
	require.NoError(t, err)
	assert.False(t, res.NoOp)

	var n int
	err = pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT count(note) FROM %q`, products+"_resolved")).Scan(&n)
	assert.NoError(t, err, "view must expose the new column")
}
