package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekit/tablekit/pkg/types"
)

func rel(name, target string) types.Field {
	return types.Field{Name: name, Type: types.FieldRelationship,
		Options: types.RelationshipOptions{TargetTable: target, TargetColumn: "id",
			Cardinality: types.CardinalityMany}}
}

func lookup(name, relField, lookupField string) types.Field {
	return types.Field{Name: name, Type: types.FieldLookup,
		Options: types.LookupOptions{RelationshipField: relField, LookupField: lookupField}}
}

func text(name string) types.Field {
	return types.Field{Name: name, Type: types.FieldSingleLineText}
}

func shopCatalog() Catalog {
	return NewCatalog([]types.Table{
		{Name: "vendors", Fields: []types.Field{text("id"), text("city")}},
		{Name: "products", Fields: []types.Field{
			text("id"), rel("vendor", "vendors"), lookup("vendor_city", "vendor", "city"),
		}},
		{Name: "orders", Fields: []types.Field{
			text("id"), rel("product", "products"),
			lookup("product_vendor_city", "product", "vendor_city"),
		}},
	})
}

func TestField_SingleHop(t *testing.T) {
	cat := shopCatalog()
	products := cat["products"]
	f, _ := products.Field("vendor_city")

	lk, err := Field(cat, products, f, 0)
	require.NoError(t, err)

	assert.Equal(t, "vendor_city", lk.Field)
	require.Len(t, lk.Joins, 1)
	assert.Equal(t, Join{
		LocalColumn: "vendor", TargetTable: "vendors", TargetColumn: "id",
		Alias: "vendor_city_1",
	}, lk.Joins[0])
	assert.Equal(t, "vendor_city_1", lk.SourceAlias)
	assert.Equal(t, "city", lk.SourceColumn)
}

func TestField_ChainedHops(t *testing.T) {
	// orders -> products -> vendors: the intermediate hop is itself a lookup
	// field, so the chain keeps walking on the target table.
	cat := shopCatalog()
	orders := cat["orders"]
	f, _ := orders.Field("product_vendor_city")

	lk, err := Field(cat, orders, f, 0)
	require.NoError(t, err)

	require.Len(t, lk.Joins, 2)
	assert.Equal(t, Join{
		LocalColumn: "product", TargetTable: "products", TargetColumn: "id",
		Alias: "product_vendor_city_1",
	}, lk.Joins[0])
	assert.Equal(t, Join{
		LocalAlias: "product_vendor_city_1", LocalColumn: "vendor",
		TargetTable: "vendors", TargetColumn: "id",
		Alias: "product_vendor_city_2",
	}, lk.Joins[1])
	assert.Equal(t, "product_vendor_city_2", lk.SourceAlias)
	assert.Equal(t, "city", lk.SourceColumn)
}

func TestField_CycleDetected(t *testing.T) {
	cat := NewCatalog([]types.Table{
		{Name: "a", Fields: []types.Field{text("id"), rel("to_b", "b"), lookup("x", "to_b", "y")}},
		{Name: "b", Fields: []types.Field{text("id"), rel("to_a", "a"), lookup("y", "to_a", "x")}},
	})
	f, _ := cat["a"].Field("x")

	_, err := Field(cat, cat["a"], f, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrLookupCycle)

	var rErr *types.ResolutionError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, "a", rErr.Table)
	assert.Equal(t, "x", rErr.Field)
}

func TestField_DepthBound(t *testing.T) {
	cat := NewCatalog([]types.Table{
		{Name: "t1", Fields: []types.Field{text("id"), rel("r", "t2"), lookup("l1", "r", "l2")}},
		{Name: "t2", Fields: []types.Field{text("id"), rel("r", "t3"), lookup("l2", "r", "l3")}},
		{Name: "t3", Fields: []types.Field{text("id"), rel("r", "t4"), lookup("l3", "r", "name")}},
		{Name: "t4", Fields: []types.Field{text("id"), text("name")}},
	})
	f, _ := cat["t1"].Field("l1")

	_, err := Field(cat, cat["t1"], f, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrLookupDepthExceeded)

	lk, err := Field(cat, cat["t1"], f, 3)
	require.NoError(t, err)
	assert.Len(t, lk.Joins, 3)
}

func TestField_DanglingReferences(t *testing.T) {
	tests := []struct {
		name string
		cat  Catalog
	}{
		{
			name: "relationship field missing",
			cat: NewCatalog([]types.Table{
				{Name: "products", Fields: []types.Field{text("id"), lookup("vendor_city", "vendor", "city")}},
				{Name: "vendors", Fields: []types.Field{text("id"), text("city")}},
			}),
		},
		{
			name: "target table missing",
			cat: NewCatalog([]types.Table{
				{Name: "products", Fields: []types.Field{
					text("id"), rel("vendor", "vendors"), lookup("vendor_city", "vendor", "city")}},
			}),
		},
		{
			name: "lookup field missing on target",
			cat: NewCatalog([]types.Table{
				{Name: "products", Fields: []types.Field{
					text("id"), rel("vendor", "vendors"), lookup("vendor_city", "vendor", "city")}},
				{Name: "vendors", Fields: []types.Field{text("id")}},
			}),
		},
		{
			name: "chain ends at columnless field",
			cat: NewCatalog([]types.Table{
				{Name: "products", Fields: []types.Field{
					text("id"), rel("vendor", "vendors"), lookup("vendor_city", "vendor", "open")}},
				{Name: "vendors", Fields: []types.Field{text("id"),
					{Name: "open", Type: types.FieldButton, Options: types.ButtonOptions{Action: "open"}}}},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := tt.cat["products"]
			f, ok := products.Field("vendor_city")
			require.True(t, ok)
			_, err := Field(tt.cat, products, f, 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrDanglingReference)
		})
	}
}

func TestField_NotARelationship(t *testing.T) {
	cat := NewCatalog([]types.Table{
		{Name: "products", Fields: []types.Field{
			text("id"), text("vendor"), lookup("vendor_city", "vendor", "city")}},
		{Name: "vendors", Fields: []types.Field{text("id"), text("city")}},
	})
	f, _ := cat["products"].Field("vendor_city")

	_, err := Field(cat, cat["products"], f, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotARelationship)
}

func TestValidateTable(t *testing.T) {
	t.Run("valid catalog passes", func(t *testing.T) {
		cat := shopCatalog()
		for _, tbl := range cat {
			assert.NoError(t, ValidateTable(cat, tbl, 0))
		}
	})

	t.Run("relationship to missing table", func(t *testing.T) {
		cat := NewCatalog([]types.Table{
			{Name: "products", Fields: []types.Field{text("id"), rel("vendor", "nowhere")}},
		})
		err := ValidateTable(cat, cat["products"], 0)
		assert.ErrorIs(t, err, types.ErrDanglingReference)
	})

	t.Run("relationship to missing column", func(t *testing.T) {
		cat := NewCatalog([]types.Table{
			{Name: "vendors", Fields: []types.Field{text("code")}},
			{Name: "products", Fields: []types.Field{text("id"), rel("vendor", "vendors")}},
		})
		err := ValidateTable(cat, cat["products"], 0)
		assert.ErrorIs(t, err, types.ErrDanglingReference)
	})

	t.Run("relationship to columnless column", func(t *testing.T) {
		cat := NewCatalog([]types.Table{
			{Name: "vendors", Fields: []types.Field{
				{Name: "id", Type: types.FieldButton, Options: types.ButtonOptions{Action: "open"}}}},
			{Name: "products", Fields: []types.Field{text("x"), rel("vendor", "vendors")}},
		})
		err := ValidateTable(cat, cat["products"], 0)
		assert.ErrorIs(t, err, types.ErrDanglingReference)
	})
}

func TestProjectionSQL(t *testing.T) {
	t.Run("no lookups means no view", func(t *testing.T) {
		cat := shopCatalog()
		_, ok, err := ProjectionSQL(cat, cat["vendors"], 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("single hop projection", func(t *testing.T) {
		cat := shopCatalog()
		sql, ok, err := ProjectionSQL(cat, cat["products"], 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t,
			`SELECT "products".*, "vendor_city_1"."city" AS "vendor_city"`+
				` FROM "products"`+
				` LEFT JOIN "vendors" "vendor_city_1" ON "products"."vendor" = "vendor_city_1"."id"`,
			sql)
	})

	t.Run("chained projection joins every hop", func(t *testing.T) {
		cat := shopCatalog()
		sql, ok, err := ProjectionSQL(cat, cat["orders"], 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t,
			`SELECT "orders".*, "product_vendor_city_2"."city" AS "product_vendor_city"`+
				` FROM "orders"`+
				` LEFT JOIN "products" "product_vendor_city_1" ON "orders"."product" = "product_vendor_city_1"."id"`+
				` LEFT JOIN "vendors" "product_vendor_city_2" ON "product_vendor_city_1"."vendor" = "product_vendor_city_2"."id"`,
			sql)
	})
}

func TestProjectionViewName(t *testing.T) {
	assert.Equal(t, "products_resolved", ProjectionViewName("products"))
}
