package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekit/tablekit/pkg/types"
)

func textField(name string) types.Field {
	return types.Field{Name: name, Type: types.FieldSingleLineText}
}

func idField() types.Field {
	f := textField("id")
	f.Required = true
	return f
}

func TestReconcile_CreateThenConverge(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	name := uniqueName("products")
	dropTables(t, pool, name)
	tbl := types.Table{
		Name: name,
		Fields: []types.Field{
			idField(),
			{Name: "sku", Type: types.FieldSingleLineText, Unique: true,
				Options: types.TextOptions{MaxLength: 30}},
			{Name: "price", Type: types.FieldDecimal, Indexed: true,
				Options: types.DecimalOptions{Precision: 10, Scale: 2}},
		},
		PrimaryKey: []string{"id"},
	}

	res, err := eng.Reconcile(ctx, tbl)
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.NotEmpty(t, res.Applied)
	assert.Equal(t, int64(1), res.Version)

	state, err := eng.Inspect(ctx, name)
	require.NoError(t, err)
	require.True(t, state.Exists)
	col, ok := state.Column("sku")
	require.True(t, ok)
	assert.Equal(t, "varchar(30)", col.DataType)

	// A second reconcile of the unchanged declaration must not touch the
	// database.
	res, err = eng.Reconcile(ctx, tbl)
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Empty(t, res.Applied)
}

func TestReconcile_ChecksAreEnforced(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	name := uniqueName("reviews")
	dropTables(t, pool, name)
	tbl := types.Table{
		Name: name,
		Fields: []types.Field{
			idField(),
			{Name: "stars", Type: types.FieldRating, Options: types.RatingOptions{Min: 1, Max: 5}},
			{Name: "shade", Type: types.FieldColor},
		},
		PrimaryKey: []string{"id"},
	}
	_, err := eng.Reconcile(ctx, tbl)
	require.NoError(t, err)

	insert := fmt.Sprintf(`INSERT INTO %q (id, stars, shade) VALUES ($1, $2, $3)`, name)

	_, err = pool.Exec(ctx, insert, "r1", 3, "#a1b2c3")
	assert.NoError(t, err)

	_, err = pool.Exec(ctx, insert, "r2", 9, "#a1b2c3")
	assert.Error(t, err, "rating outside its bounds must be rejected")

	_, err = pool.Exec(ctx, insert, "r3", 3, "not-a-color")
	assert.Error(t, err, "malformed color must be rejected")

	assert.Equal(t, 1, countRows(t, pool, name))
}

func TestReconcile_AddFieldPreservesData(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	name := uniqueName("inventory")
	dropTables(t, pool, name)
	v1 := types.Table{
		Name: name,
		Fields: []types.Field{
			idField(),
			{Name: "title", Type: types.FieldSingleLineText, Options: types.TextOptions{MaxLength: 30}},
		},
		PrimaryKey: []string{"id"},
	}
	_, err := eng.Reconcile(ctx, v1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := pool.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %q (id, title) VALUES ($1, $2)`, name),
			fmt.Sprintf("row%d", i), fmt.Sprintf("item %d", i))
		require.NoError(t, err)
	}

	// Widen title to unbounded text and add a column.
	v2 := v1
	v2.Fields = []types.Field{
		idField(),
		textField("title"),
		{Name: "qty", Type: types.FieldInteger},
	}
	res, err := eng.Reconcile(ctx, v2)
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.Equal(t, int64(2), res.Version)

	assert.Equal(t, 3, countRows(t, pool, name))
	state, err := eng.Inspect(ctx, name)
	require.NoError(t, err)
	col, ok := state.Column("title")
	require.True(t, ok)
	assert.Equal(t, "text", col.DataType)
	_, ok = state.Column("qty")
	assert.True(t, ok)
}

func TestReconcile_UncastableChangeLeavesTableIntact(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	name := uniqueName("stock")
	dropTables(t, pool, name)
	v1 := types.Table{
		Name:       name,
		Fields:     []types.Field{idField(), {Name: "qty", Type: types.FieldInteger}},
		PrimaryKey: []string{"id"},
	}
	_, err := eng.Reconcile(ctx, v1)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %q (id, qty) VALUES ('a', 7)`, name))
	require.NoError(t, err)

	v2 := v1
	v2.Fields = []types.Field{idField(), {Name: "qty", Type: types.FieldCheckbox}}
	_, err = eng.Reconcile(ctx, v2)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUncastableTypeChange)

	// Dry validation failed before any DDL ran.
	state, err := eng.Inspect(ctx, name)
	require.NoError(t, err)
	col, ok := state.Column("qty")
	require.True(t, ok)
	assert.Equal(t, "integer", col.DataType)
	assert.Equal(t, 1, countRows(t, pool, name))
}

func TestReconcile_SnapshotHistory(t *testing.T) {
	eng := newTestEngine(t)
	pool := connect(t)
	ctx := context.Background()

	name := uniqueName("ledger")
	dropTables(t, pool, name)
	tbl := types.Table{
		Name:       name,
		Fields:     []types.Field{idField()},
		PrimaryKey: []string{"id"},
	}
	_, err := eng.Reconcile(ctx, tbl)
	require.NoError(t, err)

	tbl.Fields = append(tbl.Fields, textField("note"))
	_, err = eng.Reconcile(ctx, tbl)
	require.NoError(t, err)

	snaps, err := eng.Store().History(name, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 2, snaps[0].Version)
	assert.Equal(t, 1, snaps[1].Version)

	// The latest snapshot matches what the database reports now.
	state, err := eng.Inspect(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, state.Fingerprint(), snaps[0].Fingerprint)
}
