package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekit/tablekit/pkg/types"
)

func attachedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{StateDir: t.TempDir()}))
	t.Cleanup(func() { s.Detach() })
	return s
}

func productsState(dataType string) types.TableState {
	return types.TableState{
		Name:   "products",
		Exists: true,
		Columns: []types.ColumnState{
			{Name: "id", DataType: "text", NotNull: true},
			{Name: "price", DataType: dataType},
		},
	}
}

func TestStore_AttachDetach(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()

	require.NoError(t, s.Attach(types.Config{StateDir: dir}))
	assert.FileExists(t, filepath.Join(dir, "tablekit.db"))

	assert.ErrorIs(t, s.Attach(types.Config{StateDir: dir}), types.ErrStoreAttached)

	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach(), "detach is idempotent")

	// Reattachable after detach.
	require.NoError(t, s.Attach(types.Config{StateDir: dir}))
	require.NoError(t, s.Detach())
}

func TestStore_AttachCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{StateDir: dir}))
	defer s.Detach()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_DetachedOperationsFail(t *testing.T) {
	s := NewStore()

	_, err := s.Record(productsState("numeric"))
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = s.Latest("products")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = s.History("products", 0)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, s.PutButtons(types.Table{Name: "products"}), types.ErrStoreDetached)
	_, err = s.Buttons("products")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestStore_RecordAssignsVersions(t *testing.T) {
	s := attachedStore(t)

	v1, err := s.Record(productsState("numeric"))
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	v2, err := s.Record(productsState("numeric(10,2)"))
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	// Versions are per table.
	other, err := s.Record(types.TableState{Name: "vendors", Exists: true})
	require.NoError(t, err)
	assert.Equal(t, 1, other)
}

func TestStore_LatestRoundTrip(t *testing.T) {
	s := attachedStore(t)

	state := productsState("numeric(10,2)")
	_, err := s.Record(productsState("numeric"))
	require.NoError(t, err)
	_, err = s.Record(state)
	require.NoError(t, err)

	snap, err := s.Latest("products")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, state.Fingerprint(), snap.Fingerprint)
	assert.Equal(t, state, snap.State)
	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestStore_LatestWithoutSnapshots(t *testing.T) {
	s := attachedStore(t)

	_, err := s.Latest("products")
	assert.ErrorIs(t, err, types.ErrNoSnapshot)
}

func TestStore_History(t *testing.T) {
	s := attachedStore(t)

	for _, dt := range []string{"numeric", "numeric(10,2)", "numeric(12,2)"} {
		_, err := s.Record(productsState(dt))
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		snaps, err := s.History("products", 0)
		require.NoError(t, err)
		require.Len(t, snaps, 3)
		assert.Equal(t, 3, snaps[0].Version)
		assert.Equal(t, 1, snaps[2].Version)
	})

	t.Run("limit truncates", func(t *testing.T) {
		snaps, err := s.History("products", 2)
		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.Equal(t, 3, snaps[0].Version)
	})

	t.Run("unknown table is empty, not an error", func(t *testing.T) {
		snaps, err := s.History("ghosts", 0)
		require.NoError(t, err)
		assert.Empty(t, snaps)
	})
}

func TestStore_DurableAcrossAttachments(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{StateDir: dir}))
	_, err := s.Record(productsState("numeric"))
	require.NoError(t, err)
	require.NoError(t, s.Detach())

	reopened := NewStore()
	require.NoError(t, reopened.Attach(types.Config{StateDir: dir}))
	defer reopened.Detach()

	snap, err := reopened.Latest("products")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
}

func TestStore_Buttons(t *testing.T) {
	s := attachedStore(t)

	tbl := types.Table{Name: "products", Fields: []types.Field{
		{Name: "title", Type: types.FieldSingleLineText},
		{Name: "reorder", Type: types.FieldButton,
			Options: types.ButtonOptions{Action: "reorder", VisibleWhen: "qty = 0"}},
		{Name: "archive", Type: types.FieldButton,
			Options: types.ButtonOptions{Action: "archive"}},
	}}
	require.NoError(t, s.PutButtons(tbl))

	buttons, err := s.Buttons("products")
	require.NoError(t, err)
	require.Len(t, buttons, 2, "only button fields are stored")
	assert.Equal(t, Button{Table: "products", Field: "archive", Action: "archive"}, buttons[0])
	assert.Equal(t, Button{Table: "products", Field: "reorder", Action: "reorder",
		VisibleWhen: "qty = 0"}, buttons[1])

	// Put replaces, never accumulates.
	tbl.Fields = tbl.Fields[:2]
	require.NoError(t, s.PutButtons(tbl))
	buttons, err = s.Buttons("products")
	require.NoError(t, err)
	require.Len(t, buttons, 1)
	assert.Equal(t, "reorder", buttons[0].Field)
}
