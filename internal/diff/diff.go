// Package diff compares a declared table against its introspected state and
// emits the ordered operation list that converges the live schema on the
// declaration by the least destructive path. Columns, constraints, and
// indexes are diffed independently so that dependent objects are always
// detached before the column they reference is dropped.
package diff

import (
	"fmt"

	"github.com/tablekit/tablekit/internal/registry"
	"github.com/tablekit/tablekit/internal/resolve"
	"github.com/tablekit/tablekit/pkg/types"
)

// Differ computes migration plans. The catalog is needed to compile lookup
// projection views for tables that declare lookup fields.
type Differ struct {
	catalog  resolve.Catalog
	maxDepth int
}

// New creates a Differ over the given catalog. maxDepth bounds lookup
// chain resolution.
func New(catalog resolve.Catalog, maxDepth int) *Differ {
	if maxDepth <= 0 {
		maxDepth = types.DefaultMaxLookupDepth
	}
	return &Differ{catalog: catalog, maxDepth: maxDepth}
}

// desired is the physical model a declared table should materialize as.
type desired struct {
	columns     []types.ColumnSpec
	constraints []types.ConstraintSpec // checks, uniques, foreign keys, primary key
	indexes     []types.IndexSpec
	viewName    string // companion lookup view, empty when no lookups
	viewSQL     string
}

// build maps the declaration to its physical model through the registry,
// in declared field order.
func (d *Differ) build(t types.Table) (*desired, error) {
	out := &desired{}
	for _, f := range t.Fields {
		col, err := registry.Column(f)
		if err != nil {
			return nil, &types.ValidationError{Table: t.Name, Field: f.Name, Err: err}
		}
		if col == nil {
			continue
		}
		out.columns = append(out.columns, *col)

		check, err := registry.Check(t.Name, f)
		if err != nil {
			return nil, &types.ValidationError{Table: t.Name, Field: f.Name, Err: err}
		}
		if check != nil {
			out.constraints = append(out.constraints, *check)
		}
		if uq := registry.Unique(t.Name, f); uq != nil {
			out.constraints = append(out.constraints, *uq)
		}
		if fk := registry.ForeignKey(t.Name, f); fk != nil {
			out.constraints = append(out.constraints, *fk)
		}
		if idx := registry.Index(t.Name, f); idx != nil {
			out.indexes = append(out.indexes, *idx)
		}
	}
	if len(t.PrimaryKey) > 0 {
		out.constraints = append(out.constraints, types.ConstraintSpec{
			Name:    registry.PrimaryKeyName(t.Name),
			Kind:    types.ConstraintPrimaryKey,
			Columns: append([]string(nil), t.PrimaryKey...),
		})
	}
	viewSQL, hasView, err := resolve.ProjectionSQL(d.catalog, t, d.maxDepth)
	if err != nil {
		return nil, err
	}
	if hasView {
		out.viewName = resolve.ProjectionViewName(t.Name)
		out.viewSQL = viewSQL
	}
	return out, nil
}

// Diff computes the plan that transforms current into the physical model of
// the declared table. The plan is bound to current's fingerprint so the
// executor can detect drift before applying it. Dry validation runs first:
// an uncastable type change or an unsupported composite-object migration
// fails here, before any DDL is generated.
func (d *Differ) Diff(t types.Table, current types.TableState) (types.Plan, error) {
	if err := t.Validate(); err != nil {
		return types.Plan{}, err
	}
	if err := resolve.ValidateTable(d.catalog, t, d.maxDepth); err != nil {
		return types.Plan{}, err
	}
	want, err := d.build(t)
	if err != nil {
		return types.Plan{}, err
	}

	plan := types.Plan{Table: t.Name, Baseline: current.Fingerprint()}
	if !current.Exists {
		plan.Ops = d.createOps(t, want)
		return plan, nil
	}

	ops, err := d.alterOps(t, want, current)
	if err != nil {
		return types.Plan{}, err
	}
	plan.Ops = ops
	return plan, nil
}

// createOps builds the full creation plan for an absent table.
func (d *Differ) createOps(t types.Table, want *desired) []types.Operation {
	ops := []types.Operation{types.CreateTable{
		Name:       t.Name,
		Columns:    want.columns,
		PrimaryKey: append([]string(nil), t.PrimaryKey...),
	}}
	for _, c := range want.constraints {
		if c.Kind == types.ConstraintPrimaryKey {
			continue // inlined in CreateTable
		}
		ops = append(ops, types.AddConstraint{Table: t.Name, Constraint: c})
	}
	for _, idx := range want.indexes {
		ops = append(ops, types.CreateIndex{Table: t.Name, Index: idx})
	}
	if want.viewName != "" {
		ops = append(ops, types.CreateView{Table: t.Name,
			View: types.ViewSpec{Name: want.viewName, Definition: want.viewSQL}})
	}
	return sortByPhase(ops)
}

// alterOps diffs an existing table field by field, constraints and indexes
// independently of their owning columns.
func (d *Differ) alterOps(t types.Table, want *desired, current types.TableState) ([]types.Operation, error) {
	wantCols := make(map[string]types.ColumnSpec, len(want.columns))
	for _, c := range want.columns {
		wantCols[c.Name] = c
	}
	haveCols := make(map[string]types.ColumnState, len(current.Columns))
	for _, c := range current.Columns {
		haveCols[c.Name] = c
	}
	removed := make(map[string]bool)
	for _, c := range current.Columns {
		if _, keep := wantCols[c.Name]; !keep {
			removed[c.Name] = true
		}
	}

	// Dry validation before emitting anything.
	for _, c := range want.columns {
		have, ok := haveCols[c.Name]
		if !ok {
			continue
		}
		if !typesEqual(have.DataType, c.DataType) && !castable(have.DataType, c.DataType) {
			return nil, &types.ValidationError{Table: t.Name, Field: c.Name,
				Err: fmt.Errorf("%w: %s -> %s", types.ErrUncastableTypeChange, have.DataType, c.DataType)}
		}
	}
	for _, cons := range current.Constraints {
		if spansRemovedAndKept(cons.Columns, removed) {
			return nil, &types.ValidationError{Table: t.Name,
				Err: fmt.Errorf("%w: constraint %q spans removed and kept columns", types.ErrUnsupportedMigration, cons.Name)}
		}
	}
	for _, idx := range current.Indexes {
		if spansRemovedAndKept(idx.Columns, removed) {
			return nil, &types.ValidationError{Table: t.Name,
				Err: fmt.Errorf("%w: index %q spans removed and kept columns", types.ErrUnsupportedMigration, idx.Name)}
		}
	}

	var ops []types.Operation

	// Constraints, by generated name.
	wantCons := make(map[string]types.ConstraintSpec, len(want.constraints))
	for _, c := range want.constraints {
		wantCons[c.Name] = c
	}
	haveCons := make(map[string]types.ConstraintState, len(current.Constraints))
	for _, c := range current.Constraints {
		haveCons[c.Name] = c
		w, keep := wantCons[c.Name]
		if keep && constraintsEqual(w, c) {
			continue
		}
		ops = append(ops, types.DropConstraint{Table: t.Name, Constraint: constraintSpecOf(c)})
	}
	for _, c := range want.constraints {
		if h, ok := haveCons[c.Name]; ok && constraintsEqual(c, h) {
			continue
		}
		ops = append(ops, types.AddConstraint{Table: t.Name, Constraint: c})
	}

	// Indexes, by generated name.
	wantIdx := make(map[string]types.IndexSpec, len(want.indexes))
	for _, i := range want.indexes {
		wantIdx[i.Name] = i
	}
	haveIdx := make(map[string]types.IndexState, len(current.Indexes))
	for _, i := range current.Indexes {
		haveIdx[i.Name] = i
		w, keep := wantIdx[i.Name]
		if keep && indexesEqual(w, i) {
			continue
		}
		ops = append(ops, types.DropIndex{Table: t.Name, Index: indexSpecOf(i)})
	}
	for _, i := range want.indexes {
		if h, ok := haveIdx[i.Name]; ok && indexesEqual(i, h) {
			continue
		}
		ops = append(ops, types.CreateIndex{Table: t.Name, Index: i})
	}

	// Columns: removals in introspected order, additions and type changes
	// in declared field order.
	for _, c := range current.Columns {
		if removed[c.Name] {
			ops = append(ops, types.DropColumn{Table: t.Name, Column: columnSpecOf(c)})
		}
	}
	for _, c := range want.columns {
		have, ok := haveCols[c.Name]
		if !ok {
			ops = append(ops, types.AddColumn{Table: t.Name, Column: c})
			continue
		}
		if !typesEqual(have.DataType, c.DataType) {
			ops = append(ops, types.AlterColumnType{
				Table: t.Name, Column: c.Name, From: have.DataType, To: c.DataType,
			})
		}
		if !defaultsEqual(have.Default, c.Default) {
			ops = append(ops, types.AlterColumnDefault{
				Table: t.Name, Column: c.Name, From: have.Default, To: c.Default,
			})
		}
		// Nullability is a column attribute but migrates as a constraint
		// operation so it phases correctly around the type change.
		if c.NotNull && !have.NotNull {
			ops = append(ops, types.AddConstraint{Table: t.Name, Constraint: notNullSpec(t.Name, c.Name)})
		}
		if !c.NotNull && have.NotNull {
			ops = append(ops, types.DropConstraint{Table: t.Name, Constraint: notNullSpec(t.Name, c.Name)})
		}
	}

	// Companion lookup view: recreate when schema work is planned or the
	// view is missing or stale-by-name; drop when no lookups remain.
	haveView := findView(current.Views, resolve.ProjectionViewName(t.Name))
	switch {
	case want.viewName == "" && haveView != nil:
		ops = append(ops, types.DropView{Table: t.Name, View: *haveView})
	case want.viewName != "" && haveView == nil:
		ops = append(ops, types.CreateView{Table: t.Name,
			View: types.ViewSpec{Name: want.viewName, Definition: want.viewSQL}})
	case want.viewName != "" && haveView != nil && len(ops) > 0:
		// Any structural change may invalidate the projection; rebuild it.
		ops = append(ops,
			types.DropView{Table: t.Name, View: *haveView},
			types.CreateView{Table: t.Name,
				View: types.ViewSpec{Name: want.viewName, Definition: want.viewSQL}})
	}

	return sortByPhase(ops), nil
}

// sortByPhase orders operations by execution phase, preserving generation
// order within each phase for determinism.
func sortByPhase(ops []types.Operation) []types.Operation {
	out := make([]types.Operation, 0, len(ops))
	for phase := types.PhaseCreateTable; phase <= types.PhaseDropTable; phase++ {
		for _, op := range ops {
			if op.Phase() == phase {
				out = append(out, op)
			}
		}
	}
	return out
}

func spansRemovedAndKept(columns []string, removed map[string]bool) bool {
	if len(columns) < 2 {
		return false
	}
	var hasRemoved, hasKept bool
	for _, c := range columns {
		if removed[c] {
			hasRemoved = true
		} else {
			hasKept = true
		}
	}
	return hasRemoved && hasKept
}

func typesEqual(a, b string) bool { return parseType(a) == parseType(b) }

// defaultsEqual compares default expressions through the same normalization
// as check expressions: the catalog reports `'draft'::text` for a declared
// `'draft'`.
func defaultsEqual(a, b string) bool { return normalizeExpr(a) == normalizeExpr(b) }

func constraintsEqual(w types.ConstraintSpec, h types.ConstraintState) bool {
	if w.Kind != h.Kind || !stringsEqual(w.Columns, h.Columns) {
		return false
	}
	switch w.Kind {
	case types.ConstraintCheck:
		return normalizeExpr(w.Check) == normalizeExpr(h.Check)
	case types.ConstraintForeignKey:
		return w.RefTable == h.RefTable && stringsEqual(w.RefColumns, h.RefColumns)
	}
	return true
}

func indexesEqual(w types.IndexSpec, h types.IndexState) bool {
	if w.Method != h.Method || w.Unique != h.Unique {
		return false
	}
	if w.Expression != "" || h.Expression != "" {
		return normalizeExpr(w.Expression) == normalizeExpr(h.Expression)
	}
	return stringsEqual(w.Columns, h.Columns)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func constraintSpecOf(c types.ConstraintState) types.ConstraintSpec {
	return types.ConstraintSpec{
		Name: c.Name, Kind: c.Kind, Columns: c.Columns,
		Check: c.Check, RefTable: c.RefTable, RefColumns: c.RefColumns,
	}
}

func indexSpecOf(i types.IndexState) types.IndexSpec {
	return types.IndexSpec{
		Name: i.Name, Method: i.Method, Unique: i.Unique,
		Columns: i.Columns, Expression: i.Expression,
	}
}

func columnSpecOf(c types.ColumnState) types.ColumnSpec {
	return types.ColumnSpec{Name: c.Name, DataType: c.DataType, NotNull: c.NotNull, Default: c.Default}
}

func notNullSpec(table, column string) types.ConstraintSpec {
	return types.ConstraintSpec{
		Name:    "nn_" + table + "_" + column,
		Kind:    types.ConstraintNotNull,
		Columns: []string{column},
	}
}

func findView(views []types.ViewState, name string) *types.ViewSpec {
	for _, v := range views {
		if v.Name == name {
			return &types.ViewSpec{Name: v.Name, Definition: v.Definition}
		}
	}
	return nil
}
