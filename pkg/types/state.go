package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TableState is the normalized description of a table as it exists in the
// database. Produced by the introspector, consumed by the differ and the
// executor's stale-plan check. An absent table is a state with Exists false,
// not an error.
type TableState struct {
	Name        string
	Exists      bool
	Columns     []ColumnState
	Constraints []ConstraintState
	Indexes     []IndexState
	Views       []ViewState
}

// ColumnState describes one live column.
type ColumnState struct {
	Name     string
	DataType string
	NotNull  bool
	Default  string // normalized default expression, empty means none
}

// ConstraintState describes one live constraint, grouped by kind.
type ConstraintState struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string
	Check      string
	RefTable   string
	RefColumns []string
}

// IndexState describes one live index.
type IndexState struct {
	Name       string
	Method     string
	Unique     bool
	Columns    []string
	Expression string
}

// ViewState describes one live view.
type ViewState struct {
	Name       string
	Definition string
}

// Column returns the column with the given name and whether it exists.
func (s TableState) Column(name string) (ColumnState, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnState{}, false
}

// Fingerprint hashes the canonical rendering of the state. Two states with
// the same columns, constraints, indexes, and views (in any order) hash
// equal; any drift changes the value. Used by the executor to detect a
// stale plan and by the state store to version snapshots.
func (s TableState) Fingerprint() uint64 {
	return xxhash.Sum64String(s.canonical())
}

// canonical renders the state deterministically: one line per object,
// object lists sorted by name.
func (s TableState) canonical() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table %s exists=%t\n", s.Name, s.Exists)

	cols := append([]ColumnState(nil), s.Columns...)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	for _, c := range cols {
		fmt.Fprintf(&b, "column %s type=%s notnull=%t default=%s\n", c.Name, c.DataType, c.NotNull, c.Default)
	}

	cons := append([]ConstraintState(nil), s.Constraints...)
	sort.Slice(cons, func(i, j int) bool { return cons[i].Name < cons[j].Name })
	for _, c := range cons {
		fmt.Fprintf(&b, "constraint %s kind=%s cols=%s check=%s ref=%s(%s)\n",
			c.Name, c.Kind, strings.Join(c.Columns, ","), c.Check, c.RefTable, strings.Join(c.RefColumns, ","))
	}

	idxs := append([]IndexState(nil), s.Indexes...)
	sort.Slice(idxs, func(i, j int) bool { return idxs[i].Name < idxs[j].Name })
	for _, i := range idxs {
		fmt.Fprintf(&b, "index %s method=%s unique=%t cols=%s expr=%s\n",
			i.Name, i.Method, i.Unique, strings.Join(i.Columns, ","), i.Expression)
	}

	views := append([]ViewState(nil), s.Views...)
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	for _, v := range views {
		fmt.Fprintf(&b, "view %s def=%s\n", v.Name, v.Definition)
	}
	return b.String()
}
