// Package view projects a table's views into the retrieval contract the
// data-access layer consumes: an ordered, visibility-flagged column list.
// Views are read-side only and never alter the underlying table.
package view

import (
	"fmt"
	"sort"

	"github.com/tablekit/tablekit/pkg/types"
)

// Column is one entry of a compiled view: the field it shows and how.
type Column struct {
	Field   string
	Type    types.FieldType
	Visible bool
	Order   int // final render order, 1-based, unique within the contract
	Width   int // 0 means unset
}

// Contract is the compiled form of one view. It is the only interface the
// presentation layer needs; raw column metadata stays inside the engine.
type Contract struct {
	Table   string
	View    string
	Type    types.ViewType
	Columns []Column
}

// Visible returns the visible columns in render order.
func (c Contract) Visible() []Column {
	out := make([]Column, 0, len(c.Columns))
	for _, col := range c.Columns {
		if col.Visible {
			out = append(out, col)
		}
	}
	return out
}

// Compile validates v against t and produces its contract. Listed fields
// render first, ordered by explicit order where given and declaration
// position otherwise; fields the view does not mention default to visible
// and follow in table declaration order.
func Compile(t types.Table, v types.View) (Contract, error) {
	if err := v.Validate(t); err != nil {
		return Contract{}, err
	}

	type entry struct {
		col  Column
		sort int
		seq  int
	}
	listed := make(map[string]bool, len(v.Fields))
	entries := make([]entry, 0, len(t.Fields))
	for i, vf := range v.Fields {
		f, ok := t.Field(vf.Field)
		if !ok {
			// Validate already guarantees membership.
			return Contract{}, &types.ValidationError{Table: t.Name, Field: vf.Field,
				Err: fmt.Errorf("%w: view %q", types.ErrDanglingReference, v.Name)}
		}
		listed[vf.Field] = true
		sortKey := vf.Order
		if sortKey == 0 {
			sortKey = i + 1
		}
		entries = append(entries, entry{
			col: Column{
				Field:   f.Name,
				Type:    f.Type,
				Visible: vf.Visible,
				Width:   vf.Width,
			},
			sort: sortKey,
			seq:  i,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].sort != entries[j].sort {
			return entries[i].sort < entries[j].sort
		}
		return entries[i].seq < entries[j].seq
	})

	contract := Contract{Table: t.Name, View: v.Name, Type: v.Type}
	for i, e := range entries {
		e.col.Order = i + 1
		contract.Columns = append(contract.Columns, e.col)
	}
	// Fields absent from the view's list default to visible, after the
	// listed ones, in declaration order.
	next := len(contract.Columns) + 1
	for _, f := range t.Fields {
		if listed[f.Name] {
			continue
		}
		contract.Columns = append(contract.Columns, Column{
			Field:   f.Name,
			Type:    f.Type,
			Visible: true,
			Order:   next,
		})
		next++
	}
	return contract, nil
}

// CompileAll compiles every view of t.
func CompileAll(t types.Table) ([]Contract, error) {
	out := make([]Contract, 0, len(t.Views))
	for _, v := range t.Views {
		c, err := Compile(t, v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
