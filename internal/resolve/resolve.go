// Package resolve validates relationship and lookup declarations against
// the full table catalog and compiles lookup chains into join-based
// retrieval expressions. Chains traverse relationship fields hop by hop; a
// NULL relationship anywhere in the chain yields a NULL projection, never
// an error, because every hop is a LEFT JOIN.
package resolve

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tablekit/tablekit/pkg/types"
)

// Catalog indexes the declared tables by name.
type Catalog map[string]types.Table

// NewCatalog builds a Catalog from a table list.
func NewCatalog(tables []types.Table) Catalog {
	cat := make(Catalog, len(tables))
	for _, t := range tables {
		cat[t.Name] = t
	}
	return cat
}

// Join is one LEFT JOIN hop in a resolved chain. LocalAlias is empty for
// the first hop, meaning the base table itself.
type Join struct {
	LocalAlias   string
	LocalColumn  string
	TargetTable  string
	TargetColumn string
	Alias        string
}

// Lookup is a fully resolved lookup field: the join chain to walk and the
// physical column to project at its end.
type Lookup struct {
	Field        string // lookup field name on the base table
	Joins        []Join
	SourceAlias  string // alias holding the projected column
	SourceColumn string // physical column projected as Field
}

// quoteIdent sanitizes an identifier for SQL assembly.
func quoteIdent(name string) string { return pgx.Identifier{name}.Sanitize() }

// Field resolves one lookup field on t to its join chain. maxDepth bounds
// the number of hops; cycles are detected by a visited set independently of
// the bound.
func Field(cat Catalog, t types.Table, f types.Field, maxDepth int) (Lookup, error) {
	if maxDepth <= 0 {
		maxDepth = types.DefaultMaxLookupDepth
	}
	lk := Lookup{Field: f.Name}
	visited := make(map[string]bool)

	cur := t
	cf := f
	localAlias := ""
	for hop := 0; ; hop++ {
		o, ok := cf.Options.(types.LookupOptions)
		if !ok {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name,
				Err: fmt.Errorf("%w: %q is not a lookup field", types.ErrDanglingReference, cf.Name)}
		}

		node := cur.Name + "." + cf.Name
		if visited[node] {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name, Err: types.ErrLookupCycle}
		}
		visited[node] = true
		if hop >= maxDepth {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name, Err: types.ErrLookupDepthExceeded}
		}

		rel, ok := cur.Field(o.RelationshipField)
		if !ok {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name,
				Err: fmt.Errorf("%w: relationship field %q on table %q", types.ErrDanglingReference, o.RelationshipField, cur.Name)}
		}
		ro, ok := rel.Options.(types.RelationshipOptions)
		if !ok {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name,
				Err: fmt.Errorf("%w: %q on table %q", types.ErrNotARelationship, rel.Name, cur.Name)}
		}
		target, ok := cat[ro.TargetTable]
		if !ok {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name,
				Err: fmt.Errorf("%w: target table %q", types.ErrDanglingReference, ro.TargetTable)}
		}
		tf, ok := target.Field(o.LookupField)
		if !ok {
			return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name,
				Err: fmt.Errorf("%w: field %q on table %q", types.ErrDanglingReference, o.LookupField, ro.TargetTable)}
		}

		alias := fmt.Sprintf("%s_%d", f.Name, hop+1)
		lk.Joins = append(lk.Joins, Join{
			LocalAlias:   localAlias,
			LocalColumn:  rel.Name,
			TargetTable:  target.Name,
			TargetColumn: ro.TargetColumn,
			Alias:        alias,
		})

		if tf.Type != types.FieldLookup {
			if tf.IsVirtual() {
				return Lookup{}, &types.ResolutionError{Table: t.Name, Field: f.Name,
					Err: fmt.Errorf("%w: chain ends at columnless field %q", types.ErrDanglingReference, tf.Name)}
			}
			lk.SourceAlias = alias
			lk.SourceColumn = tf.Name
			return lk, nil
		}

		// The target field is itself a lookup; keep walking on the target
		// table.
		cur = target
		cf = tf
		localAlias = alias
	}
}

// Table resolves every lookup field on t, in declared field order.
func Table(cat Catalog, t types.Table, maxDepth int) ([]Lookup, error) {
	var out []Lookup
	for _, f := range t.Fields {
		if f.Type != types.FieldLookup {
			continue
		}
		lk, err := Field(cat, t, f, maxDepth)
		if err != nil {
			return nil, err
		}
		out = append(out, lk)
	}
	return out, nil
}

// ValidateTable checks every relationship and lookup declaration on t
// against the catalog: relationship targets exist and are physical, lookup
// chains terminate, and no chain cycles or exceeds maxDepth.
func ValidateTable(cat Catalog, t types.Table, maxDepth int) error {
	for _, f := range t.Fields {
		switch f.Type {
		case types.FieldRelationship:
			o, ok := f.Options.(types.RelationshipOptions)
			if !ok {
				continue // caught by Field.Validate
			}
			target, found := cat[o.TargetTable]
			if !found {
				return &types.ResolutionError{Table: t.Name, Field: f.Name,
					Err: fmt.Errorf("%w: target table %q", types.ErrDanglingReference, o.TargetTable)}
			}
			tc, found := target.Field(o.TargetColumn)
			if !found {
				return &types.ResolutionError{Table: t.Name, Field: f.Name,
					Err: fmt.Errorf("%w: target column %q on table %q", types.ErrDanglingReference, o.TargetColumn, o.TargetTable)}
			}
			if tc.IsVirtual() {
				return &types.ResolutionError{Table: t.Name, Field: f.Name,
					Err: fmt.Errorf("%w: target column %q is columnless", types.ErrDanglingReference, o.TargetColumn)}
			}
		case types.FieldLookup:
			if _, err := Field(cat, t, f, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProjectionViewName returns the name of the table's companion view that
// materializes its lookup projections.
func ProjectionViewName(table string) string { return table + "_resolved" }

// ProjectionSQL compiles the SELECT definition of the companion view: all
// base columns plus one projected column per lookup field. Returns ok=false
// when the table declares no lookup fields and needs no view.
func ProjectionSQL(cat Catalog, t types.Table, maxDepth int) (string, bool, error) {
	lookups, err := Table(cat, t, maxDepth)
	if err != nil {
		return "", false, err
	}
	if len(lookups) == 0 {
		return "", false, nil
	}

	base := quoteIdent(t.Name)
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(base + ".*")
	for _, lk := range lookups {
		fmt.Fprintf(&b, ", %s.%s AS %s",
			quoteIdent(lk.SourceAlias), quoteIdent(lk.SourceColumn), quoteIdent(lk.Field))
	}
	b.WriteString(" FROM " + base)
	for _, lk := range lookups {
		for _, j := range lk.Joins {
			local := base
			if j.LocalAlias != "" {
				local = quoteIdent(j.LocalAlias)
			}
			fmt.Fprintf(&b, " LEFT JOIN %s %s ON %s.%s = %s.%s",
				quoteIdent(j.TargetTable), quoteIdent(j.Alias),
				local, quoteIdent(j.LocalColumn),
				quoteIdent(j.Alias), quoteIdent(j.TargetColumn))
		}
	}
	return b.String(), true, nil
}
