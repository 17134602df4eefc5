// Package introspect reads the live database catalog and produces the
// normalized TableState the differ and executor consume. It is strictly
// read-only and never issues DDL. A table that does not exist yet is an
// explicit absent state, not an error.
package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tablekit/tablekit/internal/resolve"
	"github.com/tablekit/tablekit/pkg/types"
)

// Querier is the read surface needed from a pgx connection, pool, or
// transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Introspector reads one schema of a PostgreSQL database.
type Introspector struct {
	db     Querier
	schema string
}

// New creates an Introspector over db. An empty schema name means "public".
func New(db Querier, schema string) *Introspector {
	if schema == "" {
		schema = "public"
	}
	return &Introspector{db: db, schema: schema}
}

// Table returns the normalized state of the named table. Exists is false
// when the table is not present; the rest of the state is empty in that
// case. A table that exists with zero columns is a valid state.
func (in *Introspector) Table(ctx context.Context, name string) (types.TableState, error) {
	state := types.TableState{Name: name}

	exists, err := in.tableExists(ctx, name)
	if err != nil {
		return state, fmt.Errorf("checking table %s: %w", name, err)
	}
	if !exists {
		return state, nil
	}
	state.Exists = true

	if state.Columns, err = in.columns(ctx, name); err != nil {
		return state, fmt.Errorf("introspecting columns of %s: %w", name, err)
	}
	if state.Constraints, err = in.constraints(ctx, name); err != nil {
		return state, fmt.Errorf("introspecting constraints of %s: %w", name, err)
	}
	if state.Indexes, err = in.indexes(ctx, name); err != nil {
		return state, fmt.Errorf("introspecting indexes of %s: %w", name, err)
	}
	if state.Views, err = in.views(ctx, name); err != nil {
		return state, fmt.Errorf("introspecting views of %s: %w", name, err)
	}
	return state, nil
}

func (in *Introspector) tableExists(ctx context.Context, name string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2 AND table_type = 'BASE TABLE'
		)`
	rows, err := in.db.Query(ctx, query, in.schema, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	var exists bool
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			return false, err
		}
	}
	return exists, rows.Err()
}

func (in *Introspector) columns(ctx context.Context, name string) ([]types.ColumnState, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			COALESCE(c.column_default, ''),
			c.udt_name,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := in.db.Query(ctx, query, in.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []types.ColumnState
	for rows.Next() {
		var col types.ColumnState
		var nullable, dataType, udtName string
		var charMaxLen, precision, scale *int
		if err := rows.Scan(&col.Name, &dataType, &nullable, &col.Default,
			&udtName, &charMaxLen, &precision, &scale); err != nil {
			return nil, err
		}
		col.NotNull = nullable == "NO"
		col.DataType = normalizeType(dataType, udtName, charMaxLen, precision, scale)
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (in *Introspector) constraints(ctx context.Context, name string) ([]types.ConstraintState, error) {
	const query = `
		SELECT
			c.conname,
			c.contype::text,
			ARRAY(
				SELECT a.attname FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			),
			pg_get_constraintdef(c.oid),
			COALESCE(rt.relname, ''),
			ARRAY(
				SELECT a.attname FROM unnest(c.confkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = c.confrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			)
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		LEFT JOIN pg_class rt ON rt.oid = c.confrelid
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY c.conname`

	rows, err := in.db.Query(ctx, query, in.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cons []types.ConstraintState
	for rows.Next() {
		var c types.ConstraintState
		var contype, definition string
		if err := rows.Scan(&c.Name, &contype, &c.Columns, &definition, &c.RefTable, &c.RefColumns); err != nil {
			return nil, err
		}
		switch contype {
		case "c":
			c.Kind = types.ConstraintCheck
			c.Check = strings.TrimPrefix(definition, "CHECK ")
		case "u":
			c.Kind = types.ConstraintUnique
			c.RefTable, c.RefColumns = "", nil
		case "p":
			c.Kind = types.ConstraintPrimaryKey
			c.RefTable, c.RefColumns = "", nil
		case "f":
			c.Kind = types.ConstraintForeignKey
		default:
			// Exclusion and trigger constraints are outside the model.
			continue
		}
		cons = append(cons, c)
	}
	return cons, rows.Err()
}

func (in *Introspector) indexes(ctx context.Context, name string) ([]types.IndexState, error) {
	// Indexes backing a constraint (unique, primary key) are represented
	// as constraints, not as standalone indexes.
	const query = `
		SELECT
			i.relname,
			am.amname,
			ix.indisunique,
			ARRAY(
				SELECT a.attname FROM unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
				WHERE k.attnum > 0
				ORDER BY k.ord
			),
			COALESCE(pg_get_expr(ix.indexprs, t.oid), '')
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1 AND t.relname = $2
			AND NOT ix.indisprimary
			AND NOT EXISTS (SELECT 1 FROM pg_constraint cc WHERE cc.conindid = ix.indexrelid)
		ORDER BY i.relname`

	rows, err := in.db.Query(ctx, query, in.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var idxs []types.IndexState
	for rows.Next() {
		var idx types.IndexState
		if err := rows.Scan(&idx.Name, &idx.Method, &idx.Unique, &idx.Columns, &idx.Expression); err != nil {
			return nil, err
		}
		idxs = append(idxs, idx)
	}
	return idxs, rows.Err()
}

func (in *Introspector) views(ctx context.Context, name string) ([]types.ViewState, error) {
	const query = `
		SELECT viewname, definition
		FROM pg_views
		WHERE schemaname = $1 AND viewname = $2`

	rows, err := in.db.Query(ctx, query, in.schema, resolve.ProjectionViewName(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []types.ViewState
	for rows.Next() {
		var v types.ViewState
		if err := rows.Scan(&v.Name, &v.Definition); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// normalizeType maps verbose catalog type names to the compact forms the
// registry emits, so that a freshly migrated table diffs clean.
func normalizeType(dataType, udtName string, charMaxLen, precision, scale *int) string {
	switch dataType {
	case "character varying":
		if charMaxLen != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLen)
		}
		return "varchar"
	case "character":
		if charMaxLen != nil {
			return fmt.Sprintf("char(%d)", *charMaxLen)
		}
		return "char"
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "numeric":
		if precision != nil && *precision > 0 {
			s := 0
			if scale != nil {
				s = *scale
			}
			return fmt.Sprintf("numeric(%d,%d)", *precision, s)
		}
		return "numeric"
	case "ARRAY":
		// udt_name carries an underscore prefix for arrays, e.g. "_int4".
		if strings.HasPrefix(udtName, "_") {
			return normalizeUDT(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUDT converts internal element type names to their SQL spellings.
func normalizeUDT(udt string) string {
	switch udt {
	case "int2":
		return "smallint"
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udt
	}
}
