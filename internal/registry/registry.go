// Package registry maps abstract field types to column specifications:
// native storage type, check-constraint expressions, and the default
// indexing strategy. Lookups are pure functions over the field declaration;
// unknown type tags are a validation-time error, never a migration-time one.
package registry

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tablekit/tablekit/pkg/types"
)

// Generated object name prefixes. The differ matches live objects against
// declared fields by these deterministic names.
const (
	checkPrefix      = "ck_"
	uniquePrefix     = "uq_"
	foreignKeyPrefix = "fk_"
	indexPrefix      = "ix_"
	primaryKeySuffix = "_pkey"
)

// CheckName returns the generated name for a field's check constraint.
func CheckName(table, field string) string { return checkPrefix + table + "_" + field }

// UniqueName returns the generated name for a field's unique constraint.
func UniqueName(table, field string) string { return uniquePrefix + table + "_" + field }

// ForeignKeyName returns the generated name for a relationship field's
// foreign-key constraint.
func ForeignKeyName(table, field string) string { return foreignKeyPrefix + table + "_" + field }

// IndexName returns the generated name for a field's index.
func IndexName(table, field string) string { return indexPrefix + table + "_" + field }

// PrimaryKeyName returns the generated name for a table's primary key.
func PrimaryKeyName(table string) string { return table + primaryKeySuffix }

// quoteIdent sanitizes an identifier for inclusion in a check expression.
func quoteIdent(name string) string { return pgx.Identifier{name}.Sanitize() }

// arrayElementTypes maps array item tags to native element types.
var arrayElementTypes = map[types.FieldType]string{
	types.FieldSingleLineText: "text",
	types.FieldInteger:        "integer",
	types.FieldDecimal:        "numeric",
	types.FieldCheckbox:       "boolean",
	types.FieldDate:           "timestamptz",
}

// ColumnType returns the native column type for a physical field.
func ColumnType(f types.Field) (string, error) {
	switch f.Type {
	case types.FieldSingleLineText:
		if o, ok := f.Options.(types.TextOptions); ok && o.MaxLength > 0 {
			return fmt.Sprintf("varchar(%d)", o.MaxLength), nil
		}
		return "text", nil
	case types.FieldRichText:
		return "text", nil
	case types.FieldInteger:
		return "integer", nil
	case types.FieldDecimal:
		if o, ok := f.Options.(types.DecimalOptions); ok && o.Precision > 0 {
			return fmt.Sprintf("numeric(%d,%d)", o.Precision, o.Scale), nil
		}
		return "numeric", nil
	case types.FieldCheckbox:
		return "boolean", nil
	case types.FieldDate:
		return "timestamptz", nil
	case types.FieldColor:
		// Fixed-width: "#RRGGBB".
		return "char(7)", nil
	case types.FieldRating:
		return "integer", nil
	case types.FieldBarcode:
		return "varchar(128)", nil
	case types.FieldArray:
		o, ok := f.Options.(types.ArrayOptions)
		if !ok {
			return "", fmt.Errorf("%w: array field requires options", types.ErrInvalidConstraint)
		}
		elem, ok := arrayElementTypes[o.ItemType]
		if !ok {
			return "", fmt.Errorf("%w: array of %q", types.ErrInvalidOption, o.ItemType)
		}
		return elem + "[]", nil
	case types.FieldRelationship:
		// Relationship columns store target row identifiers as text.
		return "text", nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownFieldType, f.Type)
	}
}

// Column returns the physical column spec for a field, or nil for virtual
// fields (button, lookup).
func Column(f types.Field) (*types.ColumnSpec, error) {
	if f.IsVirtual() {
		return nil, nil
	}
	dataType, err := ColumnType(f)
	if err != nil {
		return nil, err
	}
	col := &types.ColumnSpec{
		Name:     f.Name,
		DataType: dataType,
		NotNull:  f.Required,
	}
	if f.Default != nil {
		col.Default = *f.Default
	}
	return col, nil
}

// Check returns the field's check constraint, or nil when the type and
// options imply none. Each field produces at most one check; multiple
// predicates are combined with AND so the generated name stays stable.
func Check(table string, f types.Field) (*types.ConstraintSpec, error) {
	if !types.IsKnownFieldType(f.Type) {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFieldType, f.Type)
	}
	col := quoteIdent(f.Name)
	var exprs []string
	switch f.Type {
	case types.FieldSingleLineText:
		if o, ok := f.Options.(types.TextOptions); ok && o.Format != "" {
			exprs = append(exprs, fmt.Sprintf("%s ~ '%s'", col, escapeLiteral(o.Format)))
		}
	case types.FieldRichText:
		if o, ok := f.Options.(types.RichTextOptions); ok && o.MaxLength > 0 {
			exprs = append(exprs, fmt.Sprintf("char_length(%s) <= %d", col, o.MaxLength))
		}
	case types.FieldInteger:
		if o, ok := f.Options.(types.IntegerOptions); ok {
			if o.Min != nil {
				exprs = append(exprs, fmt.Sprintf("%s >= %d", col, *o.Min))
			}
			if o.Max != nil {
				exprs = append(exprs, fmt.Sprintf("%s <= %d", col, *o.Max))
			}
		}
	case types.FieldDecimal:
		if o, ok := f.Options.(types.DecimalOptions); ok {
			if o.Min != nil {
				exprs = append(exprs, fmt.Sprintf("%s >= %g", col, *o.Min))
			}
			if o.Max != nil {
				exprs = append(exprs, fmt.Sprintf("%s <= %g", col, *o.Max))
			}
		}
	case types.FieldColor:
		exprs = append(exprs, fmt.Sprintf("%s ~ '^#[0-9A-Fa-f]{6}$'", col))
	case types.FieldRating:
		if o, ok := f.Options.(types.RatingOptions); ok {
			exprs = append(exprs, fmt.Sprintf("%s >= %d AND %s <= %d", col, o.Min, col, o.Max))
		}
	case types.FieldBarcode:
		if o, ok := f.Options.(types.BarcodeOptions); ok {
			switch o.Format {
			case "ean13":
				exprs = append(exprs, fmt.Sprintf("%s ~ '^[0-9]{13}$'", col))
			case "upca":
				exprs = append(exprs, fmt.Sprintf("%s ~ '^[0-9]{12}$'", col))
			}
		}
	case types.FieldArray:
		// No implicit length check unless configured.
		if o, ok := f.Options.(types.ArrayOptions); ok && o.MaxItems > 0 {
			exprs = append(exprs, fmt.Sprintf("cardinality(%s) <= %d", col, o.MaxItems))
		}
	}
	if len(exprs) == 0 {
		return nil, nil
	}
	return &types.ConstraintSpec{
		Name:    CheckName(table, f.Name),
		Kind:    types.ConstraintCheck,
		Columns: []string{f.Name},
		Check:   strings.Join(exprs, " AND "),
	}, nil
}

// Index returns the field's index spec per the default strategy, or nil.
// Arrays and rich-text fields with full-text search get GIN; scalars with
// indexed set get B-tree. Unique is expressed as a constraint, not here.
func Index(table string, f types.Field) *types.IndexSpec {
	if f.Type == types.FieldRichText {
		if o, ok := f.Options.(types.RichTextOptions); ok && o.Language != "" {
			return &types.IndexSpec{
				Name:       IndexName(table, f.Name),
				Method:     "gin",
				Columns:    []string{f.Name},
				Expression: fmt.Sprintf("to_tsvector('%s', %s)", o.Language, quoteIdent(f.Name)),
			}
		}
	}
	if !f.Indexed || f.IsVirtual() {
		return nil
	}
	method := "btree"
	if f.Type == types.FieldArray {
		method = "gin"
	}
	return &types.IndexSpec{
		Name:    IndexName(table, f.Name),
		Method:  method,
		Columns: []string{f.Name},
	}
}

// Unique returns the field's unique constraint spec, or nil.
func Unique(table string, f types.Field) *types.ConstraintSpec {
	if !f.Unique || f.IsVirtual() {
		return nil
	}
	return &types.ConstraintSpec{
		Name:    UniqueName(table, f.Name),
		Kind:    types.ConstraintUnique,
		Columns: []string{f.Name},
	}
}

// ForeignKey returns the relationship field's foreign-key constraint spec,
// or nil when the field is not a relationship or opts out of the
// constraint.
func ForeignKey(table string, f types.Field) *types.ConstraintSpec {
	o, ok := f.Options.(types.RelationshipOptions)
	if !ok || !o.ForeignKey {
		return nil
	}
	return &types.ConstraintSpec{
		Name:       ForeignKeyName(table, f.Name),
		Kind:       types.ConstraintForeignKey,
		Columns:    []string{f.Name},
		RefTable:   o.TargetTable,
		RefColumns: []string{o.TargetColumn},
	}
}

// escapeLiteral doubles single quotes for inclusion in a SQL string literal.
func escapeLiteral(s string) string { return strings.ReplaceAll(s, "'", "''") }
