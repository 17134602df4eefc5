// Package schemafile parses declarative table definitions from YAML.
// Decoding is strict: unknown keys are rejected so a typo in a schema file
// fails loudly instead of silently dropping a constraint. The loader only
// produces types values; all semantic validation stays in pkg/types and the
// resolver.
package schemafile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tablekit/tablekit/pkg/types"
)

// File is the top-level shape of a schema file: one or more tables.
type File struct {
	Tables []Table `yaml:"tables"`
}

// Table mirrors types.Table in YAML form.
type Table struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Fields     []Field  `yaml:"fields"`
	PrimaryKey []string `yaml:"primaryKey"`
	Views      []View   `yaml:"views"`
}

// Field mirrors types.Field; Options is decoded per field type after the
// generic pass, since YAML cannot pick an interface variant on its own.
type Field struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Required bool      `yaml:"required"`
	Unique   bool      `yaml:"unique"`
	Indexed  bool      `yaml:"indexed"`
	Default  *string   `yaml:"default"`
	Options  yaml.Node `yaml:"options"`
}

// View mirrors types.View.
type View struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Type   string      `yaml:"type"`
	Fields []ViewField `yaml:"fields"`
}

// ViewField mirrors types.ViewField. Visible defaults to true when the key
// is absent, matching what a schema author expects from listing a field.
type ViewField struct {
	Field   string `yaml:"field"`
	Visible *bool  `yaml:"visible"`
	Order   int    `yaml:"order"`
	Width   int    `yaml:"width"`
}

// Option payload shapes, one per field type that takes options.
type (
	textOptions struct {
		MaxLength int    `yaml:"maxLength"`
		Format    string `yaml:"format"`
	}
	richTextOptions struct {
		MaxLength int    `yaml:"maxLength"`
		Language  string `yaml:"language"`
	}
	integerOptions struct {
		Min *int64 `yaml:"min"`
		Max *int64 `yaml:"max"`
	}
	decimalOptions struct {
		Precision int      `yaml:"precision"`
		Scale     int      `yaml:"scale"`
		Min       *float64 `yaml:"min"`
		Max       *float64 `yaml:"max"`
	}
	ratingOptions struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	}
	barcodeOptions struct {
		Format string `yaml:"format"`
	}
	arrayOptions struct {
		ItemType string `yaml:"itemType"`
		MaxItems int    `yaml:"maxItems"`
	}
	buttonOptions struct {
		Action      string `yaml:"action"`
		VisibleWhen string `yaml:"visibleWhen"`
	}
	relationshipOptions struct {
		TargetTable  string `yaml:"targetTable"`
		TargetColumn string `yaml:"targetColumn"`
		Cardinality  string `yaml:"cardinality"`
		ForeignKey   bool   `yaml:"foreignKey"`
	}
	lookupOptions struct {
		RelationshipField string `yaml:"relationshipField"`
		LookupField       string `yaml:"lookupField"`
	}
)

// Load reads and converts a schema file from disk.
func Load(path string) ([]types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tables, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return tables, nil
}

// Parse decodes a schema document and converts it into validated tables.
func Parse(r io.Reader) ([]types.Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, err
	}

	tables := make([]types.Table, 0, len(file.Tables))
	for _, yt := range file.Tables {
		t, err := convertTable(yt)
		if err != nil {
			return nil, err
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func convertTable(yt Table) (types.Table, error) {
	t := types.Table{
		ID:         yt.ID,
		Name:       yt.Name,
		PrimaryKey: yt.PrimaryKey,
	}
	if t.ID == "" {
		t.ID = types.NewID()
	}
	for _, yf := range yt.Fields {
		f, err := convertField(yt.Name, yf)
		if err != nil {
			return types.Table{}, err
		}
		t.Fields = append(t.Fields, f)
	}
	for _, yv := range yt.Views {
		v := types.View{ID: yv.ID, Name: yv.Name, Type: types.ViewType(yv.Type)}
		if v.ID == "" {
			v.ID = types.NewID()
		}
		if v.Type == "" {
			v.Type = types.ViewGrid
		}
		for _, vf := range yv.Fields {
			visible := true
			if vf.Visible != nil {
				visible = *vf.Visible
			}
			v.Fields = append(v.Fields, types.ViewField{
				Field:   vf.Field,
				Visible: visible,
				Order:   vf.Order,
				Width:   vf.Width,
			})
		}
		t.Views = append(t.Views, v)
	}
	return t, nil
}

func convertField(table string, yf Field) (types.Field, error) {
	f := types.Field{
		ID:       yf.ID,
		Name:     yf.Name,
		Type:     types.FieldType(yf.Type),
		Required: yf.Required,
		Unique:   yf.Unique,
		Indexed:  yf.Indexed,
		Default:  yf.Default,
	}
	if f.ID == "" {
		f.ID = types.NewID()
	}
	opts, err := convertOptions(f.Type, yf.Options)
	if err != nil {
		return types.Field{}, &types.ValidationError{Table: table, Field: yf.Name, Err: err}
	}
	f.Options = opts
	return f, nil
}

// convertOptions decodes the options node into the variant selected by the
// field type. An options block on a type that takes none is an error, not a
// silent drop. A missing node yields nil and lets Field.Validate decide
// whether options were required.
func convertOptions(ft types.FieldType, node yaml.Node) (types.FieldOptions, error) {
	if node.IsZero() {
		return nil, nil
	}

	// yaml.Node.Decode has no strict mode, so the node is re-marshalled and
	// run through a sub-decoder with KnownFields to reject unknown option
	// keys the same way unknown top-level keys are.
	decode := func(dst any) error {
		raw, err := yaml.Marshal(&node)
		if err != nil {
			return err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		return dec.Decode(dst)
	}

	switch ft {
	case types.FieldSingleLineText:
		var o textOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.TextOptions{MaxLength: o.MaxLength, Format: o.Format}, nil
	case types.FieldRichText:
		var o richTextOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.RichTextOptions{MaxLength: o.MaxLength, Language: o.Language}, nil
	case types.FieldInteger:
		var o integerOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.IntegerOptions{Min: o.Min, Max: o.Max}, nil
	case types.FieldDecimal:
		var o decimalOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.DecimalOptions{Precision: o.Precision, Scale: o.Scale, Min: o.Min, Max: o.Max}, nil
	case types.FieldRating:
		var o ratingOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.RatingOptions{Min: o.Min, Max: o.Max}, nil
	case types.FieldBarcode:
		var o barcodeOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.BarcodeOptions{Format: o.Format}, nil
	case types.FieldArray:
		var o arrayOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.ArrayOptions{ItemType: types.FieldType(o.ItemType), MaxItems: o.MaxItems}, nil
	case types.FieldButton:
		var o buttonOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.ButtonOptions{Action: o.Action, VisibleWhen: o.VisibleWhen}, nil
	case types.FieldRelationship:
		var o relationshipOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		ro := types.RelationshipOptions{
			TargetTable:  o.TargetTable,
			TargetColumn: o.TargetColumn,
			Cardinality:  types.Cardinality(o.Cardinality),
			ForeignKey:   o.ForeignKey,
		}
		if ro.TargetColumn == "" {
			ro.TargetColumn = "id"
		}
		if ro.Cardinality == "" {
			ro.Cardinality = types.CardinalityMany
		}
		return ro, nil
	case types.FieldLookup:
		var o lookupOptions
		if err := decode(&o); err != nil {
			return nil, err
		}
		return types.LookupOptions{RelationshipField: o.RelationshipField, LookupField: o.LookupField}, nil
	default:
		return nil, fmt.Errorf("%w: options given for field type %q", types.ErrInvalidOption, ft)
	}
}
