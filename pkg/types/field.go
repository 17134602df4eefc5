package types

import "fmt"

// FieldType tags the abstract type of a declared field. The set is closed:
// the registry, differ, and resolver dispatch on these tags and reject
// anything else during validation.
type FieldType string

// Supported field types.
const (
	FieldSingleLineText FieldType = "single-line-text"
	FieldRichText       FieldType = "rich-text"
	FieldInteger        FieldType = "integer"
	FieldDecimal        FieldType = "decimal"
	FieldCheckbox       FieldType = "checkbox"
	FieldDate           FieldType = "date"
	FieldColor          FieldType = "color"
	FieldRating         FieldType = "rating"
	FieldBarcode        FieldType = "barcode"
	FieldArray          FieldType = "array"
	FieldButton         FieldType = "button"
	FieldRelationship   FieldType = "relationship"
	FieldLookup         FieldType = "lookup"
)

// knownFieldTypes lists the tags Validate accepts.
var knownFieldTypes = map[FieldType]bool{
	FieldSingleLineText: true,
	FieldRichText:       true,
	FieldInteger:        true,
	FieldDecimal:        true,
	FieldCheckbox:       true,
	FieldDate:           true,
	FieldColor:          true,
	FieldRating:         true,
	FieldBarcode:        true,
	FieldArray:          true,
	FieldButton:         true,
	FieldRelationship:   true,
	FieldLookup:         true,
}

// IsKnownFieldType reports whether t is a recognized field type tag.
func IsKnownFieldType(t FieldType) bool { return knownFieldTypes[t] }

// Field is a named, typed attribute of a Table. The common constraint
// switches live here; attributes that are only meaningful for one type live
// in the per-type Options variant. Button and lookup fields own no physical
// column.
type Field struct {
	ID       string
	Name     string
	Type     FieldType
	Required bool    // NOT NULL
	Unique   bool    // unique constraint
	Indexed  bool    // request an index using the type's default strategy
	Default  *string // SQL literal or expression, nil means none
	Options  FieldOptions
}

// FieldOptions carries the type-specific attributes of a Field. The set of
// implementations is closed; each variant only exposes the attributes that
// are legal for its type, so invalid combinations cannot be constructed.
type FieldOptions interface {
	fieldOptions()
	Validate() error
}

// TextOptions configures single-line-text fields.
type TextOptions struct {
	MaxLength int    // 0 means unbounded (text column)
	Format    string // optional regular expression the value must match
}

// RichTextOptions configures rich-text fields.
type RichTextOptions struct {
	MaxLength int    // 0 means unbounded
	Language  string // full-text search language; empty disables the GIN index
}

// IntegerOptions configures integer fields.
type IntegerOptions struct {
	Min *int64
	Max *int64
}

// DecimalOptions configures decimal fields.
type DecimalOptions struct {
	Precision int // total digits; 0 means unconstrained numeric
	Scale     int
	Min       *float64
	Max       *float64
}

// RatingOptions configures rating fields. Values outside [Min,Max] are
// rejected by a check constraint.
type RatingOptions struct {
	Min int
	Max int
}

// BarcodeOptions configures barcode fields.
type BarcodeOptions struct {
	// Format selects a symbology-specific check: "ean13", "upca", or empty
	// for no format check.
	Format string
}

// ArrayOptions configures array fields.
type ArrayOptions struct {
	ItemType FieldType // scalar element type
	MaxItems int       // 0 means no length check
}

// ButtonOptions configures button fields. Buttons own no column; the action
// metadata is persisted in the state store's side table.
type ButtonOptions struct {
	Action      string // action name dispatched by the presentation layer
	VisibleWhen string // optional visibility predicate, opaque to the engine
}

// Cardinality of a relationship field.
type Cardinality string

// Supported cardinalities.
const (
	CardinalityOne  Cardinality = "one"  // at most one local row per target row
	CardinalityMany Cardinality = "many" // many local rows may reference one target
)

// RelationshipOptions configures relationship fields. The field is backed by
// a foreign-key column referencing TargetColumn on TargetTable.
type RelationshipOptions struct {
	TargetTable  string
	TargetColumn string // referenced column, usually the target's primary key
	Cardinality  Cardinality
	ForeignKey   bool // emit a foreign-key constraint in addition to the column
}

// LookupOptions configures lookup fields. A lookup owns no column; it
// projects LookupField from the table reached through RelationshipField,
// which may itself be another lookup, forming a chain.
type LookupOptions struct {
	RelationshipField string // name of a relationship field on the same table
	LookupField       string // name of the projected field on the target table
}

func (TextOptions) fieldOptions()         {}
func (RichTextOptions) fieldOptions()     {}
func (IntegerOptions) fieldOptions()      {}
func (DecimalOptions) fieldOptions()      {}
func (RatingOptions) fieldOptions()       {}
func (BarcodeOptions) fieldOptions()      {}
func (ArrayOptions) fieldOptions()        {}
func (ButtonOptions) fieldOptions()       {}
func (RelationshipOptions) fieldOptions() {}
func (LookupOptions) fieldOptions()       {}

// Validate checks option values in isolation. Cross-table references are
// checked later by the resolver against the full catalog.
func (o TextOptions) Validate() error {
	if o.MaxLength < 0 {
		return fmt.Errorf("%w: max length %d", ErrInvalidOption, o.MaxLength)
	}
	return nil
}

func (o RichTextOptions) Validate() error {
	if o.MaxLength < 0 {
		return fmt.Errorf("%w: max length %d", ErrInvalidOption, o.MaxLength)
	}
	return nil
}

func (o IntegerOptions) Validate() error {
	if o.Min != nil && o.Max != nil && *o.Min > *o.Max {
		return fmt.Errorf("%w: min %d greater than max %d", ErrInvalidOption, *o.Min, *o.Max)
	}
	return nil
}

func (o DecimalOptions) Validate() error {
	if o.Precision < 0 || o.Scale < 0 || (o.Precision > 0 && o.Scale > o.Precision) {
		return fmt.Errorf("%w: precision %d scale %d", ErrInvalidOption, o.Precision, o.Scale)
	}
	if o.Min != nil && o.Max != nil && *o.Min > *o.Max {
		return fmt.Errorf("%w: min %g greater than max %g", ErrInvalidOption, *o.Min, *o.Max)
	}
	return nil
}

func (o RatingOptions) Validate() error {
	if o.Min >= o.Max {
		return fmt.Errorf("%w: rating range [%d,%d]", ErrInvalidOption, o.Min, o.Max)
	}
	return nil
}

// barcodeFormats lists the symbologies the registry knows how to check.
var barcodeFormats = map[string]bool{"": true, "ean13": true, "upca": true}

func (o BarcodeOptions) Validate() error {
	if !barcodeFormats[o.Format] {
		return fmt.Errorf("%w: barcode format %q", ErrInvalidOption, o.Format)
	}
	return nil
}

// arrayItemTypes lists the scalar element types an array column may carry.
var arrayItemTypes = map[FieldType]bool{
	FieldSingleLineText: true,
	FieldInteger:        true,
	FieldDecimal:        true,
	FieldCheckbox:       true,
	FieldDate:           true,
}

func (o ArrayOptions) Validate() error {
	if !arrayItemTypes[o.ItemType] {
		return fmt.Errorf("%w: array item type %q", ErrInvalidOption, o.ItemType)
	}
	if o.MaxItems < 0 {
		return fmt.Errorf("%w: max items %d", ErrInvalidOption, o.MaxItems)
	}
	return nil
}

func (o ButtonOptions) Validate() error {
	if o.Action == "" {
		return fmt.Errorf("%w: button action must not be empty", ErrInvalidOption)
	}
	return nil
}

func (o RelationshipOptions) Validate() error {
	if o.TargetTable == "" {
		return fmt.Errorf("%w: relationship target table must not be empty", ErrInvalidOption)
	}
	if o.TargetColumn == "" {
		return fmt.Errorf("%w: relationship target column must not be empty", ErrInvalidOption)
	}
	if o.Cardinality != CardinalityOne && o.Cardinality != CardinalityMany {
		return fmt.Errorf("%w: cardinality %q", ErrInvalidOption, o.Cardinality)
	}
	return nil
}

func (o LookupOptions) Validate() error {
	if o.RelationshipField == "" || o.LookupField == "" {
		return fmt.Errorf("%w: lookup requires relationshipField and lookupField", ErrInvalidOption)
	}
	return nil
}

// optionsTag maps each options variant back to the field type it belongs to.
func optionsTag(o FieldOptions) (FieldType, bool) {
	switch o.(type) {
	case TextOptions:
		return FieldSingleLineText, true
	case RichTextOptions:
		return FieldRichText, true
	case IntegerOptions:
		return FieldInteger, true
	case DecimalOptions:
		return FieldDecimal, true
	case RatingOptions:
		return FieldRating, true
	case BarcodeOptions:
		return FieldBarcode, true
	case ArrayOptions:
		return FieldArray, true
	case ButtonOptions:
		return FieldButton, true
	case RelationshipOptions:
		return FieldRelationship, true
	case LookupOptions:
		return FieldLookup, true
	default:
		return "", false
	}
}

// optionsRequired lists the types that cannot be declared without options.
var optionsRequired = map[FieldType]bool{
	FieldRating:       true,
	FieldArray:        true,
	FieldButton:       true,
	FieldRelationship: true,
	FieldLookup:       true,
}

// virtualFieldTypes own no physical column.
var virtualFieldTypes = map[FieldType]bool{
	FieldButton: true,
	FieldLookup: true,
}

// IsVirtual reports whether the field produces no physical column.
func (f Field) IsVirtual() bool { return virtualFieldTypes[f.Type] }

// Validate checks the field declaration in isolation: known type tag,
// options variant matching the type tag, and constraint switches that are
// meaningful for the type. Invalid combinations are errors, never silently
// ignored.
func (f Field) Validate() error {
	if f.Name == "" {
		return ErrFieldNameEmpty
	}
	if !IsKnownFieldType(f.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownFieldType, f.Type)
	}
	if f.Options != nil {
		tag, ok := optionsTag(f.Options)
		if !ok || tag != f.Type {
			return fmt.Errorf("%w: options do not match field type %q", ErrInvalidConstraint, f.Type)
		}
		if err := f.Options.Validate(); err != nil {
			return err
		}
	} else if optionsRequired[f.Type] {
		return fmt.Errorf("%w: field type %q requires options", ErrInvalidConstraint, f.Type)
	}
	if f.IsVirtual() {
		if f.Required || f.Unique || f.Indexed || f.Default != nil {
			return fmt.Errorf("%w: %q fields take no column constraints", ErrInvalidConstraint, f.Type)
		}
	}
	if f.Unique && (f.Type == FieldArray || f.Type == FieldRichText) {
		return fmt.Errorf("%w: unique is not supported on %q fields", ErrInvalidConstraint, f.Type)
	}
	return nil
}
