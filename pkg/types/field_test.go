package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestField_Validate(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		wantErr error // nil means valid
	}{
		{
			name:  "plain text field",
			field: Field{Name: "title", Type: FieldSingleLineText},
		},
		{
			name: "text field with options",
			field: Field{Name: "sku", Type: FieldSingleLineText,
				Options: TextOptions{MaxLength: 30, Format: "^[A-Z]+$"}},
		},
		{
			name:    "empty name",
			field:   Field{Type: FieldInteger},
			wantErr: ErrFieldNameEmpty,
		},
		{
			name:    "unknown type tag",
			field:   Field{Name: "x", Type: FieldType("geo-point")},
			wantErr: ErrUnknownFieldType,
		},
		{
			name: "options variant does not match type",
			field: Field{Name: "score", Type: FieldInteger,
				Options: RatingOptions{Min: 1, Max: 5}},
			wantErr: ErrInvalidConstraint,
		},
		{
			name:    "rating without options",
			field:   Field{Name: "stars", Type: FieldRating},
			wantErr: ErrInvalidConstraint,
		},
		{
			name: "rating with inverted range",
			field: Field{Name: "stars", Type: FieldRating,
				Options: RatingOptions{Min: 5, Max: 1}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "integer min greater than max",
			field: Field{Name: "qty", Type: FieldInteger,
				Options: IntegerOptions{Min: int64Ptr(10), Max: int64Ptr(1)}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "barcode with unknown format",
			field: Field{Name: "code", Type: FieldBarcode,
				Options: BarcodeOptions{Format: "code128"}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "array of arrays",
			field: Field{Name: "grid", Type: FieldArray,
				Options: ArrayOptions{ItemType: FieldArray}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "array of integers",
			field: Field{Name: "counts", Type: FieldArray,
				Options: ArrayOptions{ItemType: FieldInteger, MaxItems: 8}},
		},
		{
			name: "button with required flag",
			field: Field{Name: "launch", Type: FieldButton, Required: true,
				Options: ButtonOptions{Action: "open"}},
			wantErr: ErrInvalidConstraint,
		},
		{
			name: "button without action",
			field: Field{Name: "launch", Type: FieldButton,
				Options: ButtonOptions{}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "lookup with unique flag",
			field: Field{Name: "vendor_city", Type: FieldLookup, Unique: true,
				Options: LookupOptions{RelationshipField: "vendor", LookupField: "city"}},
			wantErr: ErrInvalidConstraint,
		},
		{
			name:    "unique on array",
			field:   Field{Name: "tags", Type: FieldArray, Unique: true, Options: ArrayOptions{ItemType: FieldSingleLineText}},
			wantErr: ErrInvalidConstraint,
		},
		{
			name:    "unique on rich text",
			field:   Field{Name: "body", Type: FieldRichText, Unique: true},
			wantErr: ErrInvalidConstraint,
		},
		{
			name: "relationship without target table",
			field: Field{Name: "vendor", Type: FieldRelationship,
				Options: RelationshipOptions{TargetColumn: "id", Cardinality: CardinalityMany}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "relationship with bad cardinality",
			field: Field{Name: "vendor", Type: FieldRelationship,
				Options: RelationshipOptions{TargetTable: "vendors", TargetColumn: "id", Cardinality: "several"}},
			wantErr: ErrInvalidOption,
		},
		{
			name: "well-formed relationship",
			field: Field{Name: "vendor", Type: FieldRelationship,
				Options: RelationshipOptions{TargetTable: "vendors", TargetColumn: "id", Cardinality: CardinalityMany, ForeignKey: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestField_IsVirtual(t *testing.T) {
	assert.True(t, Field{Type: FieldButton}.IsVirtual())
	assert.True(t, Field{Type: FieldLookup}.IsVirtual())
	assert.False(t, Field{Type: FieldSingleLineText}.IsVirtual())
	assert.False(t, Field{Type: FieldRelationship}.IsVirtual())
}

func TestField_Validate_PointerOptionsRejected(t *testing.T) {
	// Options variants are value types; a pointer must not sneak past
	// validation into the registry.
	f := Field{Name: "stars", Type: FieldRating, Options: &RatingOptions{Min: 1, Max: 5}}
	err := f.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConstraint)
}
