package types

import "fmt"

// ViewType tags the presentation mode of a view.
type ViewType string

// Supported view types.
const (
	ViewGrid ViewType = "grid"
)

// View is a named, ordered, visibility-filtered projection of a Table's
// fields. Views never alter the underlying table.
type View struct {
	ID     string
	Name   string
	Type   ViewType
	Fields []ViewField
}

// ViewField references a Field by name with presentation attributes.
type ViewField struct {
	Field   string
	Visible bool
	Order   int // explicit render order; 0 falls back to declaration order
	Width   int // optional display width, 0 means unset
}

// Validate checks the view against its owning table: known view type, every
// referenced field exists, and no field is referenced twice.
func (v View) Validate(t Table) error {
	if v.Name == "" {
		return &ValidationError{Table: t.Name, Err: ErrViewNameEmpty}
	}
	if v.Type != ViewGrid {
		return &ValidationError{Table: t.Name,
			Err: fmt.Errorf("%w: view type %q", ErrUnknownViewType, v.Type)}
	}
	seen := make(map[string]bool, len(v.Fields))
	for _, vf := range v.Fields {
		if _, ok := t.Field(vf.Field); !ok {
			return &ValidationError{Table: t.Name, Field: vf.Field,
				Err: fmt.Errorf("%w: view %q references unknown field", ErrDanglingReference, v.Name)}
		}
		if seen[vf.Field] {
			return &ValidationError{Table: t.Name, Field: vf.Field,
				Err: fmt.Errorf("%w: view %q", ErrDuplicateViewField, v.Name)}
		}
		seen[vf.Field] = true
	}
	return nil
}
