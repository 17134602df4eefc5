package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Table is a named relational entity composed of ordered Fields, an
// optional composite primary key, and read-side Views. Tables are created
// from declarative definitions and destroyed only by explicit removal.
type Table struct {
	ID         string
	Name       string
	Fields     []Field
	PrimaryKey []string // field names, in key order; empty means no declared key
	Views      []View
}

// NewID generates an identifier for tables, fields, and views. UUID v7 keeps
// identifiers time-ordered; v4 is the fallback if the clock misbehaves.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Field returns the field with the given name and whether it exists.
func (t Table) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the table declaration in isolation: non-empty name,
// unique field names, every field valid, and primary-key members naming
// physical fields. Cross-table references (relationships, lookups) are
// validated by the resolver against the full catalog.
func (t Table) Validate() error {
	if t.Name == "" {
		return ErrTableNameEmpty
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if err := f.Validate(); err != nil {
			return &ValidationError{Table: t.Name, Field: f.Name, Err: err}
		}
		if seen[f.Name] {
			return &ValidationError{Table: t.Name, Field: f.Name, Err: ErrDuplicateField}
		}
		seen[f.Name] = true
	}
	for _, name := range t.PrimaryKey {
		f, ok := t.Field(name)
		if !ok {
			return &ValidationError{Table: t.Name, Field: name,
				Err: fmt.Errorf("%w: primary key names unknown field", ErrDanglingReference)}
		}
		if f.IsVirtual() {
			return &ValidationError{Table: t.Name, Field: name,
				Err: fmt.Errorf("%w: primary key on columnless field", ErrInvalidConstraint)}
		}
	}
	for _, v := range t.Views {
		if err := v.Validate(t); err != nil {
			return err
		}
	}
	return nil
}
