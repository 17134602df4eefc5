// Package types defines the declarative schema model (tables, fields,
// views), the migration operation set, the normalized introspected state,
// and the standard errors shared by every tablekit component.
package types
