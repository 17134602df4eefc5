package types

import (
	"errors"
	"fmt"
)

// Schema validation sentinels. These are wrapped by ValidationError so
// callers can match the specific cause with errors.Is.
var (
	ErrTableNameEmpty     = errors.New("table name must not be empty")
	ErrFieldNameEmpty     = errors.New("field name must not be empty")
	ErrViewNameEmpty      = errors.New("view name must not be empty")
	ErrUnknownFieldType   = errors.New("unknown field type")
	ErrUnknownViewType    = errors.New("unknown view type")
	ErrInvalidConstraint  = errors.New("constraint not valid for field type")
	ErrInvalidOption      = errors.New("invalid field option")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrDuplicateViewField = errors.New("duplicate view field reference")
	ErrDanglingReference  = errors.New("reference to unknown field or table")
)

// Resolution sentinels, wrapped by ResolutionError.
var (
	ErrLookupCycle         = errors.New("lookup chain contains a cycle")
	ErrLookupDepthExceeded = errors.New("lookup chain exceeds maximum depth")
	ErrNotARelationship    = errors.New("field is not a relationship")
)

// Migration sentinels.
var (
	ErrUnsupportedMigration = errors.New("unsupported migration")
	ErrUncastableTypeChange = errors.New("column type change cannot be cast losslessly")
	ErrStalePlan            = errors.New("plan baseline no longer matches live schema")
)

// Snapshot store lifecycle sentinels.
var (
	ErrStoreDetached = errors.New("snapshot store is not attached")
	ErrStoreAttached = errors.New("snapshot store is already attached")
	ErrNoSnapshot    = errors.New("no snapshot recorded for table")
)

// ValidationError reports malformed declarative input. It is always
// produced before any DDL is issued and is never retried.
type ValidationError struct {
	Table string
	Field string // empty when the error is not field-specific
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema validation: table %q field %q: %v", e.Table, e.Field, e.Err)
	}
	return fmt.Sprintf("schema validation: table %q: %v", e.Table, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StalePlanError reports that the introspected state drifted between
// planning and execution. The caller must re-plan.
type StalePlanError struct {
	Table   string
	Planned uint64 // fingerprint the plan was computed against
	Current uint64 // fingerprint observed at execution time
}

func (e *StalePlanError) Error() string {
	return fmt.Sprintf("stale plan for table %q: planned against %016x, live schema is %016x",
		e.Table, e.Planned, e.Current)
}

func (e *StalePlanError) Unwrap() error { return ErrStalePlan }

// ExecutionError reports the first operation the database rejected. The
// surrounding transaction has been rolled back; the live schema is
// unchanged.
type ExecutionError struct {
	Table string
	Index int // position of the failing operation within the plan
	Op    Operation
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("migration of table %q failed at operation %d (%s): %v",
		e.Table, e.Index, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResolutionError reports a relationship or lookup chain that cannot be
// resolved.
type ResolutionError struct {
	Table string
	Field string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving table %q field %q: %v", e.Table, e.Field, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
