package types

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Phase orders migration operations so that no operation ever references an
// object not yet created or already destroyed. The order is fixed, not
// configurable.
type Phase int

// Execution phases, in order. Views are dropped before anything else and
// recreated after everything else: a live view pins the columns it selects,
// so it must be detached before a column drop and reattached once the new
// column set exists.
const (
	PhaseCreateTable Phase = iota + 1
	PhaseDropView
	PhaseDropConstraint
	PhaseDropIndex
	PhaseDropColumn
	PhaseAddColumn
	PhaseAlterColumnType
	PhaseAddConstraint
	PhaseCreateIndex
	PhaseCreateView
	PhaseDropTable
)

// Operation is one atomic schema-change action. The set of implementations
// is closed; each carries enough information to execute and to conceptually
// reverse it (reversal is never applied automatically).
type Operation interface {
	Phase() Phase
	SQL() string
	String() string
	isOperation()
}

// ColumnSpec describes a physical column.
type ColumnSpec struct {
	Name     string
	DataType string // native type, e.g. "char(7)", "integer", "text[]"
	NotNull  bool
	Default  string // SQL literal or expression, empty means none
}

// ConstraintKind tags a constraint operation.
type ConstraintKind string

// Supported constraint kinds.
const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintNotNull    ConstraintKind = "not-null"
	ConstraintForeignKey ConstraintKind = "foreign-key"
	ConstraintPrimaryKey ConstraintKind = "primary-key"
)

// ConstraintSpec describes a constraint. Check carries the expression for
// check constraints; RefTable/RefColumns carry the target for foreign keys.
type ConstraintSpec struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string
	Check      string
	RefTable   string
	RefColumns []string
}

// IndexSpec describes an index. Expression is set for expression indexes
// (e.g. a tsvector over a rich-text column) and takes precedence over
// Columns in the generated DDL.
type IndexSpec struct {
	Name       string
	Method     string // "btree" or "gin"
	Unique     bool
	Columns    []string
	Expression string
}

// ViewSpec describes a database view by name and SELECT definition.
type ViewSpec struct {
	Name       string
	Definition string
}

// quote sanitizes an identifier for direct inclusion in DDL.
func quote(ident string) string { return pgx.Identifier{ident}.Sanitize() }

func quoteAll(idents []string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = quote(id)
	}
	return out
}

func (c ColumnSpec) definition() string {
	var b strings.Builder
	b.WriteString(quote(c.Name))
	b.WriteString(" ")
	b.WriteString(c.DataType)
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// CreateTable creates a table with its physical columns and optional
// primary key. Constraints, indexes, and views follow in later phases.
type CreateTable struct {
	Name       string
	Columns    []ColumnSpec
	PrimaryKey []string
}

func (op CreateTable) Phase() Phase { return PhaseCreateTable }

func (op CreateTable) SQL() string {
	parts := make([]string, 0, len(op.Columns)+1)
	for _, c := range op.Columns {
		parts = append(parts, c.definition())
	}
	if len(op.PrimaryKey) > 0 {
		parts = append(parts, "PRIMARY KEY ("+strings.Join(quoteAll(op.PrimaryKey), ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(op.Name), strings.Join(parts, ", "))
}

func (op CreateTable) String() string {
	return fmt.Sprintf("create table %s (%d columns)", op.Name, len(op.Columns))
}

// DropTable removes a table. Only emitted for explicit schema removal,
// never by the differ.
type DropTable struct {
	Name string
}

func (op DropTable) Phase() Phase { return PhaseDropTable }
func (op DropTable) SQL() string  { return "DROP TABLE " + quote(op.Name) }
func (op DropTable) String() string {
	return "drop table " + op.Name
}

// AddColumn adds a column to an existing table.
type AddColumn struct {
	Table  string
	Column ColumnSpec
}

func (op AddColumn) Phase() Phase { return PhaseAddColumn }

func (op AddColumn) SQL() string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(op.Table), op.Column.definition())
}

func (op AddColumn) String() string {
	return fmt.Sprintf("add column %s.%s (%s)", op.Table, op.Column.Name, op.Column.DataType)
}

// DropColumn removes a column. The full ColumnSpec of the removed column is
// retained so the operation can be reversed conceptually.
type DropColumn struct {
	Table  string
	Column ColumnSpec
}

func (op DropColumn) Phase() Phase { return PhaseDropColumn }

func (op DropColumn) SQL() string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quote(op.Table), quote(op.Column.Name))
}

func (op DropColumn) String() string {
	return fmt.Sprintf("drop column %s.%s", op.Table, op.Column.Name)
}

// AlterColumnType changes a column's native type. Only emitted after dry
// validation confirmed the cast is lossless, so no USING clause is needed
// beyond the plain cast.
type AlterColumnType struct {
	Table  string
	Column string
	From   string
	To     string
}

func (op AlterColumnType) Phase() Phase { return PhaseAlterColumnType }

func (op AlterColumnType) SQL() string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		quote(op.Table), quote(op.Column), op.To, quote(op.Column), op.To)
}

func (op AlterColumnType) String() string {
	return fmt.Sprintf("alter column %s.%s type %s -> %s", op.Table, op.Column, op.From, op.To)
}

// AlterColumnDefault sets or clears a column's default expression. An empty
// To drops the default. Existing rows are untouched; defaults only apply to
// subsequent inserts.
type AlterColumnDefault struct {
	Table  string
	Column string
	From   string
	To     string
}

func (op AlterColumnDefault) Phase() Phase { return PhaseAlterColumnType }

func (op AlterColumnDefault) SQL() string {
	if op.To == "" {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT",
			quote(op.Table), quote(op.Column))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
		quote(op.Table), quote(op.Column), op.To)
}

func (op AlterColumnDefault) String() string {
	if op.To == "" {
		return fmt.Sprintf("drop default on %s.%s", op.Table, op.Column)
	}
	return fmt.Sprintf("set default on %s.%s to %s", op.Table, op.Column, op.To)
}

// AddConstraint adds a unique, check, not-null, or foreign-key constraint.
type AddConstraint struct {
	Table      string
	Constraint ConstraintSpec
}

func (op AddConstraint) Phase() Phase { return PhaseAddConstraint }

func (op AddConstraint) SQL() string {
	c := op.Constraint
	switch c.Kind {
	case ConstraintNotNull:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL",
			quote(op.Table), quote(c.Columns[0]))
	case ConstraintUnique:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
			quote(op.Table), quote(c.Name), strings.Join(quoteAll(c.Columns), ", "))
	case ConstraintCheck:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)",
			quote(op.Table), quote(c.Name), c.Check)
	case ConstraintForeignKey:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			quote(op.Table), quote(c.Name), strings.Join(quoteAll(c.Columns), ", "),
			quote(c.RefTable), strings.Join(quoteAll(c.RefColumns), ", "))
	case ConstraintPrimaryKey:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
			quote(op.Table), quote(c.Name), strings.Join(quoteAll(c.Columns), ", "))
	default:
		return ""
	}
}

func (op AddConstraint) String() string {
	return fmt.Sprintf("add %s constraint %s on %s", op.Constraint.Kind, op.Constraint.Name, op.Table)
}

// DropConstraint removes a constraint. The full spec of the removed
// constraint is retained for conceptual reversal.
type DropConstraint struct {
	Table      string
	Constraint ConstraintSpec
}

func (op DropConstraint) Phase() Phase { return PhaseDropConstraint }

func (op DropConstraint) SQL() string {
	c := op.Constraint
	if c.Kind == ConstraintNotNull {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL",
			quote(op.Table), quote(c.Columns[0]))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", quote(op.Table), quote(c.Name))
}

func (op DropConstraint) String() string {
	return fmt.Sprintf("drop %s constraint %s on %s", op.Constraint.Kind, op.Constraint.Name, op.Table)
}

// CreateIndex creates an index using the registry's strategy for the field.
type CreateIndex struct {
	Table string
	Index IndexSpec
}

func (op CreateIndex) Phase() Phase { return PhaseCreateIndex }

func (op CreateIndex) SQL() string {
	idx := op.Index
	uniq := ""
	if idx.Unique {
		uniq = "UNIQUE "
	}
	target := strings.Join(quoteAll(idx.Columns), ", ")
	if idx.Expression != "" {
		target = idx.Expression
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s USING %s (%s)",
		uniq, quote(idx.Name), quote(op.Table), idx.Method, target)
}

func (op CreateIndex) String() string {
	return fmt.Sprintf("create %s index %s on %s", op.Index.Method, op.Index.Name, op.Table)
}

// DropIndex removes an index.
type DropIndex struct {
	Table string
	Index IndexSpec
}

func (op DropIndex) Phase() Phase { return PhaseDropIndex }
func (op DropIndex) SQL() string  { return "DROP INDEX " + quote(op.Index.Name) }
func (op DropIndex) String() string {
	return fmt.Sprintf("drop index %s on %s", op.Index.Name, op.Table)
}

// CreateView creates a database view.
type CreateView struct {
	Table string
	View  ViewSpec
}

func (op CreateView) Phase() Phase { return PhaseCreateView }

func (op CreateView) SQL() string {
	return fmt.Sprintf("CREATE VIEW %s AS %s", quote(op.View.Name), op.View.Definition)
}

func (op CreateView) String() string {
	return fmt.Sprintf("create view %s for %s", op.View.Name, op.Table)
}

// DropView removes a database view.
type DropView struct {
	Table string
	View  ViewSpec
}

func (op DropView) Phase() Phase { return PhaseDropView }
func (op DropView) SQL() string  { return "DROP VIEW " + quote(op.View.Name) }
func (op DropView) String() string {
	return fmt.Sprintf("drop view %s for %s", op.View.Name, op.Table)
}

func (CreateTable) isOperation()     {}
func (DropTable) isOperation()       {}
func (AddColumn) isOperation()       {}
func (DropColumn) isOperation()      {}
func (AlterColumnType) isOperation()    {}
func (AlterColumnDefault) isOperation() {}
func (AddConstraint) isOperation()   {}
func (DropConstraint) isOperation()  {}
func (CreateIndex) isOperation()     {}
func (DropIndex) isOperation()       {}
func (CreateView) isOperation()      {}
func (DropView) isOperation()        {}

// Plan is the ordered operation list for one table, bound to the
// introspected baseline it was computed against.
type Plan struct {
	Table    string
	Baseline uint64 // fingerprint of the introspected state used for diffing
	Ops      []Operation
}

// Empty reports whether the plan is a no-op.
func (p Plan) Empty() bool { return len(p.Ops) == 0 }

// MigrationResult reports the outcome of a successful reconcile.
type MigrationResult struct {
	Table   string
	NoOp    bool
	Applied []Operation
	Version int64 // snapshot version recorded in the state store
}
