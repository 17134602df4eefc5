package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation_SQL(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{
			name: "create table with primary key",
			op: CreateTable{Name: "products", Columns: []ColumnSpec{
				{Name: "id", DataType: "text", NotNull: true},
				{Name: "price", DataType: "numeric(10,2)", Default: "0"},
			}, PrimaryKey: []string{"id"}},
			want: `CREATE TABLE "products" ("id" text NOT NULL, "price" numeric(10,2) DEFAULT 0, PRIMARY KEY ("id"))`,
		},
		{
			name: "add column",
			op:   AddColumn{Table: "products", Column: ColumnSpec{Name: "color", DataType: "char(7)"}},
			want: `ALTER TABLE "products" ADD COLUMN "color" char(7)`,
		},
		{
			name: "drop column",
			op:   DropColumn{Table: "products", Column: ColumnSpec{Name: "color", DataType: "char(7)"}},
			want: `ALTER TABLE "products" DROP COLUMN "color"`,
		},
		{
			name: "alter column type casts explicitly",
			op:   AlterColumnType{Table: "products", Column: "qty", From: "integer", To: "bigint"},
			want: `ALTER TABLE "products" ALTER COLUMN "qty" TYPE bigint USING "qty"::bigint`,
		},
		{
			name: "set column default",
			op:   AlterColumnDefault{Table: "products", Column: "status", To: "'draft'"},
			want: `ALTER TABLE "products" ALTER COLUMN "status" SET DEFAULT 'draft'`,
		},
		{
			name: "drop column default",
			op:   AlterColumnDefault{Table: "products", Column: "status", From: "'draft'"},
			want: `ALTER TABLE "products" ALTER COLUMN "status" DROP DEFAULT`,
		},
		{
			name: "add check constraint",
			op: AddConstraint{Table: "products", Constraint: ConstraintSpec{
				Name: "ck_products_rating", Kind: ConstraintCheck,
				Columns: []string{"rating"}, Check: `"rating" >= 1 AND "rating" <= 5`,
			}},
			want: `ALTER TABLE "products" ADD CONSTRAINT "ck_products_rating" CHECK ("rating" >= 1 AND "rating" <= 5)`,
		},
		{
			name: "add unique constraint",
			op: AddConstraint{Table: "products", Constraint: ConstraintSpec{
				Name: "uq_products_sku", Kind: ConstraintUnique, Columns: []string{"sku"},
			}},
			want: `ALTER TABLE "products" ADD CONSTRAINT "uq_products_sku" UNIQUE ("sku")`,
		},
		{
			name: "add foreign key",
			op: AddConstraint{Table: "products", Constraint: ConstraintSpec{
				Name: "fk_products_vendor", Kind: ConstraintForeignKey,
				Columns: []string{"vendor"}, RefTable: "vendors", RefColumns: []string{"id"},
			}},
			want: `ALTER TABLE "products" ADD CONSTRAINT "fk_products_vendor" FOREIGN KEY ("vendor") REFERENCES "vendors" ("id")`,
		},
		{
			name: "not-null becomes SET NOT NULL",
			op: AddConstraint{Table: "products", Constraint: ConstraintSpec{
				Name: "nn_products_sku", Kind: ConstraintNotNull, Columns: []string{"sku"},
			}},
			want: `ALTER TABLE "products" ALTER COLUMN "sku" SET NOT NULL`,
		},
		{
			name: "dropping not-null becomes DROP NOT NULL",
			op: DropConstraint{Table: "products", Constraint: ConstraintSpec{
				Name: "nn_products_sku", Kind: ConstraintNotNull, Columns: []string{"sku"},
			}},
			want: `ALTER TABLE "products" ALTER COLUMN "sku" DROP NOT NULL`,
		},
		{
			name: "drop named constraint",
			op: DropConstraint{Table: "products", Constraint: ConstraintSpec{
				Name: "uq_products_sku", Kind: ConstraintUnique, Columns: []string{"sku"},
			}},
			want: `ALTER TABLE "products" DROP CONSTRAINT "uq_products_sku"`,
		},
		{
			name: "create btree index",
			op: CreateIndex{Table: "products", Index: IndexSpec{
				Name: "ix_products_price", Method: "btree", Columns: []string{"price"},
			}},
			want: `CREATE INDEX "ix_products_price" ON "products" USING btree ("price")`,
		},
		{
			name: "create gin expression index",
			op: CreateIndex{Table: "products", Index: IndexSpec{
				Name: "ix_products_body", Method: "gin", Columns: []string{"body"},
				Expression: `to_tsvector('english', "body")`,
			}},
			want: `CREATE INDEX "ix_products_body" ON "products" USING gin (to_tsvector('english', "body"))`,
		},
		{
			name: "drop index",
			op:   DropIndex{Table: "products", Index: IndexSpec{Name: "ix_products_price"}},
			want: `DROP INDEX "ix_products_price"`,
		},
		{
			name: "create view",
			op: CreateView{Table: "products", View: ViewSpec{
				Name: "products_resolved", Definition: `SELECT "products".* FROM "products"`,
			}},
			want: `CREATE VIEW "products_resolved" AS SELECT "products".* FROM "products"`,
		},
		{
			name: "drop view",
			op:   DropView{Table: "products", View: ViewSpec{Name: "products_resolved"}},
			want: `DROP VIEW "products_resolved"`,
		},
		{
			name: "quoting defuses hostile identifiers",
			op:   DropTable{Name: `p"; DROP TABLE users; --`},
			want: `DROP TABLE "p""; DROP TABLE users; --"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.SQL())
		})
	}
}

func TestPhase_Ordering(t *testing.T) {
	// Destruction precedes construction, except views: a view pins its
	// columns, so drops come first and creates come last.
	assert.Less(t, PhaseCreateTable, PhaseDropView)
	assert.Less(t, PhaseDropView, PhaseDropConstraint)
	assert.Less(t, PhaseDropConstraint, PhaseDropIndex)
	assert.Less(t, PhaseDropIndex, PhaseDropColumn)
	assert.Less(t, PhaseDropColumn, PhaseAddColumn)
	assert.Less(t, PhaseAddColumn, PhaseAlterColumnType)
	assert.Equal(t, PhaseAlterColumnType, AlterColumnDefault{}.Phase(),
		"default changes ride the column-alteration phase")
	assert.Less(t, PhaseAlterColumnType, PhaseAddConstraint)
	assert.Less(t, PhaseAddConstraint, PhaseCreateIndex)
	assert.Less(t, PhaseCreateIndex, PhaseCreateView)
	assert.Less(t, PhaseCreateView, PhaseDropTable)
}

func TestPlan_Empty(t *testing.T) {
	assert.True(t, Plan{Table: "products"}.Empty())
	assert.False(t, Plan{Ops: []Operation{DropTable{Name: "products"}}}.Empty())
}
