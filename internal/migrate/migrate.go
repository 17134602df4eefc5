// Package migrate executes migration plans. A plan runs inside a single
// transaction: either every operation commits or the table is left exactly
// as it was. Before touching anything the executor re-introspects the table
// and compares fingerprints, so a plan computed against a schema that has
// since drifted is rejected instead of applied to an unexpected baseline.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tablekit/tablekit/internal/introspect"
	"github.com/tablekit/tablekit/pkg/types"
)

// Executor applies plans against one database. It never retries: a failed
// migration is rolled back and reported, and the caller decides what to do
// next.
type Executor struct {
	pool *pgxpool.Pool
	insp *introspect.Introspector
	log  *zap.Logger
}

// New creates an Executor. The caller is responsible for serializing plans
// per table; the executor assumes the table lock is already held.
func New(pool *pgxpool.Pool, insp *introspect.Introspector, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{pool: pool, insp: insp, log: log}
}

// Execute runs the plan. The returned error is a *types.StalePlanError when
// the live schema no longer matches the plan's baseline, or a
// *types.ExecutionError identifying the first operation the database
// rejected. On any error the transaction has been rolled back.
func (e *Executor) Execute(ctx context.Context, plan types.Plan) error {
	if plan.Empty() {
		return nil
	}

	// Optimistic drift check: the plan binds the fingerprint of the state
	// it was diffed against.
	current, err := e.insp.Table(ctx, plan.Table)
	if err != nil {
		return fmt.Errorf("re-introspecting %s: %w", plan.Table, err)
	}
	if fp := current.Fingerprint(); fp != plan.Baseline {
		return &types.StalePlanError{Table: plan.Table, Planned: plan.Baseline, Current: fp}
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning migration of %s: %w", plan.Table, err)
	}
	defer rollback(ctx, tx)

	for i, op := range plan.Ops {
		if _, err := tx.Exec(ctx, op.SQL()); err != nil {
			e.log.Warn("migration operation failed",
				zap.String("table", plan.Table),
				zap.Int("operation", i),
				zap.String("ddl", op.SQL()),
				zap.Error(err))
			return &types.ExecutionError{Table: plan.Table, Index: i, Op: op, Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration of %s: %w", plan.Table, err)
	}
	e.log.Info("migration applied",
		zap.String("table", plan.Table),
		zap.Int("operations", len(plan.Ops)))
	return nil
}

// rollback discards the transaction; a commit that already happened makes
// this a no-op.
func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		// Nothing actionable: the connection will be discarded by the pool.
		_ = err
	}
}
