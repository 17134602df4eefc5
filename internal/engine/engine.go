// Package engine orchestrates the reconcile pipeline: validate the declared
// table, introspect the live schema, diff, execute the plan in one
// transaction, and record the post-migration snapshot. The engine owns the
// per-table locks; everything below it is lock-free.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tablekit/tablekit/internal/diff"
	"github.com/tablekit/tablekit/internal/introspect"
	"github.com/tablekit/tablekit/internal/migrate"
	"github.com/tablekit/tablekit/internal/resolve"
	"github.com/tablekit/tablekit/internal/state"
	"github.com/tablekit/tablekit/internal/view"
	"github.com/tablekit/tablekit/pkg/types"
)

// reconcileConcurrency bounds how many tables migrate at once within a
// dependency wave.
const reconcileConcurrency = 4

// Engine is the reconcile entry point. Create one with New, Close when done.
type Engine struct {
	cfg   types.Config
	pool  *pgxpool.Pool
	insp  *introspect.Introspector
	exec  *migrate.Executor
	store *state.Store
	log   *zap.Logger

	mu      sync.Mutex
	catalog resolve.Catalog
	locks   map[string]*sync.Mutex
}

// New connects to the database, opens the snapshot store, and returns a
// ready engine. A nil logger disables logging.
func New(ctx context.Context, cfg types.Config, log *zap.Logger) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := state.NewStore()
	if err := store.Attach(cfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	insp := introspect.New(pool, "")
	return &Engine{
		cfg:     cfg,
		pool:    pool,
		insp:    insp,
		exec:    migrate.New(pool, insp, log),
		store:   store,
		log:     log,
		catalog: resolve.Catalog{},
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the connection pool and the snapshot store.
func (e *Engine) Close() error {
	e.pool.Close()
	return e.store.Detach()
}

// Store exposes the snapshot store for read-side consumers (CLI history,
// button metadata).
func (e *Engine) Store() *state.Store { return e.store }

// Register adds tables to the engine's catalog without reconciling them,
// so planning a single table can still resolve references to its peers.
func (e *Engine) Register(tables ...types.Table) {
	e.register(tables...)
}

// register merges tables into the engine's catalog so cross-table
// relationships and lookups resolve on subsequent calls.
func (e *Engine) register(tables ...types.Table) resolve.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range tables {
		e.catalog[t.Name] = t
	}
	cat := make(resolve.Catalog, len(e.catalog))
	for name, t := range e.catalog {
		cat[name] = t
	}
	return cat
}

// tableLock returns the exclusive lock for a table, creating it on first use.
func (e *Engine) tableLock(name string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.locks[name]
	if !ok {
		lk = &sync.Mutex{}
		e.locks[name] = lk
	}
	return lk
}

// Plan validates desired and computes its migration plan without executing
// anything.
func (e *Engine) Plan(ctx context.Context, desired types.Table) (types.Plan, error) {
	cat := e.register(desired)

	current, err := e.insp.Table(ctx, desired.Name)
	if err != nil {
		return types.Plan{}, err
	}
	return diff.New(cat, e.cfg.MaxLookupDepth).Diff(desired, current)
}

// Reconcile converges the live schema on desired and records a snapshot.
// Reconciling an unchanged table is a no-op and reports NoOp without opening
// a transaction. On StalePlanError the caller may simply call Reconcile
// again; the engine itself never retries.
func (e *Engine) Reconcile(ctx context.Context, desired types.Table) (types.MigrationResult, error) {
	cat := e.register(desired)
	return e.reconcile(ctx, cat, desired)
}

func (e *Engine) reconcile(ctx context.Context, cat resolve.Catalog, desired types.Table) (types.MigrationResult, error) {
	lk := e.tableLock(desired.Name)
	lk.Lock()
	defer lk.Unlock()

	current, err := e.insp.Table(ctx, desired.Name)
	if err != nil {
		return types.MigrationResult{}, err
	}
	plan, err := diff.New(cat, e.cfg.MaxLookupDepth).Diff(desired, current)
	if err != nil {
		return types.MigrationResult{}, err
	}

	result := types.MigrationResult{Table: desired.Name}
	if plan.Empty() {
		result.NoOp = true
		e.log.Debug("schema already converged", zap.String("table", desired.Name))
		return result, nil
	}

	e.log.Info("reconciling table",
		zap.String("table", desired.Name),
		zap.Int("operations", len(plan.Ops)))
	if err := e.exec.Execute(ctx, plan); err != nil {
		return types.MigrationResult{}, err
	}
	result.Applied = plan.Ops

	applied, err := e.insp.Table(ctx, desired.Name)
	if err != nil {
		return types.MigrationResult{}, fmt.Errorf("introspecting %s after migration: %w", desired.Name, err)
	}
	version, err := e.store.Record(applied)
	if err != nil {
		return types.MigrationResult{}, fmt.Errorf("recording snapshot of %s: %w", desired.Name, err)
	}
	result.Version = int64(version)

	if err := e.store.PutButtons(desired); err != nil {
		return types.MigrationResult{}, fmt.Errorf("recording button metadata of %s: %w", desired.Name, err)
	}
	return result, nil
}

// ReconcileAll reconciles every table. Tables are grouped into dependency
// waves (a table waits for its relationship and lookup targets) and each
// wave runs concurrently; results come back in input order. The first error
// stops the run, leaving already-committed tables in place.
func (e *Engine) ReconcileAll(ctx context.Context, tables []types.Table) ([]types.MigrationResult, error) {
	cat := e.register(tables...)

	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
	}
	results := make([]types.MigrationResult, len(tables))

	done := make(map[string]bool, len(tables))
	remaining := append([]types.Table(nil), tables...)
	for len(remaining) > 0 {
		wave, rest := nextWave(cat, remaining, done, e.cfg.MaxLookupDepth)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reconcileConcurrency)
		var resMu sync.Mutex
		for _, t := range wave {
			g.Go(func() error {
				res, err := e.reconcile(gctx, cat, t)
				if err != nil {
					return err
				}
				resMu.Lock()
				results[index[t.Name]] = res
				resMu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, t := range wave {
			done[t.Name] = true
		}
		remaining = rest
	}
	return results, nil
}

// nextWave picks the tables whose dependencies are already reconciled (or
// outside the batch, or self-referential). When nothing is ready the
// remaining tables form a reference cycle; they all run in one final wave
// and the database reports whatever cannot be satisfied.
func nextWave(cat resolve.Catalog, remaining []types.Table, done map[string]bool, maxDepth int) (wave, rest []types.Table) {
	pending := make(map[string]bool, len(remaining))
	for _, t := range remaining {
		pending[t.Name] = true
	}
	for _, t := range remaining {
		ready := true
		for _, dep := range dependencies(cat, t, maxDepth) {
			if dep != t.Name && pending[dep] && !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			wave = append(wave, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(wave) == 0 {
		return remaining, nil
	}
	return wave, rest
}

// dependencies lists the tables t's physical objects reference: foreign-key
// targets and every table its lookup projection view joins.
func dependencies(cat resolve.Catalog, t types.Table, maxDepth int) []string {
	seen := make(map[string]bool)
	var deps []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	for _, f := range t.Fields {
		if o, ok := f.Options.(types.RelationshipOptions); ok {
			add(o.TargetTable)
		}
	}
	lookups, err := resolve.Table(cat, t, maxDepth)
	if err != nil {
		// Resolution failures surface later from Diff with full context.
		return deps
	}
	for _, lk := range lookups {
		for _, j := range lk.Joins {
			add(j.TargetTable)
		}
	}
	return deps
}

// Inspect returns the live state of a table.
func (e *Engine) Inspect(ctx context.Context, table string) (types.TableState, error) {
	return e.insp.Table(ctx, table)
}

// Contracts compiles every view of a table into its retrieval contract.
func (e *Engine) Contracts(t types.Table) ([]view.Contract, error) {
	return view.CompileAll(t)
}

// EventShape returns the change-event template for a table: kind unset,
// record keys matching the table's physical and projected fields with nil
// values. Delivery layers fill in the values; the engine only guarantees the
// key set tracks the reconciled schema.
func (e *Engine) EventShape(t types.Table) types.RecordEvent {
	record := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		if f.Type == types.FieldButton {
			continue // buttons have no data representation
		}
		record[f.Name] = nil
	}
	return types.RecordEvent{TableID: t.ID, Record: record}
}
