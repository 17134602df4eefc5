// Apply command for the tablekit CLI.
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply [schema.yaml ...]",
	Short: "Reconcile the live database with the declared schema",
	Long: `Diff every declared table against the live database and apply the
resulting migrations, each in its own transaction. Tables that already
match their declaration are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadSchemas(args)
		if err != nil {
			fail(exitUserError, "apply", err)
		}

		eng, err := newEngine(cmd.Context())
		if err != nil {
			fail(exitSysError, "apply", err)
		}
		defer eng.Close()

		results, err := eng.ReconcileAll(cmd.Context(), tables)
		if err != nil {
			var vErr *types.ValidationError
			if errors.As(err, &vErr) {
				fail(exitUserError, "apply", err)
			}
			fail(exitSysError, "apply", err)
		}

		if flagJSON {
			return printJSON(applyReport(results))
		}
		for _, res := range results {
			if res.NoOp {
				fmt.Printf("%s: up to date\n", res.Table)
				continue
			}
			fmt.Printf("%s: applied %d operation(s), snapshot v%d\n",
				res.Table, len(res.Applied), res.Version)
		}
		return nil
	},
}

func applyReport(results []types.MigrationResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		out = append(out, map[string]any{
			"table":   res.Table,
			"noOp":    res.NoOp,
			"applied": len(res.Applied),
			"version": res.Version,
		})
	}
	return out
}
