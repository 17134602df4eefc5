// Plan command for the tablekit CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/pkg/types"
)

var planCmd = &cobra.Command{
	Use:   "plan [schema.yaml ...]",
	Short: "Show the ordered operations a reconcile would apply",
	Long: `Diff every declared table against the live database and print the
resulting operation list without executing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadSchemas(args)
		if err != nil {
			fail(exitUserError, "plan", err)
		}

		eng, err := newEngine(cmd.Context())
		if err != nil {
			fail(exitSysError, "plan", err)
		}
		defer eng.Close()

		eng.Register(tables...)
		var plans []types.Plan
		for _, t := range tables {
			plan, err := eng.Plan(cmd.Context(), t)
			if err != nil {
				fail(exitUserError, "plan", err)
			}
			plans = append(plans, plan)
		}

		if flagJSON {
			return printJSON(planReport(plans))
		}
		for _, plan := range plans {
			if plan.Empty() {
				fmt.Printf("%s: up to date\n", plan.Table)
				continue
			}
			fmt.Printf("%s: %d operation(s)\n", plan.Table, len(plan.Ops))
			for _, op := range plan.Ops {
				fmt.Printf("  %s\n", op)
			}
		}
		return nil
	},
}

// planReport converts plans into a JSON-friendly shape: operation summaries
// and the DDL each would run.
func planReport(plans []types.Plan) []map[string]any {
	out := make([]map[string]any, 0, len(plans))
	for _, plan := range plans {
		ops := make([]map[string]string, 0, len(plan.Ops))
		for _, op := range plan.Ops {
			ops = append(ops, map[string]string{
				"operation": op.String(),
				"sql":       op.SQL(),
			})
		}
		out = append(out, map[string]any{
			"table":      plan.Table,
			"upToDate":   plan.Empty(),
			"operations": ops,
		})
	}
	return out
}
