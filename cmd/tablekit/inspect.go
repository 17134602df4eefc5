// Inspect command for the tablekit CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: "Print the introspected state of a live table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd.Context())
		if err != nil {
			fail(exitSysError, "inspect", err)
		}
		defer eng.Close()

		state, err := eng.Inspect(cmd.Context(), args[0])
		if err != nil {
			fail(exitSysError, "inspect", err)
		}

		if flagJSON {
			return printJSON(state)
		}
		if !state.Exists {
			fmt.Printf("%s: does not exist\n", state.Name)
			return nil
		}
		fmt.Printf("%s (fingerprint %016x)\n", state.Name, state.Fingerprint())
		for _, col := range state.Columns {
			notNull := ""
			if col.NotNull {
				notNull = " NOT NULL"
			}
			fmt.Printf("  column %-24s %s%s\n", col.Name, col.DataType, notNull)
		}
		for _, cons := range state.Constraints {
			fmt.Printf("  constraint %-20s %s %v\n", cons.Name, cons.Kind, cons.Columns)
		}
		for _, idx := range state.Indexes {
			fmt.Printf("  index %-25s %s %v\n", idx.Name, idx.Method, idx.Columns)
		}
		for _, v := range state.Views {
			fmt.Printf("  view %s\n", v.Name)
		}
		return nil
	},
}
