// Validate command for the tablekit CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/internal/resolve"
	"github.com/tablekit/tablekit/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema.yaml ...]",
	Short: "Check schema files without touching any database",
	Long: `Load the given schema files (or every YAML file in the schema directory),
validate each table declaration, and resolve cross-table relationships and
lookup chains. No database connection is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadSchemas(args)
		if err != nil {
			fail(exitUserError, "validate", err)
		}

		cfg, err := buildConfig()
		if err != nil {
			fail(exitSysError, "validate", err)
		}

		cat := resolve.NewCatalog(tables)
		for _, t := range tables {
			if err := t.Validate(); err != nil {
				fail(exitUserError, "validate", err)
			}
			if err := resolve.ValidateTable(cat, t, cfg.MaxLookupDepth); err != nil {
				fail(exitUserError, "validate", err)
			}
		}

		if flagJSON {
			return printJSON(map[string]any{"tables": tableNames(tables), "valid": true})
		}
		fmt.Printf("%d table(s) valid\n", len(tables))
		return nil
	},
}

func tableNames(tables []types.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}
