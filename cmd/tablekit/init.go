// Init command for the tablekit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration, schema, and state directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			fail(exitSysError, "init", err)
		}
		if err := ensureConfigDir(configDir); err != nil {
			fail(exitSysError, "init", err)
		}
		if err := ensureDefaultConfigFile(configDir); err != nil {
			fail(exitSysError, "init", err)
		}

		stateDir, err := resolveStateDir()
		if err != nil {
			fail(exitSysError, "init", err)
		}
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			fail(exitSysError, "init", err)
		}

		schemaDir := flagSchemaDir
		if schemaDir == "" {
			schemaDir = defaultSchemaDir
		}
		if err := os.MkdirAll(schemaDir, 0o755); err != nil {
			fail(exitSysError, "init", err)
		}

		fmt.Println("Tablekit initialized successfully")
		fmt.Println("  config:", configDir)
		fmt.Println("  schema:", schemaDir)
		fmt.Println("  state: ", stateDir)
		return nil
	},
}
