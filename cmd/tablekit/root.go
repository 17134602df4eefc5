// Root command for the tablekit CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/internal/paths"
	"github.com/tablekit/tablekit/pkg/tablekit"
)

// Exit codes: 1 for schema and usage errors, 2 for system failures
// (database unreachable, state store unwritable).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDSN       string
	flagStateDir  string
	flagSchemaDir string
	flagJSON      bool
	flagVerbose   bool
)

// Values loaded from config.yaml by PersistentPreRunE so all subcommands
// can use them.
var (
	configDSN       string
	configStateDir  string
	configSchemaDir string
	configMaxDepth  int
)

var rootCmd = &cobra.Command{
	Use:     "tablekit",
	Short:   "Tablekit reconciles declarative table schemas with PostgreSQL",
	Version: tablekit.Version,
	// Do not print usage on errors returned by subcommands.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configDSN = cfg.GetString(cfgKeyDSN)
		configStateDir = cfg.GetString(cfgKeyStateDir)
		configSchemaDir = cfg.GetString(cfgKeySchemaDir)
		configMaxDepth = cfg.GetInt(cfgKeyMaxLookupDepth)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "PostgreSQL connection string (overrides config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "snapshot store directory (default: $(CWD)/.tablekit-state)")
	rootCmd.PersistentFlags().StringVar(&flagSchemaDir, "schema-dir", "", "directory of schema YAML files (default: schema_dir from config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "log engine activity to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
}

// resolveConfigDir returns the configuration directory following the
// precedence chain: --config-dir flag > TABLEKIT_CONFIG_DIR env > platform
// default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveStateDir returns the state directory following the precedence
// chain: --state-dir flag > config.yaml state_dir > TABLEKIT_STATE_DIR env >
// default $(CWD)/.tablekit-state.
func resolveStateDir() (string, error) {
	return paths.ResolveStateDir(flagStateDir, configStateDir)
}

// resolveDSN returns the connection string: --dsn flag > config.yaml dsn >
// TABLEKIT_DSN env.
func resolveDSN() string {
	if flagDSN != "" {
		return flagDSN
	}
	if configDSN != "" {
		return configDSN
	}
	return envDSN()
}
