// Config loading for the tablekit CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyDSN            = "dsn"
	cfgKeySchemaDir      = "schema_dir"
	cfgKeyStateDir       = "state_dir"
	cfgKeyMaxLookupDepth = "max_lookup_depth"

	// Environment variable consulted when neither flag nor config.yaml
	// carries a connection string.
	envDSNVar = "TABLEKIT_DSN"

	defaultSchemaDir = "schema"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Tablekit CLI configuration

# PostgreSQL connection string (overridable by --dsn flag or TABLEKIT_DSN)
# dsn: postgres://localhost:5432/mydb

# Directory of declarative schema YAML files
schema_dir: schema

# Snapshot store directory (optional; overridable by --state-dir flag)
# state_dir:

# Maximum lookup chain depth
max_lookup_depth: 5
`

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeySchemaDir, defaultSchemaDir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		// File already exists.
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// envDSN returns the connection string from the environment.
func envDSN() string {
	return os.Getenv(envDSNVar)
}
