// Shared helpers for tablekit CLI commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/tablekit/tablekit/internal/engine"
	"github.com/tablekit/tablekit/internal/logging"
	"github.com/tablekit/tablekit/internal/schemafile"
	"github.com/tablekit/tablekit/pkg/types"
)

// buildConfig assembles the engine Config from flags, config.yaml, and
// environment.
func buildConfig() (types.Config, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve state dir: %w", err)
	}
	cfg := types.Config{
		DSN:            resolveDSN(),
		StateDir:       stateDir,
		MaxLookupDepth: configMaxDepth,
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// newEngine connects an Engine using the resolved configuration. The caller
// must defer eng.Close().
func newEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	var log *zap.Logger
	if flagVerbose {
		if log, err = logging.New("debug", flagJSON); err != nil {
			return nil, err
		}
	}
	return engine.New(ctx, cfg, log)
}

// loadSchemas loads table definitions. With explicit file arguments those
// files are loaded in order; otherwise every .yaml/.yml file in the schema
// directory is loaded in name order.
func loadSchemas(args []string) ([]types.Table, error) {
	files := args
	if len(files) == 0 {
		dir := flagSchemaDir
		if dir == "" {
			dir = configSchemaDir
		}
		if dir == "" {
			dir = defaultSchemaDir
		}
		var err error
		if files, err = schemaFilesIn(dir); err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no schema files found in %s", dir)
		}
	}

	var tables []types.Table
	for _, path := range files {
		loaded, err := schemafile.Load(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, loaded...)
	}
	return tables, nil
}

// schemaFilesIn lists YAML files in dir, sorted by name for deterministic
// load order.
func schemaFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail prints the error and exits with the given code.
func fail(code int, context string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", context, err)
	os.Exit(code)
}
