// Package main provides the tablekit CLI: declarative PostgreSQL schema
// management driven by YAML table definitions.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
