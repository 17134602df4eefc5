// Version command for the tablekit CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/pkg/tablekit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tablekit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tablekit", tablekit.Version)
	},
}
