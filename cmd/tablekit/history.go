// History command for the tablekit CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <table>",
	Short: "Print recorded schema snapshots of a table, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			fail(exitSysError, "history", err)
		}

		// The snapshot store is local; no database connection needed.
		store := state.NewStore()
		if err := store.Attach(cfg); err != nil {
			fail(exitSysError, "history", err)
		}
		defer store.Detach()

		snaps, err := store.History(args[0], historyLimit)
		if err != nil {
			fail(exitSysError, "history", err)
		}

		if flagJSON {
			return printJSON(snaps)
		}
		if len(snaps) == 0 {
			fmt.Printf("%s: no snapshots recorded\n", args[0])
			return nil
		}
		for _, snap := range snaps {
			fmt.Printf("v%-4d %016x  %s  %d column(s)\n",
				snap.Version, snap.Fingerprint,
				snap.CreatedAt.Format("2006-01-02 15:04:05"),
				len(snap.State.Columns))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of snapshots to show (0 for all)")
}
