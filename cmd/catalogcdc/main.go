// Command catalogcdc attaches to a MySQL binlog stream, maps row-level
// changes in the Magento 2 catalog schema onto product-change events, and
// emits batched, de-duplicated aggregates downstream as JSON lines or
// MessagePack frames. See spec §6 for the CLI surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopsync/catalogcdc/internal/cdcerr"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "catalogcdc",
		Short:         "MySQL binlog CDC pipeline for the catalog schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the pipeline config file")
	_ = root.MarkPersistentFlagRequired("config")

	root.AddCommand(newPositionCmd(), newDumpCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "catalogcdc:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a fatal error's cdcerr.Kind to a distinct nonzero exit
// status, per SPEC_FULL's structured exit-code supplement. Errors outside
// the cdcerr taxonomy (flag parsing, etc.) exit 1.
func exitCode(err error) int {
	kind, ok := cdcerr.As(err)
	if !ok {
		return 1
	}
	switch kind {
	case cdcerr.Transport:
		return 2
	case cdcerr.PositionMissing:
		return 3
	case cdcerr.OutputEncoding:
		return 4
	case cdcerr.Synchronization:
		return 5
	default:
		return 1
	}
}
