package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dump [--output json|binary] <FILE> <POSITION>",
		Short: "Stream from the given position until the server signals end-of-log, then exit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return err
			}
			return runStream(context.Background(), streamOptions{
				file:     args[0],
				position: uint32(position),
				output:   output,
				watch:    false,
			})
		},
	}
	cmd.Flags().StringVar(&output, "output", "json", "output format: json or binary")
	return cmd
}
