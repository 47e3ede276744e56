package main

import (
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var output string
	var serverID uint32
	var heartbeat time.Duration
	cmd := &cobra.Command{
		Use:   "watch [--output json|binary] <FILE> <POSITION>",
		Short: "Stream indefinitely, exiting only on cancellation or a fatal error",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runStream(ctx, streamOptions{
				file:      args[0],
				position:  uint32(position),
				output:    output,
				watch:     true,
				serverID:  serverID,
				heartbeat: heartbeat,
			})
		},
	}
	cmd.Flags().StringVar(&output, "output", "json", "output format: json or binary")
	cmd.Flags().Uint32Var(&serverID, "server-id", 0, "replica id to register as; 0 picks an unused id automatically")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 30*time.Second, "server heartbeat period while waiting for new events; 0 disables")
	return cmd
}
