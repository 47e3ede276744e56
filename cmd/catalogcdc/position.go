package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopsync/catalogcdc/internal/cdcerr"
	"github.com/shopsync/catalogcdc/internal/config"
)

func newPositionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "position",
		Short: "Print the server's current binlog file and position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			conn, err := connectAndAuth(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			file, pos, err := conn.MasterStatus()
			if err != nil {
				return cdcerr.NewTransport(err)
			}
			if file == "" {
				return cdcerr.NewPositionMissing()
			}

			out, err := json.MarshalIndent(struct {
				File     string `json:"file"`
				Position uint32 `json:"position"`
			}{file, pos}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
