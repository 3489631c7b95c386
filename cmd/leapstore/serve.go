package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trieql/leapstore/internal/dbio"
	"github.com/trieql/leapstore/internal/engine"
	"github.com/trieql/leapstore/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <db-name>",
		Short: "serve a built database over the SPARQL 1.1 HTTP protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			db, err := engine.Open(dbio.Root, name, logger)
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer db.Close()

			srv := server.New(db, addr, logger)
			return srv.Start()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address to listen on")
	return cmd
}
