package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trieql/leapstore/internal/dbio"
	"github.com/trieql/leapstore/internal/engine"
)

func newBuildCmd() *cobra.Command {
	var threads int

	cmd := &cobra.Command{
		Use:   "build <db-name> <rdf-file>",
		Short: "build a database from an N-Triples file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, inputPath := args[0], args[1]
			logger.Info("building database", zap.String("db", name), zap.String("input", inputPath), zap.Int("threads", threads))
			if err := engine.Build(dbio.Root, name, inputPath, threads, logger); err != nil {
				return fmt.Errorf("build %s: %w", name, err)
			}
			fmt.Printf("built %s from %s\n", name, inputPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&threads, "threads", 1, "worker pool size for the per-predicate build phases")
	return cmd
}
