// Command leapstore builds and queries leapstore databases: a fixed-stride
// on-disk triple index with SPARQL basic-graph-pattern support, mmap'd
// read-only at query time. Grounded on the teacher's cmd/trigo/main.go
// wiring shape (storage -> engine -> parser -> planner -> executor),
// restructured around cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

func main() {
	root := &cobra.Command{
		Use:   "leapstore",
		Short: "leapstore is an RDF triple store with SPARQL BGP queries",
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg = zap.NewDevelopmentConfig()
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("configure logger: %w", err)
		}
		logger = l
		return nil
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
