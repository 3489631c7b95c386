package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trieql/leapstore/internal/dbio"
	"github.com/trieql/leapstore/internal/engine"
)

func newQueryCmd() *cobra.Command {
	var interactive bool
	var limit int
	var showStats bool

	cmd := &cobra.Command{
		Use:   "query <db-name> [sparql-file]",
		Short: "run a SPARQL SELECT query against a built database",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			db, err := engine.Open(dbio.Root, name, logger)
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer db.Close()

			if showStats {
				info := db.Info()
				fmt.Printf("triples: %d, entities: %d, predicates: %d\n",
					info.TripleCount, info.EntityCount, info.PredicateCount)
			}

			if interactive {
				return runInteractive(db, limit)
			}
			if len(args) < 2 {
				return fmt.Errorf("query: a sparql-file is required unless --interactive is set")
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}
			return runOnce(db, string(raw), limit)
		},
	}
	cmd.Flags().BoolVar(&interactive, "interactive", false, "read queries one at a time from stdin")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of rows printed (0 means use the query's own LIMIT, or unlimited)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print triple/entity/predicate counts before querying")
	return cmd
}

func runOnce(db *engine.DB, sparql string, limit int) error {
	result, err := db.Query(sparql)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	printResult(result, limit)
	return nil
}

func runInteractive(db *engine.DB, limit int) error {
	fmt.Println("leapstore interactive query mode — one SPARQL query per line, ctrl-D to exit")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("sparql> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		result, err := db.Query(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printResult(result, limit)
	}
	return sc.Err()
}

func printResult(result *engine.QueryResult, limit int) {
	rows := result.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	fmt.Print("| ")
	for _, v := range result.Vars {
		fmt.Printf("%-20s | ", v)
	}
	fmt.Println()

	for _, row := range rows {
		fmt.Print("| ")
		for _, val := range row {
			fmt.Printf("%-20s | ", val)
		}
		fmt.Println()
	}
	fmt.Printf("(%d rows)\n", len(rows))
}
