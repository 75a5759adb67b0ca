package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/larsson/sokmotor/pkg/core"
)

// newSearchCmd creates a cobra command that runs a single query against the
// configured index and prints the ranked results to stdout, without
// starting the HTTP API. Useful for smoke-testing a freshly crawled index
// from the command line.
func newSearchCmd(flags *cmdFlags) *cobra.Command {
	var (
		limit    int
		offset   int
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a single search against the configured index",
		Long:  "Parse, rank and print the results of a single query against the configured index, without starting the HTTP API.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunSearchOnce(cmd.Context(), flags, strings.Join(args, " "), limit, offset, core.Strategy(strategy))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset for pagination")
	cmd.Flags().StringVar(&strategy, "strategy", string(core.StrategyHybrid), "ranking strategy (hybrid, relevance, popularity, recency)")

	return cmd
}

// RunSearchOnce initializes the logger and configuration, wires the
// components, runs a single query through the orchestrator and prints the
// ranked results.
func RunSearchOnce(ctx context.Context, flags *cmdFlags, query string, limit, offset int, strategy core.Strategy) error {
	if err := initLogger(flags); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	defer comps.store.Close()

	rs, err := comps.orch.Search(query, limit, offset, strategy, time.Now())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if rs.Invalid {
		fmt.Printf("invalid query: %s\n", rs.Diagnostic) //nolint:forbidigo // CLI output is intentional

		return nil
	}

	fmt.Printf("%d results (%d total, %dms)\n", rs.ReturnedResults, rs.TotalResults, rs.ExecutionTimeMs) //nolint:forbidigo // CLI output is intentional

	for _, r := range rs.Results {
		fmt.Printf("%2d. [%.3f] %s\n    %s\n    %s\n", r.Rank, r.Score, r.Title, r.URL, r.Snippet) //nolint:forbidigo // CLI output is intentional
	}

	return nil
}
