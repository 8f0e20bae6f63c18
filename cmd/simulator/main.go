package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"gator-forum/internal/logging"
	"gator-forum/simulator"

	"github.com/spf13/cobra"
)

func main() {
	cfg := simulator.DefaultSimConfig()
	var verbose bool

	cmd := &cobra.Command{
		Use:          "simulator",
		Short:        "Generate forum traffic against a running server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(os.Stderr, verbose)
			sim, err := simulator.NewEnhancedSimulator(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cfg.SimulationTime)
			defer cancel()

			if err := sim.Run(ctx); err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			m := sim.GetMetrics()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Simulation completed in %v\n", m.Elapsed.Round(1e6))
			fmt.Fprintf(out, "- Requests: %d (%d failed)\n", m.TotalRequests, m.FailedRequests)
			fmt.Fprintf(out, "- Posts: %d, comments: %d, votes: %d (%d duplicates)\n",
				m.TotalPosts, m.TotalComments, m.TotalVotes, m.DuplicateVotes)
			fmt.Fprintf(out, "- Latency p50 %v, p99 %v\n", m.P50Latency, m.P99Latency)
			for code, n := range m.ErrorsByCode {
				fmt.Fprintf(out, "- %s: %d\n", code, n)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.EngineURL, "url", cfg.EngineURL, "base URL of the forum server")
	flags.IntVar(&cfg.NumUsers, "users", cfg.NumUsers, "number of simulated users")
	flags.IntVar(&cfg.SeedPosts, "seed-posts", cfg.SeedPosts, "posts created before traffic starts")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent request workers")
	flags.DurationVar(&cfg.SimulationTime, "duration", cfg.SimulationTime, "how long to generate traffic")
	flags.Float64Var(&cfg.VoteRatio, "vote-ratio", cfg.VoteRatio, "fraction of actions that are votes")
	flags.Float64Var(&cfg.CommentRatio, "comment-ratio", cfg.CommentRatio, "fraction of actions that are comments")
	flags.Float64Var(&cfg.ZipfS, "zipf", cfg.ZipfS, "Zipf exponent for post popularity (must be > 1)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
