package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanae-abe/cldev/internal/config"
	"github.com/sanae-abe/cldev/internal/index"
)

var lrCmd = &cobra.Command{
	Use:   "lr",
	Short: "Query and manage learning records",
	Long: `Query and manage learning records.

Learning records are markdown session files indexed into SQLite.

Usage:
  cldev lr rebuild                  # Rebuild the index from markdown files
  cldev lr search "race condition"  # Full-text search
  cldev lr file handler.go          # Sessions that touched a file
  cldev lr tag concurrency          # Sessions with a tag
  cldev lr error "panic: nil map"   # Sessions with a matching error
  cldev lr similar "panic: ..."     # Fuzzy error match
  cldev lr suggest --file x.go      # Context-aware suggestions
  cldev lr hotspots                 # Most problematic files
  cldev lr unresolved               # Sessions still open
  cldev lr new "title"              # Record a new session
  cldev lr show <id>                # Show one session
  cldev lr rm <id>                  # Delete a session
  cldev lr watch                    # Keep the index in sync live`,
}

func init() {
	lrCmd.AddCommand(lrRebuildCmd)
	lrCmd.AddCommand(lrSearchCmd)
	lrCmd.AddCommand(lrFileCmd)
	lrCmd.AddCommand(lrTagCmd)
	lrCmd.AddCommand(lrErrorCmd)
	lrCmd.AddCommand(lrSimilarCmd)
	lrCmd.AddCommand(lrSuggestCmd)
	lrCmd.AddCommand(lrHotspotsCmd)
	lrCmd.AddCommand(lrUnresolvedCmd)
	lrCmd.AddCommand(lrStaleCmd)
	lrCmd.AddCommand(lrStatsCmd)
	lrCmd.AddCommand(lrWatchCmd)
	lrCmd.AddCommand(lrNewCmd)
	lrCmd.AddCommand(lrShowCmd)
	lrCmd.AddCommand(lrRmCmd)
}

// openStore loads config and opens the learning record index.
func openStore() (*index.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := index.Open(cfg.DBPath(), cfg.Records.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	return store, cfg, nil
}

var lrRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the markdown records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.BuildFromMarkdown()
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}

		fmt.Printf("%s Rebuilt index: %d inserted, %d updated, %d skipped\n",
			color.GreenString("✓"), stats.Inserted, stats.Updated, stats.Skipped)
		for _, reason := range stats.SkipReasons {
			fmt.Printf("  %s %s\n", color.YellowString("⚠"), reason)
		}
		return nil
	},
}

var lrStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Check whether the index is out of date",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		stale, err := store.IsStale()
		if err != nil {
			return err
		}

		if stale {
			fmt.Printf("%s Index is stale; run 'cldev lr rebuild'\n", color.YellowString("⚠"))
		} else {
			fmt.Printf("%s Index is up to date\n", color.GreenString("✓"))
		}
		return nil
	},
}

var lrStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := store.SessionCount()
		if err != nil {
			return err
		}
		tf := store.TFIDFStats()

		fmt.Printf("Records dir:    %s\n", cfg.Records.Dir)
		fmt.Printf("Index db:       %s\n", store.Path())
		fmt.Printf("Sessions:       %d\n", count)
		fmt.Printf("Search terms:   %d\n", tf.TermCount)
		fmt.Printf("Avg doc length: %.1f tokens\n", tf.AvgDocLength)
		return nil
	},
}

var lrWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the records directory and keep the index in sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s (ctrl-c to stop)\n", cfg.Records.Dir)
		err = store.Watch(ctx, func(ev index.WatchEvent) {
			switch ev.Op {
			case index.WatchIndexed:
				fmt.Printf("%s indexed %s\n", color.GreenString("✓"), ev.Path)
			case index.WatchRemoved:
				fmt.Printf("%s removed %s\n", color.GreenString("✓"), ev.Path)
			case index.WatchSkipped:
				if ev.Err != nil {
					fmt.Printf("%s %v\n", color.YellowString("⚠"), ev.Err)
				}
			}
		})
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

// printResults renders query results in a compact list.
func printResults(results []index.QueryResult) {
	if len(results) == 0 {
		fmt.Println("No matching sessions.")
		return
	}

	fmt.Printf("Found %d session(s):\n\n", len(results))
	for _, r := range results {
		printResultCompact(r)
	}
}

func printResultCompact(r index.QueryResult) {
	status := color.YellowString("open")
	if r.Session.Resolved {
		status = color.GreenString("resolved")
	}

	fmt.Printf("%s %s [%s/%s] %s (score %.2f)\n",
		color.CyanString(r.Session.ID),
		r.Session.Title,
		r.Session.SessionType,
		r.Session.Priority,
		status,
		r.RelevanceScore,
	)
	if len(r.MatchedTags) > 0 {
		fmt.Printf("    tags:  %s\n", strings.Join(r.MatchedTags, ", "))
	}
	if len(r.MatchedFiles) > 0 {
		fmt.Printf("    files: %s\n", strings.Join(r.MatchedFiles, ", "))
	}
	fmt.Println()
}
