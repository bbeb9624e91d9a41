package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanae-abe/cldev/internal/index"
)

var (
	queryLimit       int
	searchUseTFIDF   bool
	similarThreshold float64
	suggestFiles     []string
	suggestError     string
	suggestTags      []string
)

func init() {
	for _, c := range []*cobra.Command{
		lrSearchCmd, lrFileCmd, lrTagCmd, lrErrorCmd,
		lrSimilarCmd, lrSuggestCmd, lrHotspotsCmd, lrUnresolvedCmd,
	} {
		c.Flags().IntVarP(&queryLimit, "limit", "n", 0, "Maximum number of results (0 uses the configured default)")
	}

	lrSearchCmd.Flags().BoolVar(&searchUseTFIDF, "tfidf", false, "Rank by TF-IDF instead of full-text match")
	lrSimilarCmd.Flags().Float64VarP(&similarThreshold, "threshold", "t", 0, "Minimum similarity score (0 uses the configured default)")

	lrSuggestCmd.Flags().StringSliceVarP(&suggestFiles, "file", "f", nil, "File you are working on (repeatable)")
	lrSuggestCmd.Flags().StringVarP(&suggestError, "error", "e", "", "Error message you are seeing")
	lrSuggestCmd.Flags().StringSliceVarP(&suggestTags, "tag", "T", nil, "Topic tag (repeatable)")
}

// effectiveLimit resolves the --limit flag against the configured default.
func effectiveLimit(configured int) int {
	if queryLimit > 0 {
		return queryLimit
	}
	if configured > 0 {
		return configured
	}
	return 10
}

var lrSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		limit := effectiveLimit(cfg.Query.Limit)

		var results []index.QueryResult
		if searchUseTFIDF {
			results, err = store.SearchTFIDF(args[0], limit)
		} else {
			results, err = store.QueryByKeyword(args[0], limit)
		}
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

var lrFileCmd = &cobra.Command{
	Use:   "file <path-fragment>",
	Short: "Sessions that touched a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.QueryByFile(args[0], effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("file query failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

var lrTagCmd = &cobra.Command{
	Use:   "tag <tag>",
	Short: "Sessions carrying a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.QueryByTag(args[0], effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("tag query failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

var lrErrorCmd = &cobra.Command{
	Use:   "error <fragment>",
	Short: "Sessions whose recorded errors contain a fragment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.QueryByError(args[0], effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("error query failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

var lrSimilarCmd = &cobra.Command{
	Use:   "similar <error-message>",
	Short: "Fuzzy-match an error message against recorded failures",
	Long: `Fuzzy-match an error message against every recorded error pattern.

Volatile details (paths, line numbers, addresses, timestamps) are stripped
before comparison, so the same failure with different specifics still
matches. Each session is scored by its best matching pattern.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		threshold := similarThreshold
		if threshold == 0 {
			threshold = cfg.Similarity.Threshold
		}

		results, err := store.FindSimilarErrors(args[0], threshold, effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("similarity search failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

var lrSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest relevant past sessions for your current context",
	Long: `Suggest relevant past sessions for what you are working on now.

Provide any combination of files, an error message, and tags. Sessions are
scored by a weighted blend of file overlap, error similarity, tag overlap,
and recency.

Example:
  cldev lr suggest --file internal/server/handler.go --error "nil pointer" --tag http`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(suggestFiles) == 0 && suggestError == "" && len(suggestTags) == 0 {
			return fmt.Errorf("provide at least one of --file, --error, --tag")
		}

		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		wc := index.WorkContext{
			Files:        suggestFiles,
			ErrorMessage: suggestError,
			Tags:         suggestTags,
		}

		results, err := store.SuggestByContext(wc, effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("suggest failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

var lrHotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Files with the highest problem density",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		hotspots, err := store.Hotspots(effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("hotspot query failed: %w", err)
		}

		if len(hotspots) == 0 {
			fmt.Println("No file data recorded yet.")
			return nil
		}

		fmt.Printf("%-50s %8s %8s  %s\n", "FILE", "SESSIONS", "SCORE", "LAST SEEN")
		for _, h := range hotspots {
			fmt.Printf("%-50s %8d %8.2f  %s\n",
				h.FilePath, h.SessionCount, h.AvgHotspotScore, h.LastAccessed)
		}
		return nil
	},
}

var lrUnresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "Sessions still marked unresolved",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.Unresolved(effectiveLimit(cfg.Query.Limit))
		if err != nil {
			return fmt.Errorf("unresolved query failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Printf("%s Nothing unresolved.\n", color.GreenString("✓"))
			return nil
		}
		printResults(results)
		return nil
	},
}
